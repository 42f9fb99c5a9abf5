package models

import "time"

// Question is a single multiple-choice prompt. Labels are the allowed answers
// in display order; the first label is the pre-selected default.
type Question struct {
	ID     string   `json:"id" yaml:"id"`
	Text   string   `json:"text" yaml:"text"`
	Labels []string `json:"labels" yaml:"labels"`
}

// Questionnaire is one locale's fixed text set.
type Questionnaire struct {
	Locale         string     `json:"locale" yaml:"locale"`
	Title          string     `json:"title" yaml:"title"`
	ProductName    string     `json:"product_name" yaml:"product_name"`
	ResultFilename string     `json:"result_filename" yaml:"result_filename"`
	ResultHeader   string     `json:"result_header" yaml:"result_header"`
	Questions      []Question `json:"questions" yaml:"questions"`
}

// ResponseSet holds one selected label per question, index-aligned with Questions.
type ResponseSet []string

// Submission is the transient record persisted across the payment redirect.
type Submission struct {
	ID        string      `json:"id"`
	Locale    string      `json:"locale"`
	Answers   ResponseSet `json:"answers"`
	CreatedAt time.Time   `json:"created_at"`
}

// CheckoutSession is the processor-side handle for a pending payment.
type CheckoutSession struct {
	ID  string
	URL string
}

// PageRoute selects which page handles a request.
type PageRoute string

const (
	RouteQuestionnaire PageRoute = "questionnaire"
	RouteSuccess       PageRoute = "success"
	RouteCancel        PageRoute = "cancel"
)
