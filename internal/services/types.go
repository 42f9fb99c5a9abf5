package services

import (
	"context"
	"time"

	"github.com/soaringjerry/tsa-checkout/internal/models"
)

// AnswerStore persists submissions across the payment redirect. Each
// submission lives under its own id; Delete is idempotent. Take reads and
// removes a submission in one step: of concurrent callers for the same id at
// most one gets it, the rest see ErrNotFound.
type AnswerStore interface {
	Put(ctx context.Context, sub *models.Submission) error
	Get(ctx context.Context, id string) (*models.Submission, error)
	Take(ctx context.Context, id string) (*models.Submission, error)
	Delete(ctx context.Context, id string) error
	DeleteBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// ExportResult is a downloadable artifact.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

// SubmitRequest transports the parsed form into the service layer.
// Answers maps question index to the selected label.
type SubmitRequest struct {
	Locale  string
	Answers map[int]string
}

type SubmitResult struct {
	SubmissionID string
	Token        string
	CheckoutURL  string
	Responses    models.ResponseSet
}

// ConsumeResult is what the success page renders.
type ConsumeResult struct {
	Submission *models.Submission
	Artifact   *ExportResult
}
