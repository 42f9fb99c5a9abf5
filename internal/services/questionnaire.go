package services

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/soaringjerry/tsa-checkout/internal/models"
)

// Catalog holds the fixed questionnaire text sets, one per locale.
type Catalog struct {
	byLocale      map[string]*models.Questionnaire
	defaultLocale string
}

type catalogFile struct {
	DefaultLocale  string                 `yaml:"default_locale"`
	Questionnaires []models.Questionnaire `yaml:"questionnaires"`
}

var yesNo = []string{"Yes", "No"}

var frequencyES = []string{"Nunca", "Rara vez", "A veces", "A menudo", "Siempre"}

func builtinQuestionnaires() []models.Questionnaire {
	return []models.Questionnaire{
		{
			Locale:         "en",
			Title:          "TSA Questionnaire",
			ProductName:    "TSA Questionnaire Result",
			ResultFilename: "TSA_Result.txt",
			ResultHeader:   "Your TSA Questionnaire Result:",
			Questions: []models.Question{
				{ID: "q1", Text: "Do you find it difficult to understand people’s feelings?", Labels: yesNo},
				{ID: "q2", Text: "Do you often notice small sounds when others do not?", Labels: yesNo},
				{ID: "q3", Text: "Do you prefer to do things the same way over and over again?", Labels: yesNo},
			},
		},
		{
			Locale:         "es",
			Title:          "Cuestionario TSA",
			ProductName:    "Resultado del Cuestionario TSA",
			ResultFilename: "Resultado_TSA.txt",
			ResultHeader:   "Su resultado del Cuestionario TSA:",
			Questions: []models.Question{
				{ID: "q1", Text: "¿Le resulta difícil entender los sentimientos de las personas?", Labels: frequencyES},
				{ID: "q2", Text: "¿Suele notar sonidos pequeños cuando los demás no los perciben?", Labels: frequencyES},
				{ID: "q3", Text: "¿Prefiere hacer las cosas de la misma manera una y otra vez?", Labels: frequencyES},
			},
		},
	}
}

// DefaultCatalog returns the built-in English (Yes/No) and Spanish (5-point) sets.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog("en", builtinQuestionnaires())
	if err != nil {
		panic(fmt.Sprintf("builtin catalog: %v", err))
	}
	return c
}

// NewCatalog validates and indexes the given questionnaires.
func NewCatalog(defaultLocale string, qs []models.Questionnaire) (*Catalog, error) {
	if len(qs) == 0 {
		return nil, NewInvalidError("catalog has no questionnaires")
	}
	c := &Catalog{byLocale: map[string]*models.Questionnaire{}}
	for i := range qs {
		q := qs[i]
		q.Locale = strings.ToLower(strings.TrimSpace(q.Locale))
		if err := validateQuestionnaire(&q); err != nil {
			return nil, err
		}
		if _, dup := c.byLocale[q.Locale]; dup {
			return nil, NewInvalidError(fmt.Sprintf("duplicate locale %q", q.Locale))
		}
		c.byLocale[q.Locale] = &q
	}
	defaultLocale = strings.ToLower(strings.TrimSpace(defaultLocale))
	if _, ok := c.byLocale[defaultLocale]; !ok {
		defaultLocale = strings.ToLower(qs[0].Locale)
	}
	c.defaultLocale = defaultLocale
	return c, nil
}

func validateQuestionnaire(q *models.Questionnaire) error {
	if q.Locale == "" {
		return NewInvalidError("questionnaire locale required")
	}
	if q.ResultFilename == "" {
		q.ResultFilename = "TSA_Result.txt"
	}
	if q.ProductName == "" {
		return NewInvalidError(fmt.Sprintf("%s: product_name required", q.Locale))
	}
	if len(q.Questions) == 0 {
		return NewInvalidError(fmt.Sprintf("%s: no questions", q.Locale))
	}
	for i, qu := range q.Questions {
		if strings.TrimSpace(qu.Text) == "" {
			return NewInvalidError(fmt.Sprintf("%s: question %d has no text", q.Locale, i))
		}
		if len(qu.Labels) == 0 {
			return NewInvalidError(fmt.Sprintf("%s: question %d has no labels", q.Locale, i))
		}
		if qu.ID == "" {
			q.Questions[i].ID = fmt.Sprintf("q%d", i+1)
		}
	}
	return nil
}

// LoadCatalog reads a YAML catalog file. An empty path yields the built-in catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read questions file: %w", err)
	}
	var f catalogFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse questions file: %w", err)
	}
	return NewCatalog(f.DefaultLocale, f.Questionnaires)
}

// MarshalYAML renders the catalog in the format LoadCatalog accepts.
func (c *Catalog) MarshalYAML() (any, error) {
	f := catalogFile{DefaultLocale: c.defaultLocale}
	for _, l := range c.Locales() {
		f.Questionnaires = append(f.Questionnaires, *c.byLocale[l])
	}
	return f, nil
}

// Lookup returns the questionnaire for locale, falling back to the default locale.
func (c *Catalog) Lookup(locale string) *models.Questionnaire {
	if q, ok := c.byLocale[strings.ToLower(locale)]; ok {
		return q
	}
	return c.byLocale[c.defaultLocale]
}

// Locales lists supported locales, default first.
func (c *Catalog) Locales() []string {
	out := make([]string, 0, len(c.byLocale))
	for l := range c.byLocale {
		if l != c.defaultLocale {
			out = append(out, l)
		}
	}
	sort.Strings(out)
	return append([]string{c.defaultLocale}, out...)
}

func (c *Catalog) DefaultLocale() string { return c.defaultLocale }

// BuildResponseSet picks one label per question. Missing or unknown answers
// fall back to the question's first label, the pre-selected choice.
func BuildResponseSet(q *models.Questionnaire, answers map[int]string) models.ResponseSet {
	out := make(models.ResponseSet, len(q.Questions))
	for i, qu := range q.Questions {
		out[i] = qu.Labels[0]
		a, ok := answers[i]
		if !ok {
			continue
		}
		for _, l := range qu.Labels {
			if l == a {
				out[i] = a
				break
			}
		}
	}
	return out
}
