package services

import (
	"bytes"

	"github.com/soaringjerry/tsa-checkout/internal/models"
)

const resultContentType = "text/plain; charset=utf-8"

// RenderResult renders the plain-text artifact: the localized header, a blank
// line, then one selected label per line in question order.
func RenderResult(q *models.Questionnaire, answers models.ResponseSet) *ExportResult {
	buf := &bytes.Buffer{}
	buf.WriteString(q.ResultHeader)
	buf.WriteString("\n\n")
	for i, a := range answers {
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(a)
	}
	return &ExportResult{Filename: q.ResultFilename, ContentType: resultContentType, Data: buf.Bytes()}
}
