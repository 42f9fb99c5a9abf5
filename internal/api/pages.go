package api

import (
	"bytes"
	"embed"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/soaringjerry/tsa-checkout/internal/middleware"
	"github.com/soaringjerry/tsa-checkout/internal/models"
	"github.com/soaringjerry/tsa-checkout/internal/services"
	"github.com/soaringjerry/tsa-checkout/internal/utils"
)

//go:embed templates/*.html
var templateFS embed.FS

func parsePages() *template.Template {
	return template.Must(template.ParseFS(templateFS, "templates/*.html"))
}

type pageData struct {
	Locale        string
	Questionnaire *models.Questionnaire
	Selected      models.ResponseSet
	Submitted     bool
	CheckoutURL   string
	Error         string
	Result        string
	Filename      string
	DownloadHref  template.URL
	RetryHref     string
}

// T resolves page chrome strings for the request locale.
func (p pageData) T(key string) string { return utils.T(p.Locale, key) }

// Field is the form name of question i.
func (p pageData) Field(i int) string { return "q" + strconv.Itoa(i) }

// IsSelected reports whether label is the current choice for question i.
func (p pageData) IsSelected(i int, label string) bool {
	return i < len(p.Selected) && p.Selected[i] == label
}

func (rt *Router) render(w http.ResponseWriter, status int, name string, data pageData) {
	buf := &bytes.Buffer{}
	if err := rt.pages.ExecuteTemplate(buf, name, data); err != nil {
		log.WithError(err).WithField("template", name).Error("render page")
		http.Error(w, utils.T(data.Locale, "error.generic"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func (rt *Router) newPage(r *http.Request) pageData {
	locale := middleware.LocaleFromContext(r.Context())
	q := rt.checkout.Catalog().Lookup(locale)
	return pageData{Locale: q.Locale, Questionnaire: q}
}

// GET /
func (rt *Router) handleQuestionnaire(w http.ResponseWriter, r *http.Request) {
	data := rt.newPage(r)
	data.Selected = services.BuildResponseSet(data.Questionnaire, nil)
	rt.render(w, http.StatusOK, "questionnaire.html", data)
}

// POST /
func (rt *Router) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		data := rt.newPage(r)
		data.Selected = services.BuildResponseSet(data.Questionnaire, nil)
		data.Error = data.T("error.generic")
		rt.render(w, http.StatusBadRequest, "questionnaire.html", data)
		return
	}
	data := rt.newPage(r)
	answers := make(map[int]string, len(data.Questionnaire.Questions))
	for i := range data.Questionnaire.Questions {
		if v := r.PostForm.Get(data.Field(i)); v != "" {
			answers[i] = v
		}
	}

	res, err := rt.checkout.Submit(r.Context(), services.SubmitRequest{Locale: data.Locale, Answers: answers})
	if err != nil {
		data.Selected = services.BuildResponseSet(data.Questionnaire, answers)
		status := statusForError(err)
		if status == http.StatusBadGateway {
			data.Error = data.T("questionnaire.failed")
		} else {
			data.Error = data.T("error.generic")
		}
		rt.render(w, status, "questionnaire.html", data)
		return
	}

	rt.setSubmissionCookie(w, res.Token)
	data.Selected = res.Responses
	data.Submitted = true
	data.CheckoutURL = res.CheckoutURL
	rt.render(w, http.StatusOK, "questionnaire.html", data)
}

// GET /?page=success
//
// The record is consumed while rendering, so the page embeds the artifact as
// a data: link. With format=txt the artifact itself is returned instead.
func (rt *Router) handleSuccess(w http.ResponseWriter, r *http.Request) {
	data := rt.newPage(r)
	res, err := rt.checkout.Consume(r.Context(), submissionToken(r, false))
	if err != nil && !errors.Is(err, services.ErrNotFound) {
		data.Error = data.T("error.generic")
		rt.render(w, statusForError(err), "success.html", data)
		return
	}
	if res == nil {
		if r.URL.Query().Get("format") == "txt" {
			http.Error(w, data.T("success.empty"), http.StatusNotFound)
			return
		}
		rt.render(w, http.StatusOK, "success.html", data)
		return
	}

	rt.clearSubmissionCookie(w)
	art := res.Artifact
	if r.URL.Query().Get("format") == "txt" {
		w.Header().Set("Content-Type", art.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.Filename))
		w.Header().Set("Content-Length", strconv.Itoa(len(art.Data)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(art.Data)
		return
	}

	if q := rt.checkout.Catalog().Lookup(res.Submission.Locale); q.Locale != data.Locale {
		data.Locale = q.Locale
		data.Questionnaire = q
	}
	data.Selected = res.Submission.Answers
	data.Result = string(art.Data)
	data.Filename = art.Filename
	data.DownloadHref = template.URL("data:text/plain;charset=utf-8;base64," + base64.StdEncoding.EncodeToString(art.Data))
	rt.render(w, http.StatusOK, "success.html", data)
}

// GET /?page=cancel
func (rt *Router) handleCancel(w http.ResponseWriter, r *http.Request) {
	data := rt.newPage(r)
	data.RetryHref = "?lang=" + data.Locale
	if err := rt.checkout.Discard(r.Context(), submissionToken(r, true)); err != nil {
		log.WithError(err).Error("discard on cancel failed")
		data.Error = data.T("error.generic")
		rt.render(w, statusForError(err), "cancel.html", data)
		return
	}
	rt.clearSubmissionCookie(w)
	rt.render(w, http.StatusOK, "cancel.html", data)
}
