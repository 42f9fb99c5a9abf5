package api

import (
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/soaringjerry/tsa-checkout/internal/models"
	"github.com/soaringjerry/tsa-checkout/internal/services"
)

const submissionCookie = "tsa_submission"

type Router struct {
	checkout      *services.CheckoutService
	pages         *template.Template
	secureCookies bool
	cookieTTL     time.Duration
}

type Options struct {
	// SecureCookies sets the Secure flag on the submission cookie; use it when
	// the base URL is https.
	SecureCookies bool
	CookieTTL     time.Duration
}

func NewRouter(checkout *services.CheckoutService, opts Options) *Router {
	if opts.CookieTTL <= 0 {
		opts.CookieTTL = 24 * time.Hour
	}
	return &Router{
		checkout:      checkout,
		pages:         parsePages(),
		secureCookies: opts.SecureCookies,
		cookieTTL:     opts.CookieTTL,
	}
}

func (rt *Router) Register(r chi.Router) {
	r.Get("/", rt.handlePage)  // GET /?page=questionnaire|success|cancel
	r.Post("/", rt.handlePage) // POST / submits the questionnaire
}

// RouteFromQuery picks the page from the first "page" value. Absent and
// unknown values both select the questionnaire.
func RouteFromQuery(q url.Values) models.PageRoute {
	vals := q["page"]
	if len(vals) == 0 {
		return models.RouteQuestionnaire
	}
	switch route := models.PageRoute(strings.ToLower(strings.TrimSpace(vals[0]))); route {
	case models.RouteSuccess, models.RouteCancel:
		return route
	default:
		return models.RouteQuestionnaire
	}
}

func (rt *Router) handlePage(w http.ResponseWriter, r *http.Request) {
	switch RouteFromQuery(r.URL.Query()) {
	case models.RouteSuccess:
		rt.handleSuccess(w, r)
	case models.RouteCancel:
		rt.handleCancel(w, r)
	default:
		if r.Method == http.MethodPost {
			rt.handleSubmit(w, r)
			return
		}
		rt.handleQuestionnaire(w, r)
	}
}

// submissionToken reads the token from the redirect URL. The cookie set at
// submit time is only consulted when withCookie is set: it is in the browser
// before payment, so it must never unlock a result.
func submissionToken(r *http.Request, withCookie bool) string {
	if tok := r.URL.Query().Get("token"); tok != "" {
		return tok
	}
	if !withCookie {
		return ""
	}
	if c, err := r.Cookie(submissionCookie); err == nil {
		return c.Value
	}
	return ""
}

func (rt *Router) setSubmissionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     submissionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(rt.cookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   rt.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (rt *Router) clearSubmissionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     submissionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   rt.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func statusForError(err error) int {
	se, ok := services.AsServiceError(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch se.Code {
	case services.ErrorInvalid:
		return http.StatusBadRequest
	case services.ErrorNotFound:
		return http.StatusNotFound
	case services.ErrorBadGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
