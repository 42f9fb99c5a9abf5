package api

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/soaringjerry/tsa-checkout/internal/middleware"
	"github.com/soaringjerry/tsa-checkout/internal/models"
	"github.com/soaringjerry/tsa-checkout/internal/payment"
	"github.com/soaringjerry/tsa-checkout/internal/services"
	"github.com/soaringjerry/tsa-checkout/internal/store"
)

type stubPayments struct {
	err  error
	reqs []payment.CheckoutRequest
}

func (s *stubPayments) CreateCheckoutSession(_ context.Context, req payment.CheckoutRequest) (*models.CheckoutSession, error) {
	s.reqs = append(s.reqs, req)
	if s.err != nil {
		return nil, s.err
	}
	return &models.CheckoutSession{ID: "sess_1", URL: "https://pay.example/sess_1"}, nil
}

type harness struct {
	handler  http.Handler
	store    *store.MemoryStore
	payments *stubPayments
}

// failingDeleteStore loses every Delete, as a read-only disk would.
type failingDeleteStore struct {
	*store.MemoryStore
}

func (failingDeleteStore) Delete(context.Context, string) error {
	return errors.New("disk full")
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mem := store.NewMemoryStore(time.Hour)
	return newHarnessWithStore(t, mem, mem)
}

// newHarnessWithStore serves from st; mem is the memory store underneath it.
func newHarnessWithStore(t *testing.T, st services.AnswerStore, mem *store.MemoryStore) *harness {
	t.Helper()
	pay := &stubPayments{}
	catalog := services.DefaultCatalog()
	svc := services.NewCheckoutService(st, pay, catalog, services.NewTokenCodec([]byte("test-key")), services.CheckoutConfig{
		BaseURL:       "https://tsa.example/",
		SubmissionTTL: time.Hour,
	})
	r := chi.NewRouter()
	r.Use(middleware.Locale(catalog.Locales(), catalog.DefaultLocale()))
	NewRouter(svc, Options{}).Register(r)
	return &harness{handler: r, store: mem, payments: pay}
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.handler.ServeHTTP(rr, req)
	return rr
}

func (h *harness) submit(form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return h.do(req)
}

func (h *harness) lastToken(t *testing.T) string {
	t.Helper()
	if len(h.payments.reqs) == 0 {
		t.Fatalf("no checkout session requested")
	}
	u, err := url.Parse(h.payments.reqs[len(h.payments.reqs)-1].SuccessURL)
	if err != nil {
		t.Fatalf("parse success url: %v", err)
	}
	return u.Query().Get("token")
}

// countStored empties the store and reports how many submissions it held.
func countStored(s *store.MemoryStore) int {
	n, _ := s.DeleteBefore(context.Background(), time.Now().Add(24*time.Hour))
	return n
}

func TestRouteFromQuery(t *testing.T) {
	cases := map[string]models.PageRoute{
		"":                            models.RouteQuestionnaire,
		"page=success":                models.RouteSuccess,
		"page=cancel":                 models.RouteCancel,
		"page=CANCEL":                 models.RouteCancel,
		"page=bogus":                  models.RouteQuestionnaire,
		"page=questionnaire":          models.RouteQuestionnaire,
		"page=success&page=cancel":    models.RouteSuccess,
		"lang=es&page=cancel&token=x": models.RouteCancel,
	}
	for raw, want := range cases {
		q, _ := url.ParseQuery(raw)
		if got := RouteFromQuery(q); got != want {
			t.Fatalf("%q: got %s want %s", raw, got, want)
		}
	}
}

func TestQuestionnairePageDefaultsToFirstLabel(t *testing.T) {
	h := newHarness(t)
	rr := h.do(httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"TSA Questionnaire", `name="q0"`, `name="q2"`, `value="Yes" checked`} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q", want)
		}
	}
	if strings.Contains(body, "pay.example") {
		t.Fatalf("checkout link shown before submit")
	}
}

func TestUnknownPageRendersQuestionnaire(t *testing.T) {
	h := newHarness(t)
	rr := h.do(httptest.NewRequest(http.MethodGet, "/?page=nope", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `name="q0"`) {
		t.Fatalf("unknown page should show the questionnaire: %d", rr.Code)
	}
}

func TestSubmitShowsCheckoutLinkAndSetsCookie(t *testing.T) {
	h := newHarness(t)
	rr := h.submit(url.Values{"q0": {"No"}, "q1": {"Yes"}, "q2": {"No"}})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `href="https://pay.example/sess_1"`) {
		t.Fatalf("checkout link missing")
	}
	req := h.payments.reqs[0]
	if req.Amount != 500 || req.Currency != "eur" {
		t.Fatalf("price = %d %s", req.Amount, req.Currency)
	}
	if !strings.Contains(req.SuccessURL, "page=success") || !strings.Contains(req.CancelURL, "page=cancel") {
		t.Fatalf("callback urls = %s / %s", req.SuccessURL, req.CancelURL)
	}
	var cookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == submissionCookie {
			cookie = c
		}
	}
	if cookie == nil || !cookie.HttpOnly || cookie.Value != h.lastToken(t) {
		t.Fatalf("submission cookie = %+v", cookie)
	}
}

func TestPaymentFailureKeepsUserOnQuestionnaire(t *testing.T) {
	h := newHarness(t)
	h.payments.err = errors.New("processor down")
	rr := h.submit(url.Values{"q0": {"No"}})
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Failed to create a checkout session") || !strings.Contains(body, `name="q0"`) {
		t.Fatalf("expected failure message on the questionnaire")
	}
	if len(rr.Result().Cookies()) != 0 {
		t.Fatalf("no cookie expected on failure")
	}
	if n := countStored(h.store); n != 0 {
		t.Fatalf("submission left behind: %d", n)
	}
}

func TestSuccessRendersResultOnceWithDownload(t *testing.T) {
	h := newHarness(t)
	h.submit(url.Values{"q0": {"No"}, "q1": {"Yes"}, "q2": {"No"}})
	tok := h.lastToken(t)

	rr := h.do(httptest.NewRequest(http.MethodGet, "/?page=success&token="+tok, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	want := "Your TSA Questionnaire Result:\n\nNo\nYes\nNo"
	href := "data:text/plain;charset=utf-8;base64," + base64.StdEncoding.EncodeToString([]byte(want))
	body := rr.Body.String()
	if !strings.Contains(body, href) || !strings.Contains(body, `download="TSA_Result.txt"`) {
		t.Fatalf("download link missing: %s", body)
	}
	if n := countStored(h.store); n != 0 {
		t.Fatalf("submission should be consumed")
	}

	again := h.do(httptest.NewRequest(http.MethodGet, "/?page=success&token="+tok, nil))
	if again.Code != http.StatusOK || !strings.Contains(again.Body.String(), "No responses to display.") {
		t.Fatalf("second visit should show the empty state")
	}
}

func TestSuccessRawDownload(t *testing.T) {
	h := newHarness(t)
	h.submit(url.Values{"lang": {"es"}, "q0": {"Siempre"}, "q1": {"bogus"}})
	tok := h.lastToken(t)

	rr := h.do(httptest.NewRequest(http.MethodGet, "/?page=success&format=txt&token="+tok, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if cd := rr.Header().Get("Content-Disposition"); cd != `attachment; filename="Resultado_TSA.txt"` {
		t.Fatalf("content disposition = %q", cd)
	}
	b, _ := io.ReadAll(rr.Body)
	if string(b) != "Su resultado del Cuestionario TSA:\n\nSiempre\nNunca\nNunca" {
		t.Fatalf("artifact = %q", b)
	}

	gone := h.do(httptest.NewRequest(http.MethodGet, "/?page=success&format=txt&token="+tok, nil))
	if gone.Code != http.StatusNotFound {
		t.Fatalf("second download status = %d", gone.Code)
	}
}

func TestSuccessIgnoresSubmissionCookie(t *testing.T) {
	h := newHarness(t)
	sub := h.submit(url.Values{"q0": {"No"}})
	for _, path := range []string{"/?page=success", "/?page=success&format=txt"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		for _, c := range sub.Result().Cookies() {
			req.AddCookie(c)
		}
		rr := h.do(req)
		body := rr.Body.String()
		if strings.Contains(body, "data:text/plain") || strings.Contains(body, "Your TSA Questionnaire Result:") {
			t.Fatalf("%s: cookie alone must not unlock the result", path)
		}
		for _, c := range rr.Result().Cookies() {
			if c.Name == submissionCookie {
				t.Fatalf("%s: cookie cleared without delivering a result", path)
			}
		}
	}
	if n := countStored(h.store); n != 1 {
		t.Fatalf("submission should still be stored, have %d", n)
	}
}

func TestCancelUsesCookieWhenTokenMissing(t *testing.T) {
	h := newHarness(t)
	sub := h.submit(url.Values{"q0": {"No"}})
	req := httptest.NewRequest(http.MethodGet, "/?page=cancel", nil)
	for _, c := range sub.Result().Cookies() {
		req.AddCookie(c)
	}
	rr := h.do(req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if n := countStored(h.store); n != 0 {
		t.Fatalf("cookie fallback did not discard the submission")
	}
}

func TestCancelDeleteFailureIsReported(t *testing.T) {
	mem := store.NewMemoryStore(time.Hour)
	h := newHarnessWithStore(t, failingDeleteStore{mem}, mem)
	h.submit(url.Values{"q0": {"No"}})
	tok := h.lastToken(t)

	rr := h.do(httptest.NewRequest(http.MethodGet, "/?page=cancel&token="+tok, nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Something went wrong") {
		t.Fatalf("error message missing from cancel page")
	}
	for _, c := range rr.Result().Cookies() {
		if c.Name == submissionCookie {
			t.Fatalf("cookie cleared although the submission is still stored")
		}
	}
	if n := countStored(mem); n != 1 {
		t.Fatalf("stored = %d, want the submission still present", n)
	}
}

func TestConcurrentSuccessDeliversOnce(t *testing.T) {
	h := newHarness(t)
	h.submit(url.Values{"q0": {"No"}})
	tok := h.lastToken(t)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		delivered int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rr := h.do(httptest.NewRequest(http.MethodGet, "/?page=success&format=txt&token="+tok, nil))
			if rr.Code == http.StatusOK {
				mu.Lock()
				delivered++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if delivered != 1 {
		t.Fatalf("result delivered %d times, want once", delivered)
	}
}

func TestSuccessWithoutSubmission(t *testing.T) {
	h := newHarness(t)
	rr := h.do(httptest.NewRequest(http.MethodGet, "/?page=success", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "No responses to display.") || strings.Contains(body, "data:text/plain") {
		t.Fatalf("expected the empty state")
	}
}

func TestCancelDiscardsSubmission(t *testing.T) {
	h := newHarness(t)
	h.submit(url.Values{"q0": {"No"}})
	tok := h.lastToken(t)

	rr := h.do(httptest.NewRequest(http.MethodGet, "/?page=cancel&token="+tok, nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Payment Cancelled") {
		t.Fatalf("cancel page: %d", rr.Code)
	}
	if n := countStored(h.store); n != 0 {
		t.Fatalf("cancel should discard the submission")
	}
	late := h.do(httptest.NewRequest(http.MethodGet, "/?page=success&token="+tok, nil))
	if strings.Contains(late.Body.String(), "data:text/plain") {
		t.Fatalf("cancelled submission must not produce a result")
	}
}

func TestSubmissionsDoNotShareState(t *testing.T) {
	h := newHarness(t)
	h.submit(url.Values{"q0": {"Yes"}})
	first := h.lastToken(t)
	h.submit(url.Values{"q0": {"No"}})
	second := h.lastToken(t)

	rr := h.do(httptest.NewRequest(http.MethodGet, "/?page=success&format=txt&token="+first, nil))
	if got := rr.Body.String(); got != "Your TSA Questionnaire Result:\n\nYes\nYes\nYes" {
		t.Fatalf("first artifact = %q", got)
	}
	rr = h.do(httptest.NewRequest(http.MethodGet, "/?page=success&format=txt&token="+second, nil))
	if got := rr.Body.String(); got != "Your TSA Questionnaire Result:\n\nNo\nYes\nYes" {
		t.Fatalf("second artifact = %q", got)
	}
}
