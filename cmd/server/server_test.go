package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/soaringjerry/tsa-checkout/internal/config"
	"github.com/soaringjerry/tsa-checkout/internal/payment"
)

var tokenParam = regexp.MustCompile(`token=([A-Za-z0-9_.-]+)`)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		BaseURL:       "https://tsa.example/",
		Payment:       config.PaymentFake,
		Store:         config.StoreMemory,
		DataDir:       t.TempDir(),
		SubmissionTTL: time.Hour,
		TokenSecret:   "test-secret",
		Commit:        "abc123",
	}
}

func TestHealthAndVersion(t *testing.T) {
	cfg := testConfig(t)
	svc, closer, err := newCheckout(cfg, payment.NewFakeClient())
	if err != nil {
		t.Fatalf("newCheckout: %v", err)
	}
	defer closer.Close()
	h := newHandler(cfg, svc)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Accept-Language", "es-ES,es;q=0.9")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("health status = %d", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if body["ok"] != true || body["locale"] != "es" || body["commit"] != "abc123" {
		t.Fatalf("health body = %v", body)
	}
	if rr.Header().Get("Cache-Control") == "" || rr.Header().Get("Referrer-Policy") != "no-referrer" {
		t.Fatalf("missing middleware headers: %v", rr.Header())
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/version", nil))
	if !strings.Contains(rr.Body.String(), `"commit":"abc123"`) {
		t.Fatalf("version body = %s", rr.Body.String())
	}
}

func TestFakeCheckoutRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	svc, closer, err := newCheckout(cfg, payment.NewFakeClient())
	if err != nil {
		t.Fatalf("newCheckout: %v", err)
	}
	defer closer.Close()
	h := newHandler(cfg, svc)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("q0=No"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "https://tsa.example/?") {
		t.Fatalf("submit: %d", rr.Code)
	}

	// the fake processor's session url is the success url itself
	m := tokenParam.FindStringSubmatch(rr.Body.String())
	if m == nil {
		t.Fatalf("no token in checkout link")
	}
	next := httptest.NewRequest(http.MethodGet, "/?page=success&format=txt&token="+m[1], nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, next)
	if got := rr.Body.String(); got != "Your TSA Questionnaire Result:\n\nNo\nYes\nYes" {
		t.Fatalf("artifact = %q", got)
	}
}

func TestPaymentClientNeedsKeyOrExplicitFake(t *testing.T) {
	cfg := testConfig(t)
	cfg.Payment = config.PaymentStripe
	if _, err := newPaymentClient(cfg); err == nil {
		t.Fatalf("expected an error without STRIPE_SECRET_KEY")
	}

	cfg.StripeSecretKey = "sk_test_123"
	c, err := newPaymentClient(cfg)
	if err != nil {
		t.Fatalf("stripe client: %v", err)
	}
	if _, ok := c.(*payment.StripeClient); !ok {
		t.Fatalf("client = %T, want *payment.StripeClient", c)
	}

	cfg.Payment = config.PaymentFake
	c, err = newPaymentClient(cfg)
	if err != nil {
		t.Fatalf("fake client: %v", err)
	}
	if _, ok := c.(*payment.FakeClient); !ok {
		t.Fatalf("client = %T, want *payment.FakeClient", c)
	}
}

func TestOpenStoreBackends(t *testing.T) {
	for _, kind := range []string{config.StoreFile, config.StoreSQLite, config.StoreMemory} {
		cfg := testConfig(t)
		cfg.Store = kind
		cfg.SQLitePath = filepath.Join(cfg.DataDir, "tsa.db")
		st, closer, err := openStore(cfg)
		if err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		if st == nil {
			t.Fatalf("%s: nil store", kind)
		}
		if err := closer.Close(); err != nil {
			t.Fatalf("%s close: %v", kind, err)
		}
	}
}

func TestQuestionsCheck(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "q.yaml")
	doc := `default_locale: en
questionnaires:
  - locale: en
    title: Short
    product_name: Short Result
    result_header: "Result:"
    questions:
      - text: Ready?
        labels: [Yes, No]
`
	if err := os.WriteFile(good, []byte(doc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cmd := rootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"questions", "--check", good})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("questions --check: %v", err)
	}
	if !strings.Contains(out.String(), "ok (1 locales)") {
		t.Fatalf("output = %q", out.String())
	}

	cmd = rootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"questions", "--check", filepath.Join(dir, "missing.yaml")})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
