package payment

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/soaringjerry/tsa-checkout/internal/models"
)

// FakeClient approves every payment immediately: the session URL is the
// success URL itself. Used when no processor secret is configured.
type FakeClient struct{}

func NewFakeClient() *FakeClient { return &FakeClient{} }

func (FakeClient) CreateCheckoutSession(_ context.Context, req CheckoutRequest) (*models.CheckoutSession, error) {
	if err := req.Validate(); err != nil {
		return nil, &PaymentProviderError{Op: "create checkout session", Code: "invalid_request", Err: err}
	}
	return &models.CheckoutSession{ID: randomID("cs_test"), URL: req.SuccessURL}, nil
}

func randomID(prefix string) string {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err == nil {
		return fmt.Sprintf("%s_%s", strings.TrimSpace(prefix), hex.EncodeToString(b))
	}
	return fmt.Sprintf("%s_%d", strings.TrimSpace(prefix), time.Now().UnixNano())
}

var _ Client = FakeClient{}
