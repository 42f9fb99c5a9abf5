// Package payment creates hosted checkout sessions with the payment processor.
package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/soaringjerry/tsa-checkout/internal/models"
)

// Client is the checkout session API used by the questionnaire flow.
type Client interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*models.CheckoutSession, error)
}

// CheckoutRequest describes a one-time card payment for a single product.
type CheckoutRequest struct {
	Amount            int64 // minor currency units
	Currency          string
	ProductName       string
	SuccessURL        string
	CancelURL         string
	ClientReferenceID string
	Locale            string
}

// Validate rejects requests the processor would refuse anyway.
func (r CheckoutRequest) Validate() error {
	switch {
	case r.Amount <= 0:
		return errors.New("amount must be positive")
	case r.Currency == "":
		return errors.New("currency required")
	case r.ProductName == "":
		return errors.New("product name required")
	case r.SuccessURL == "" || r.CancelURL == "":
		return errors.New("success and cancel urls required")
	}
	return nil
}

// PaymentProviderError reports any failure to create a checkout session:
// network, authentication or validation. Callers must not assume a session exists.
type PaymentProviderError struct {
	Op   string
	Code string
	Err  error
}

func (e *PaymentProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("payment provider: %s (%s): %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("payment provider: %s: %v", e.Op, e.Err)
}

func (e *PaymentProviderError) Unwrap() error { return e.Err }
