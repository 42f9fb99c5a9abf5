package payment

import (
	"context"
	"errors"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/checkout/session"

	"github.com/soaringjerry/tsa-checkout/internal/models"
)

// StripeClient creates Stripe Checkout sessions. It holds its own key rather
// than setting the package-global stripe.Key.
type StripeClient struct {
	sessions session.Client
}

// NewStripeClient creates a client bound to the given secret key. Network
// retries are disabled; a failed attempt is reported to the caller as is.
func NewStripeClient(apiKey string) *StripeClient {
	b := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(0),
	})
	return newStripeClientWithBackend(apiKey, b)
}

func newStripeClientWithBackend(apiKey string, b stripe.Backend) *StripeClient {
	return &StripeClient{sessions: session.Client{B: b, Key: apiKey}}
}

// CreateCheckoutSession makes a single attempt; there is no retry.
func (c *StripeClient) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*models.CheckoutSession, error) {
	const op = "create checkout session"
	if err := req.Validate(); err != nil {
		return nil, &PaymentProviderError{Op: op, Code: "invalid_request", Err: err}
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(req.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.ProductName),
					},
					UnitAmount: stripe.Int64(req.Amount),
				},
				Quantity: stripe.Int64(1),
			},
		},
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	if req.ClientReferenceID != "" {
		params.ClientReferenceID = stripe.String(req.ClientReferenceID)
	}
	if req.Locale != "" {
		params.Locale = stripe.String(req.Locale)
	}
	params.Context = ctx

	s, err := c.sessions.New(params)
	if err != nil {
		perr := &PaymentProviderError{Op: op, Err: err}
		var se *stripe.Error
		if errors.As(err, &se) {
			perr.Code = string(se.Code)
			if perr.Code == "" {
				perr.Code = string(se.Type)
			}
		}
		return nil, perr
	}
	if s == nil || s.URL == "" {
		return nil, &PaymentProviderError{Op: op, Code: "no_redirect_url", Err: errors.New("session has no redirect url")}
	}
	return &models.CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

var _ Client = (*StripeClient)(nil)
