package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/soaringjerry/tsa-checkout/internal/models"
	"github.com/soaringjerry/tsa-checkout/internal/payment"
)

const (
	DefaultAmount   int64 = 500
	DefaultCurrency       = "eur"
)

// CheckoutConfig fixes the price and where the processor sends the user back.
type CheckoutConfig struct {
	BaseURL       string
	Amount        int64
	Currency      string
	SubmissionTTL time.Duration
}

// ErrorReporter forwards unexpected failures to an error tracker.
type ErrorReporter func(err error, tags map[string]string)

// CheckoutService runs the questionnaire → payment → result flow without HTTP concerns.
type CheckoutService struct {
	store    AnswerStore
	payments payment.Client
	catalog  *Catalog
	tokens   *TokenCodec
	cfg      CheckoutConfig
	report   ErrorReporter

	now   func() time.Time
	idGen func() string
}

func NewCheckoutService(store AnswerStore, payments payment.Client, catalog *Catalog, tokens *TokenCodec, cfg CheckoutConfig) *CheckoutService {
	if cfg.Amount == 0 {
		cfg.Amount = DefaultAmount
	}
	if cfg.Currency == "" {
		cfg.Currency = DefaultCurrency
	}
	if cfg.SubmissionTTL <= 0 {
		cfg.SubmissionTTL = 24 * time.Hour
	}
	return &CheckoutService{
		store:    store,
		payments: payments,
		catalog:  catalog,
		tokens:   tokens,
		cfg:      cfg,
		report:   func(error, map[string]string) {},
		now:      func() time.Time { return time.Now().UTC() },
		idGen:    uuid.NewString,
	}
}

func (s *CheckoutService) WithReporter(fn ErrorReporter) {
	if fn != nil {
		s.report = fn
	}
}

func (s *CheckoutService) Catalog() *Catalog { return s.catalog }

// Submit persists the responses and opens a checkout session for them. When
// the session cannot be created the stored submission is removed again.
func (s *CheckoutService) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	q := s.catalog.Lookup(req.Locale)
	sub := &models.Submission{
		ID:        s.idGen(),
		Locale:    q.Locale,
		Answers:   BuildResponseSet(q, req.Answers),
		CreatedAt: s.now(),
	}
	logger := log.WithFields(log.Fields{"submission": sub.ID, "locale": sub.Locale})

	if err := s.store.Put(ctx, sub); err != nil {
		s.report(err, map[string]string{"op": "store_put"})
		return nil, NewInternalError("could not save responses", err)
	}

	token, err := s.tokens.Sign(sub.ID, s.cfg.SubmissionTTL)
	if err != nil {
		s.rollback(ctx, sub.ID)
		return nil, NewInternalError("could not sign submission token", err)
	}
	successURL, cancelURL, err := s.callbackURLs(token, sub.Locale)
	if err != nil {
		s.rollback(ctx, sub.ID)
		return nil, NewInvalidError(fmt.Sprintf("invalid base url: %v", err))
	}

	sess, err := s.payments.CreateCheckoutSession(ctx, payment.CheckoutRequest{
		Amount:            s.cfg.Amount,
		Currency:          s.cfg.Currency,
		ProductName:       q.ProductName,
		SuccessURL:        successURL,
		CancelURL:         cancelURL,
		ClientReferenceID: sub.ID,
		Locale:            sub.Locale,
	})
	if err != nil {
		logger.WithError(err).Warn("checkout session creation failed, rolling back submission")
		s.report(err, map[string]string{"op": "create_checkout_session"})
		s.rollback(ctx, sub.ID)
		var perr *payment.PaymentProviderError
		if !errors.As(err, &perr) {
			err = &payment.PaymentProviderError{Op: "create checkout session", Err: err}
		}
		return nil, NewBadGatewayError("failed to create a checkout session", err)
	}

	logger.WithField("checkout_session", sess.ID).Info("checkout session created")
	return &SubmitResult{SubmissionID: sub.ID, Token: token, CheckoutURL: sess.URL, Responses: sub.Answers}, nil
}

// rollback uses a fresh context so a cancelled request still cleans up.
func (s *CheckoutService) rollback(ctx context.Context, id string) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.store.Delete(cctx, id); err != nil {
		log.WithError(err).WithField("submission", id).Error("rollback of submission failed")
		s.report(err, map[string]string{"op": "rollback"})
	}
}

func (s *CheckoutService) callbackURLs(token, locale string) (success, cancel string, err error) {
	if success, err = s.callbackURL(models.RouteSuccess, token, locale); err != nil {
		return "", "", err
	}
	if cancel, err = s.callbackURL(models.RouteCancel, token, locale); err != nil {
		return "", "", err
	}
	return success, cancel, nil
}

func (s *CheckoutService) callbackURL(route models.PageRoute, token, locale string) (string, error) {
	base := strings.TrimSpace(s.cfg.BaseURL)
	if base == "" {
		return "", errors.New("base url not configured")
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("base url %q must be absolute", base)
	}
	q := u.Query()
	q.Set("page", string(route))
	q.Set("token", token)
	if locale != "" {
		q.Set("lang", locale)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Consume takes the submission behind token out of the store and renders its
// artifact. It returns ErrNotFound when there is nothing to show: an empty,
// invalid or expired token, or a submission already consumed.
func (s *CheckoutService) Consume(ctx context.Context, token string) (*ConsumeResult, error) {
	sid, err := s.tokens.Parse(token)
	if err != nil {
		if token != "" {
			log.WithError(err).Debug("rejecting submission token")
		}
		return nil, ErrNotFound
	}
	sub, err := s.store.Take(ctx, sid)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		s.report(err, map[string]string{"op": "store_take"})
		return nil, NewInternalError("could not read responses", err)
	}
	artifact := RenderResult(s.catalog.Lookup(sub.Locale), sub.Answers)
	log.WithField("submission", sid).Info("result delivered, submission removed")
	return &ConsumeResult{Submission: sub, Artifact: artifact}, nil
}

// Discard removes the submission behind token if any. A missing or invalid
// token is not an error.
func (s *CheckoutService) Discard(ctx context.Context, token string) error {
	sid, err := s.tokens.Parse(token)
	if err != nil {
		return nil
	}
	if err := s.store.Delete(ctx, sid); err != nil {
		s.report(err, map[string]string{"op": "store_delete"})
		return NewInternalError("could not clear responses", err)
	}
	log.WithField("submission", sid).Info("checkout cancelled, submission removed")
	return nil
}

// Sweep removes submissions whose checkout never came back within the TTL.
func (s *CheckoutService) Sweep(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.cfg.SubmissionTTL)
	n, err := s.store.DeleteBefore(ctx, cutoff)
	if err != nil {
		s.report(err, map[string]string{"op": "sweep"})
		return n, fmt.Errorf("sweep submissions: %w", err)
	}
	if n > 0 {
		log.WithFields(log.Fields{"removed": n, "cutoff": cutoff.Format(time.RFC3339)}).Info("swept stale submissions")
	}
	return n, nil
}

// RunSweeper sweeps every interval until ctx is done.
func (s *CheckoutService) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := s.Sweep(ctx); err != nil {
				log.WithError(err).Error("periodic sweep failed")
			}
		}
	}
}
