package main

import (
	"errors"
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/soaringjerry/tsa-checkout/internal/config"
	dbstore "github.com/soaringjerry/tsa-checkout/internal/db"
	"github.com/soaringjerry/tsa-checkout/internal/logging"
	"github.com/soaringjerry/tsa-checkout/internal/payment"
	"github.com/soaringjerry/tsa-checkout/internal/services"
	"github.com/soaringjerry/tsa-checkout/internal/store"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openStore builds the AnswerStore selected by TSA_STORE. The closer releases
// the sqlite handle when that backend is used.
func openStore(cfg *config.Config) (services.AnswerStore, io.Closer, error) {
	switch cfg.Store {
	case config.StoreSQLite:
		s, err := dbstore.Open(cfg.SQLitePath, cfg.MigrationsDir)
		if err != nil {
			return nil, nil, err
		}
		log.WithField("path", cfg.SQLitePath).Info("using sqlite answer store")
		return s, s, nil
	case config.StoreMemory:
		log.Warn("using in-memory answer store; submissions are lost on restart")
		return store.NewMemoryStore(cfg.SubmissionTTL), nopCloser{}, nil
	default:
		s, err := store.NewFileStore(cfg.AnswerDir())
		if err != nil {
			return nil, nil, err
		}
		log.WithField("dir", cfg.AnswerDir()).Info("using file answer store")
		return s, nopCloser{}, nil
	}
}

func loadCatalog(cfg *config.Config) (*services.Catalog, error) {
	if cfg.QuestionsFile == "" {
		return services.DefaultCatalog(), nil
	}
	c, err := services.LoadCatalog(cfg.QuestionsFile)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"file": cfg.QuestionsFile, "locales": c.Locales()}).Info("loaded questionnaires")
	return c, nil
}

// newPaymentClient refuses to start without a Stripe key unless the fake
// processor was asked for explicitly.
func newPaymentClient(cfg *config.Config) (payment.Client, error) {
	if cfg.Payment == config.PaymentFake {
		log.Warn("TSA_PAYMENT=fake: checkout is simulated and every payment succeeds")
		return payment.NewFakeClient(), nil
	}
	if cfg.StripeSecretKey == "" {
		return nil, errors.New("STRIPE_SECRET_KEY is required (set TSA_PAYMENT=fake for local testing)")
	}
	return payment.NewStripeClient(cfg.StripeSecretKey), nil
}

// newCheckout wires the service. The caller owns the returned closer.
func newCheckout(cfg *config.Config, payments payment.Client) (*services.CheckoutService, io.Closer, error) {
	catalog, err := loadCatalog(cfg)
	if err != nil {
		return nil, nil, err
	}
	st, closer, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	key, stable, err := services.DeriveTokenKey(cfg.TokenSecret, cfg.StripeSecretKey)
	if err != nil {
		closer.Close()
		return nil, nil, err
	}
	if !stable {
		log.Warn("TSA_TOKEN_SECRET not set; submission links will not survive a restart")
	}
	svc := services.NewCheckoutService(st, payments, catalog, services.NewTokenCodec(key), services.CheckoutConfig{
		BaseURL:       cfg.BaseURL,
		SubmissionTTL: cfg.SubmissionTTL,
	})
	svc.WithReporter(logging.Report)
	return svc, closer, nil
}

func release(cfg *config.Config) string {
	if cfg.Commit != "" {
		return cfg.Commit
	}
	return "dev"
}
