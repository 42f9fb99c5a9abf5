package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/soaringjerry/tsa-checkout/internal/api"
	"github.com/soaringjerry/tsa-checkout/internal/config"
	"github.com/soaringjerry/tsa-checkout/internal/logging"
	"github.com/soaringjerry/tsa-checkout/internal/middleware"
	"github.com/soaringjerry/tsa-checkout/internal/services"
	"github.com/soaringjerry/tsa-checkout/internal/utils"
)

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the questionnaire web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides TSA_ADDR)")
	return cmd
}

func runServe(ctx context.Context, addr string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Addr = addr
	}
	logCloser, err := logging.Setup(cfg.Log)
	if err != nil {
		return err
	}
	defer logCloser.Close()
	if err := logging.SetupSentry(cfg.Sentry, release(cfg)); err != nil {
		return err
	}

	payments, err := newPaymentClient(cfg)
	if err != nil {
		return err
	}
	svc, storeCloser, err := newCheckout(cfg, payments)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := storeCloser.Close(); cerr != nil {
			log.WithError(cerr).Warn("failed to close answer store")
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// one sweep at startup clears whatever a previous run left behind
	if _, err := svc.Sweep(ctx); err != nil {
		log.WithError(err).Warn("startup sweep failed")
	}
	go svc.RunSweeper(ctx, cfg.SweepInterval)

	srv := &http.Server{Addr: cfg.Addr, Handler: newHandler(cfg, svc)}
	errCh := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{"addr": cfg.Addr, "store": cfg.Store, "commit": cfg.Commit}).Info("tsa server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownWindow)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newHandler(cfg *config.Config, svc *services.CheckoutService) http.Handler {
	catalog := svc.Catalog()
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.NoStore)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.Locale(catalog.Locales(), catalog.DefaultLocale()))

	api.NewRouter(svc, api.Options{
		SecureCookies: strings.HasPrefix(cfg.BaseURL, "https://"),
		CookieTTL:     cfg.SubmissionTTL,
	}).Register(r)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		locale := middleware.LocaleFromContext(r.Context())
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":         true,
			"name":       "TSA Checkout",
			"locale":     locale,
			"msg":        utils.T(locale, "health.ok"),
			"commit":     cfg.Commit,
			"build_time": cfg.BuildTime,
		})
	})
	r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"commit":     cfg.Commit,
			"build_time": cfg.BuildTime,
		})
	})

	if cfg.StaticDir != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDir))))
	}
	return r
}
