// Package logging configures logrus and error reporting for the server.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/getsentry/raven-go"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/soaringjerry/tsa-checkout/internal/config"
)

// Setup applies level, format and output to the standard logrus logger. The
// returned closer releases the log file, if any.
func Setup(cfg config.LogConfig) (io.Closer, error) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("TSA_LOG_LEVEL: %w", err)
	}
	log.SetLevel(level)
	if cfg.JSON {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	if cfg.File == "" {
		log.SetOutput(os.Stderr)
		return io.NopCloser(nil), nil
	}
	rotator := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    50, // megabytes
		MaxBackups: 5,
		MaxAge:     28, // days
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, rotator))
	return rotator, nil
}

// SetupSentry points raven at dsn. With an empty dsn reporting stays disabled.
func SetupSentry(cfg config.SentryConfig, release string) error {
	if !cfg.Active() {
		return nil
	}
	if err := raven.SetDSN(cfg.DSN); err != nil {
		return fmt.Errorf("SENTRY_DSN: %w", err)
	}
	if release != "" {
		raven.SetRelease(release)
	}
	log.Info("sentry error reporting enabled")
	return nil
}

// Report sends err to Sentry when configured. It matches services.ErrorReporter.
func Report(err error, tags map[string]string) {
	if err == nil || raven.ProjectID() == "" {
		return
	}
	raven.CaptureError(err, tags)
}
