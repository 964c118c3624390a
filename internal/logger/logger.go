package logger

import (
	"context"
	"os"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// Init настраивает стандартный логгер logrus.
// Вне локального окружения пишем JSON, чтобы логи читались сборщиком.
func Init(level string, jsonFormat bool) {
	logrus.SetOutput(os.Stdout)
	if jsonFormat {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.WithField("level", level).Warn("unknown log level, falling back to info")
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}

// For возвращает запись логгера с request id, если он есть в контексте.
func For(ctx context.Context) *logrus.Entry {
	entry := logrus.NewEntry(logrus.StandardLogger())
	if ctx == nil {
		return entry
	}
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		entry = entry.WithField("request_id", reqID)
	}
	return entry
}

// ReportError логирует ошибку, которую вызывающий код намеренно проглатывает,
// и отправляет ее в Sentry. Без SENTRY_DSN отправка ничего не делает.
func ReportError(ctx context.Context, err error, fields logrus.Fields) {
	For(ctx).WithFields(fields).WithError(err).Error("background operation failed")

	hub := sentry.CurrentHub()
	if ctx != nil {
		if h := sentry.GetHubFromContext(ctx); h != nil {
			hub = h
		}
	}
	hub.WithScope(func(scope *sentry.Scope) {
		if len(fields) > 0 {
			scope.SetContext("details", sentry.Context(fields))
		}
		hub.CaptureException(err)
	})
}

// InitSentry инициализирует клиент Sentry. Пустой dsn отключает отправку.
func InitSentry(dsn, env, release string) error {
	if dsn == "" {
		return nil
	}
	return sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: env,
		Release:     release,
	})
}
