package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UkralStul/forum-service/internal/config"
	"github.com/UkralStul/forum-service/internal/events"
	"github.com/UkralStul/forum-service/internal/logger"
	"github.com/UkralStul/forum-service/internal/notification"

	"cloud.google.com/go/pubsub"
	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()

	logger.Init(cfg.LogLevel, !cfg.IsLocal())
	if err := logger.InitSentry(cfg.SentryDSN, cfg.Env, cfg.Version); err != nil {
		logrus.WithError(err).Warn("sentry disabled")
	}
	defer sentry.Flush(2 * time.Second)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := pubsub.NewClient(ctx, cfg.PubSubProject)
	if err != nil {
		logrus.WithError(err).Fatal("failed to create pubsub client")
	}
	defer client.Close()

	topic, err := events.EnsureTopic(ctx, client, cfg.CommentCreatedTopic)
	if err != nil {
		logrus.WithError(err).Fatal("failed to prepare comment created topic")
	}
	sub, err := events.EnsureSubscription(ctx, client, topic, cfg.NotifierSub)
	if err != nil {
		logrus.WithError(err).Fatal("failed to prepare notifier subscription")
	}
	sub.ReceiveSettings.MaxOutstandingMessages = cfg.MaxOutstanding

	var dispatcher notification.Dispatcher
	if cfg.SendGridAPIKey == "" {
		logrus.Warn("SENDGRID_API_KEY is empty, emails will only be logged")
		dispatcher = notification.LogMailer{}
	} else {
		dispatcher = notification.NewSendGridMailer(cfg.SendGridAPIKey, cfg.MailFrom, cfg.MailFromName)
	}

	if err := notification.NewConsumer(sub, dispatcher).Run(ctx); err != nil {
		logrus.WithError(err).Error("notifier stopped with error")
		return
	}
	logrus.Info("notifier stopped")
}
