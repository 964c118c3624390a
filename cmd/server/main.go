package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UkralStul/forum-service/internal/api"
	"github.com/UkralStul/forum-service/internal/config"
	"github.com/UkralStul/forum-service/internal/domain"
	"github.com/UkralStul/forum-service/internal/events"
	"github.com/UkralStul/forum-service/internal/forum"
	"github.com/UkralStul/forum-service/internal/identity"
	"github.com/UkralStul/forum-service/internal/logger"
	"github.com/UkralStul/forum-service/internal/storage"
	"github.com/UkralStul/forum-service/internal/storage/inmemory"
	"github.com/UkralStul/forum-service/internal/storage/postgres"

	"cloud.google.com/go/pubsub"
	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.Load()

	storageType := flag.String("storage", cfg.Storage, "Storage type (in-memory or postgres)")
	flag.Parse()

	logger.Init(cfg.LogLevel, !cfg.IsLocal())
	if err := logger.InitSentry(cfg.SentryDSN, cfg.Env, cfg.Version); err != nil {
		logrus.WithError(err).Warn("sentry disabled")
	}
	defer sentry.Flush(2 * time.Second)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store storage.Storage
	logrus.Infof("Starting server with %s storage", *storageType)
	if *storageType == "postgres" {
		if cfg.DatabaseURL == "" {
			logrus.Fatal("DATABASE_URL must be set for postgres storage")
		}
		pg, err := postgres.New(cfg.DatabaseURL, cfg.LogLevel == "debug")
		if err != nil {
			logrus.WithError(err).Fatal("failed to connect to postgres")
		}
		defer pg.Close()
		store = pg
	} else {
		store = inmemory.New()
		if cfg.IsLocal() {
			// Заполним данными для ручной проверки
			fillWithMockData(store)
		}
	}

	conn, err := identity.Dial(cfg.IdentityAddr)
	if err != nil {
		logrus.WithError(err).Fatal("failed to dial identity service")
	}
	defer conn.Close()
	users := identity.NewClient(conn, cfg.IdentityTimeout)

	psClient, err := pubsub.NewClient(ctx, cfg.PubSubProject)
	if err != nil {
		logrus.WithError(err).Fatal("failed to create pubsub client")
	}
	defer psClient.Close()

	topic, err := events.EnsureTopic(ctx, psClient, cfg.CommentCreatedTopic)
	if err != nil {
		logrus.WithError(err).Fatal("failed to prepare comment created topic")
	}
	publisher := events.NewPublisher(topic, cfg.PublishWorkers, cfg.PublishAckTimeout)
	defer publisher.Close()

	svc := forum.NewService(store, users, publisher)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(svc, users),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logrus.Infof("listening on http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logrus.WithError(err).Error("server stopped with error")
		return
	}
	logrus.Info("server stopped")
}

func fillWithMockData(s storage.Storage) {
	ctx := context.Background()

	// 1. Тема от первого пользователя
	topic, err := s.CreateTopic(ctx, &domain.Topic{
		AuthorID: 1,
		Title:    "Welcome to the forum",
		Body:     "Introduce yourself in the comments.",
	})
	if err != nil {
		logrus.WithError(err).Fatal("fillWithMockData: failed to create topic")
	}

	// 2. Корневой комментарий и ответ на него
	c1, err := s.CreateComment(ctx, &domain.Comment{
		TopicID:  topic.ID,
		AuthorID: 2,
		Body:     "Hi everyone!",
	})
	if err != nil {
		logrus.WithError(err).Fatal("fillWithMockData: failed to create comment")
	}
	_, err = s.CreateComment(ctx, &domain.Comment{
		TopicID:         topic.ID,
		ParentCommentID: &c1.ID,
		AuthorID:        1,
		Body:            "Welcome aboard.",
	})
	if err != nil {
		logrus.WithError(err).Fatal("fillWithMockData: failed to create reply")
	}

	// 3. Голос за тему
	if _, err := s.CastVote(ctx, topic.ID, 2, 1); err != nil {
		logrus.WithError(err).Fatal("fillWithMockData: failed to cast vote")
	}

	logrus.WithField("topic_id", topic.ID).Info("Mock data filled successfully")
}
