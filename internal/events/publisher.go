package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/UkralStul/forum-service/internal/domain"
	"github.com/UkralStul/forum-service/internal/logger"

	"cloud.google.com/go/pubsub"
	"github.com/gammazero/workerpool"
	"github.com/sirupsen/logrus"
)

// Publisher публикует события в топик Pub/Sub, не дожидаясь подтверждения брокера.
// Подтверждения ждут воркеры пула, ошибки только логируются.
type Publisher struct {
	topic      *pubsub.Topic
	pool       *workerpool.WorkerPool
	ackTimeout time.Duration

	mu     sync.RWMutex
	closed bool
}

// NewPublisher включает упорядочивание на топике: события одного комментария приходят по порядку.
func NewPublisher(topic *pubsub.Topic, workers int, ackTimeout time.Duration) *Publisher {
	topic.EnableMessageOrdering = true
	if workers < 1 {
		workers = 1
	}
	return &Publisher{
		topic:      topic,
		pool:       workerpool.New(workers),
		ackTimeout: ackTimeout,
	}
}

// PublishCommentCreated ставит событие в очередь на отправку и сразу возвращается.
func (p *Publisher) PublishCommentCreated(ctx context.Context, evt domain.CommentCreatedEvent) {
	fields := logrus.Fields{
		"comment_id": evt.CommentID,
		"topic_id":   evt.TopicID,
	}

	msg, err := EncodeCommentCreated(evt)
	if err != nil {
		logger.ReportError(ctx, err, fields)
		return
	}
	fields["event_id"] = msg.Attributes[AttrEventID]
	log := logger.For(ctx).WithFields(fields)

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		log.Warn("publisher closed, comment created event dropped")
		return
	}

	// Контекст запроса завершится раньше подтверждения брокера.
	res := p.topic.Publish(context.Background(), msg)
	p.pool.Submit(func() {
		ackCtx, cancel := context.WithTimeout(context.Background(), p.ackTimeout)
		defer cancel()

		serverID, err := res.Get(ackCtx)
		if err != nil {
			p.topic.ResumePublish(msg.OrderingKey)
			logger.ReportError(ctx, fmt.Errorf("publish comment created event: %w", err), fields)
			return
		}
		log.WithField("message_id", serverID).Debug("comment created event published")
	})
}

// Close дожидается отправки накопленных сообщений и останавливает пул.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.topic.Stop()
	p.pool.StopWait()
}

// EnsureTopic возвращает топик, создавая его при отсутствии.
func EnsureTopic(ctx context.Context, client *pubsub.Client, id string) (*pubsub.Topic, error) {
	topic := client.Topic(id)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check topic %s: %w", id, err)
	}
	if exists {
		return topic, nil
	}
	topic, err = client.CreateTopic(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("create topic %s: %w", id, err)
	}
	return topic, nil
}

// EnsureSubscription возвращает подписку с упорядочиванием, создавая ее при отсутствии.
func EnsureSubscription(ctx context.Context, client *pubsub.Client, topic *pubsub.Topic, id string) (*pubsub.Subscription, error) {
	sub := client.Subscription(id)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check subscription %s: %w", id, err)
	}
	if exists {
		return sub, nil
	}
	sub, err = client.CreateSubscription(ctx, id, pubsub.SubscriptionConfig{
		Topic:                 topic,
		AckDeadline:           30 * time.Second,
		EnableMessageOrdering: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create subscription %s: %w", id, err)
	}
	return sub, nil
}
