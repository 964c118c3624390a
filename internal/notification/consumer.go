package notification

import (
	"context"
	"fmt"

	"github.com/UkralStul/forum-service/internal/domain"
	"github.com/UkralStul/forum-service/internal/events"
	"github.com/UkralStul/forum-service/internal/logger"

	"cloud.google.com/go/pubsub"
	"github.com/sirupsen/logrus"
)

// Consumer читает события о новых комментариях и рассылает уведомления.
// Доставка at-least-once: повторное событие может привести к повторному письму.
type Consumer struct {
	sub        *pubsub.Subscription
	dispatcher Dispatcher
}

func NewConsumer(sub *pubsub.Subscription, dispatcher Dispatcher) *Consumer {
	return &Consumer{sub: sub, dispatcher: dispatcher}
}

// Run блокируется до отмены ctx или ошибки подписки.
func (c *Consumer) Run(ctx context.Context) error {
	logrus.WithField("subscription", c.sub.ID()).Info("notification consumer started")

	err := c.sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		fields := logrus.Fields{
			"message_id": msg.ID,
			"event_id":   msg.Attributes[events.AttrEventID],
		}

		evt, err := events.DecodeCommentCreated(msg.Data)
		if err != nil {
			// Битое сообщение не исправится при повторе
			logger.ReportError(ctx, err, fields)
			msg.Ack()
			return
		}

		c.Handle(ctx, evt)
		msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("receive from %s: %w", c.sub.ID(), err)
	}
	return nil
}

// Handle отправляет письма всем получателям события. Ошибка одного получателя не мешает остальным.
// Возвращает число успешно отправленных писем.
func (c *Consumer) Handle(ctx context.Context, evt domain.CommentCreatedEvent) int {
	log := logger.For(ctx).WithFields(logrus.Fields{
		"comment_id":   evt.CommentID,
		"topic_id":     evt.TopicID,
		"commenter_id": evt.CommenterID,
	})

	targets := Targets(evt)
	if len(targets) == 0 {
		log.Debug("no recipients for comment")
		return 0
	}

	sent := 0
	for _, n := range targets {
		fields := logrus.Fields{
			"comment_id": evt.CommentID,
			"recipient":  n.Recipient,
			"kind":       n.Kind.String(),
		}

		msg, err := Render(evt, n.Kind)
		if err != nil {
			logger.ReportError(ctx, err, fields)
			continue
		}
		if err := c.dispatcher.Send(ctx, n.Recipient, msg); err != nil {
			logger.ReportError(ctx, fmt.Errorf("dispatch notification: %w", err), fields)
			continue
		}
		sent++
		log.WithFields(fields).Info("notification sent")
	}
	return sent
}
