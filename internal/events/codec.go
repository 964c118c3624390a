package events

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/UkralStul/forum-service/internal/domain"

	"cloud.google.com/go/pubsub"
	"github.com/google/uuid"
)

const (
	EventTypeCommentCreated = "comment.created"

	AttrEventID   = "event_id"
	AttrEventType = "event_type"
)

// EncodeCommentCreated собирает сообщение для брокера.
// Ключ упорядочивания - id комментария в десятичной записи.
func EncodeCommentCreated(evt domain.CommentCreatedEvent) (*pubsub.Message, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("marshal comment created event: %w", err)
	}
	return &pubsub.Message{
		Data:        data,
		OrderingKey: strconv.FormatInt(evt.CommentID, 10),
		Attributes: map[string]string{
			AttrEventID:   uuid.NewString(),
			AttrEventType: EventTypeCommentCreated,
		},
	}, nil
}

// DecodeCommentCreated разбирает тело сообщения.
func DecodeCommentCreated(data []byte) (domain.CommentCreatedEvent, error) {
	var evt domain.CommentCreatedEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return evt, fmt.Errorf("unmarshal comment created event: %w", err)
	}
	if evt.CommentID == 0 {
		return evt, fmt.Errorf("unmarshal comment created event: missing commentId")
	}
	return evt, nil
}
