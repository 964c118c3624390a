package domain

import "time"

// CommentCreatedEvent публикуется один раз на каждый успешно созданный комментарий.
// После передачи издателю событие не изменяется.
type CommentCreatedEvent struct {
	CommentID      int64     `json:"commentId"`
	TopicID        int64     `json:"topicId"`
	CommenterID    int64     `json:"commenterId"`
	CommenterEmail string    `json:"commenterEmail"`
	CommenterName  string    `json:"commenterName"`
	TopicTitle     string    `json:"topicTitle"`
	CommentBody    string    `json:"commentBody"`
	CreatedAt      time.Time `json:"createdAt"`

	TopicCreatorID    int64   `json:"topicCreatorId"`
	TopicCreatorEmail *string `json:"topicCreatorEmail,omitempty"`

	ParentCommentID           *int64  `json:"parentCommentId,omitempty"`
	ParentCommentCreatorID    *int64  `json:"parentCommentCreatorId,omitempty"`
	ParentCommentCreatorEmail *string `json:"parentCommentCreatorEmail,omitempty"`
}
