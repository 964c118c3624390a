package notification

import "github.com/UkralStul/forum-service/internal/domain"

// Kind - причина уведомления.
type Kind int

const (
	KindTopicComment Kind = iota
	KindCommentReply
)

func (k Kind) String() string {
	if k == KindCommentReply {
		return "comment_reply"
	}
	return "topic_comment"
}

// Notification - одно письмо, которое нужно отправить по событию.
type Notification struct {
	Recipient string
	Kind      Kind
}

// Targets вычисляет получателей (не больше двух) для события о новом комментарии.
// Автор комментария никогда не получает письмо о себе, автор темы не получает два письма.
func Targets(evt domain.CommentCreatedEvent) []Notification {
	var out []Notification

	if evt.CommenterID != evt.TopicCreatorID && evt.TopicCreatorEmail != nil && *evt.TopicCreatorEmail != "" {
		out = append(out, Notification{Recipient: *evt.TopicCreatorEmail, Kind: KindTopicComment})
	}

	if evt.ParentCommentID == nil || evt.ParentCommentCreatorID == nil {
		return out
	}
	if evt.ParentCommentCreatorEmail == nil || *evt.ParentCommentCreatorEmail == "" {
		return out
	}
	parentCreator := *evt.ParentCommentCreatorID
	if parentCreator == evt.CommenterID || parentCreator == evt.TopicCreatorID {
		return out
	}
	return append(out, Notification{Recipient: *evt.ParentCommentCreatorEmail, Kind: KindCommentReply})
}
