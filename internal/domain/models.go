package domain

import "time"

// Topic представляет тему обсуждения. После создания не меняется, только удаляется.
type Topic struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	AuthorID  int64     `json:"userId" gorm:"column:user_id;not null;index"`
	Title     string    `json:"title" gorm:"type:varchar(255);not null"`
	Body      string    `json:"body" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`
}

// Comment представляет комментарий к теме.
// ParentCommentID ссылается только на непосредственного родителя.
type Comment struct {
	ID              int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	TopicID         int64     `json:"topicId" gorm:"not null;index"`
	ParentCommentID *int64    `json:"parentCommentId,omitempty" gorm:"index"`
	AuthorID        int64     `json:"userId" gorm:"column:user_id;not null"`
	Body            string    `json:"body" gorm:"type:text;not null"`
	CreatedAt       time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`
}

// Vote - голос пользователя за тему. На пару (UserID, TopicID) не больше одной записи.
type Vote struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	TopicID   int64     `json:"topicId" gorm:"not null;uniqueIndex:ux_topic_votes_user_topic,priority:2"`
	UserID    int64     `json:"userId" gorm:"not null;uniqueIndex:ux_topic_votes_user_topic,priority:1"`
	Value     int       `json:"value" gorm:"not null"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`
}

// TableName задает имя таблицы для GORM.
func (Vote) TableName() string { return "topic_votes" }

// VoteOutcome описывает, что произошло с голосом при повторной подаче.
type VoteOutcome string

const (
	VoteCreated   VoteOutcome = "created"
	VoteChanged   VoteOutcome = "changed"
	VoteUnchanged VoteOutcome = "unchanged"
)

// User - данные пользователя из сервиса идентификации. Локально не хранятся.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedAt string `json:"createdAt"`
}

// TopicWithUser - тема вместе с автором. Creator равен nil, если автора получить не удалось.
type TopicWithUser struct {
	*Topic
	Creator *User `json:"creator"`
}

// CommentWithUser - комментарий вместе с автором.
type CommentWithUser struct {
	*Comment
	Creator *User `json:"creator"`
}
