package storage

import (
	"context"

	"github.com/UkralStul/forum-service/internal/domain"
)

// Storage определяет контракт для хранилищ.
// Отсутствующие сущности возвращаются как ошибка, обернутая вокруг domain.ErrNotFound.
type Storage interface {
	CreateTopic(ctx context.Context, topic *domain.Topic) (*domain.Topic, error)
	GetTopicByID(ctx context.Context, id int64) (*domain.Topic, error)
	GetTopics(ctx context.Context) ([]*domain.Topic, error)
	// DeleteTopic удаляет тему вместе с ее комментариями и голосами.
	DeleteTopic(ctx context.Context, id int64) error

	CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error)
	GetCommentByID(ctx context.Context, id int64) (*domain.Comment, error)
	GetCommentsByTopicID(ctx context.Context, topicID int64) ([]*domain.Comment, error)
	DeleteComment(ctx context.Context, id int64) error

	// CastVote атомарно проверяет тему и вставляет, меняет или оставляет голос как есть.
	CastVote(ctx context.Context, topicID, userID int64, value int) (domain.VoteOutcome, error)
	GetVotesByTopicID(ctx context.Context, topicID int64) ([]*domain.Vote, error)
}
