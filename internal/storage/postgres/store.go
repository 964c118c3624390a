package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/UkralStul/forum-service/internal/domain"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Store реализует интерфейс Storage с использованием PostgreSQL.
type Store struct {
	db *gorm.DB
}

// New создает новый экземпляр хранилища PostgreSQL.
func New(dsn string, debug bool) (*Store, error) {
	level := logger.Warn
	if debug {
		level = logger.Info // Включаем логирование SQL для отладки
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Выполняем миграцию схемы. Уникальный индекс topic_votes(user_id, topic_id) создается здесь же.
	if err := db.AutoMigrate(&domain.Topic{}, &domain.Comment{}, &domain.Vote{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close закрывает пул соединений.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(entity string, id int64, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %d: %w", entity, id, domain.ErrNotFound)
	}
	return fmt.Errorf("load %s %d: %w", entity, id, err)
}

// === Topic Methods ===

func (s *Store) CreateTopic(ctx context.Context, topic *domain.Topic) (*domain.Topic, error) {
	if err := s.db.WithContext(ctx).Create(topic).Error; err != nil {
		return nil, fmt.Errorf("create topic: %w", err)
	}
	// GORM заполнит ID и CreatedAt после создания
	return topic, nil
}

func (s *Store) GetTopicByID(ctx context.Context, id int64) (*domain.Topic, error) {
	var topic domain.Topic
	if err := s.db.WithContext(ctx).First(&topic, "id = ?", id).Error; err != nil {
		return nil, notFound("topic", id, err)
	}
	return &topic, nil
}

func (s *Store) GetTopics(ctx context.Context) ([]*domain.Topic, error) {
	var topics []*domain.Topic
	err := s.db.WithContext(ctx).Order("id ASC").Find(&topics).Error
	return topics, err
}

func (s *Store) DeleteTopic(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&domain.Topic{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("topic %d: %w", id, domain.ErrNotFound)
		}
		if err := tx.Where("topic_id = ?", id).Delete(&domain.Comment{}).Error; err != nil {
			return err
		}
		return tx.Where("topic_id = ?", id).Delete(&domain.Vote{}).Error
	})
}

// === Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	// Проверяем существование темы и создаем комментарий в одной транзакции
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var topic domain.Topic
		if err := tx.Select("id").First(&topic, "id = ?", comment.TopicID).Error; err != nil {
			return notFound("topic", comment.TopicID, err)
		}
		return tx.Create(comment).Error
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *Store) GetCommentByID(ctx context.Context, id int64) (*domain.Comment, error) {
	var comment domain.Comment
	if err := s.db.WithContext(ctx).First(&comment, "id = ?", id).Error; err != nil {
		return nil, notFound("comment", id, err)
	}
	return &comment, nil
}

func (s *Store) GetCommentsByTopicID(ctx context.Context, topicID int64) ([]*domain.Comment, error) {
	var comments []*domain.Comment
	err := s.db.WithContext(ctx).
		Where("topic_id = ?", topicID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	return comments, err
}

func (s *Store) DeleteComment(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&domain.Comment{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("comment %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// === Vote Methods ===

// CastVote выполняет проверку темы, чтение текущего голоса и запись в одной транзакции.
// Строка голоса блокируется FOR UPDATE; если параллельная транзакция успела вставить
// голос первой, ON CONFLICT по (user_id, topic_id) превращает вставку в обновление.
func (s *Store) CastVote(ctx context.Context, topicID, userID int64, value int) (domain.VoteOutcome, error) {
	var outcome domain.VoteOutcome
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var topic domain.Topic
		if err := tx.Select("id").First(&topic, "id = ?", topicID).Error; err != nil {
			return notFound("topic", topicID, err)
		}

		var existing domain.Vote
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND topic_id = ?", userID, topicID).
			Take(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			outcome, err = upsertVote(tx, topicID, userID, value)
			return err
		case err != nil:
			return fmt.Errorf("load vote: %w", err)
		case existing.Value == value:
			outcome = domain.VoteUnchanged
			return nil
		default:
			outcome = domain.VoteChanged
			return tx.Model(&existing).Update("value", value).Error
		}
	})
	if err != nil {
		return "", err
	}
	return outcome, nil
}

// upsertVoteSQL вставляет голос. Если параллельная транзакция уже вставила строку,
// значение обновляется только при отличии. Пустой результат означает, что голос не изменился.
const upsertVoteSQL = `INSERT INTO topic_votes (topic_id, user_id, value, created_at)
VALUES (?, ?, ?, NOW())
ON CONFLICT (user_id, topic_id) DO UPDATE SET value = EXCLUDED.value
WHERE topic_votes.value <> EXCLUDED.value
RETURNING (xmax = 0) AS inserted`

func upsertVote(tx *gorm.DB, topicID, userID int64, value int) (domain.VoteOutcome, error) {
	var rows []struct{ Inserted bool }
	if err := tx.Raw(upsertVoteSQL, topicID, userID, value).Scan(&rows).Error; err != nil {
		return "", fmt.Errorf("upsert vote: %w", err)
	}
	switch {
	case len(rows) == 0:
		return domain.VoteUnchanged, nil
	case rows[0].Inserted:
		return domain.VoteCreated, nil
	default:
		return domain.VoteChanged, nil
	}
}

func (s *Store) GetVotesByTopicID(ctx context.Context, topicID int64) ([]*domain.Vote, error) {
	var votes []*domain.Vote
	err := s.db.WithContext(ctx).Where("topic_id = ?", topicID).Order("id ASC").Find(&votes).Error
	return votes, err
}
