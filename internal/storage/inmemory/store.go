package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/UkralStul/forum-service/internal/domain"
)

type voteKey struct {
	userID  int64
	topicID int64
}

// Store реализует интерфейс Storage в памяти.
type Store struct {
	mu              sync.RWMutex
	topics          map[int64]*domain.Topic
	comments        map[int64]*domain.Comment
	commentsByTopic map[int64][]int64 // map[topicID][]commentID
	votes           map[voteKey]*domain.Vote

	lastTopicID   int64
	lastCommentID int64
	lastVoteID    int64
}

// New создает новый экземпляр in-memory хранилища.
func New() *Store {
	return &Store{
		topics:          make(map[int64]*domain.Topic),
		comments:        make(map[int64]*domain.Comment),
		commentsByTopic: make(map[int64][]int64),
		votes:           make(map[voteKey]*domain.Vote),
	}
}

// === Topic Methods ===

func (s *Store) CreateTopic(ctx context.Context, topic *domain.Topic) (*domain.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastTopicID++
	stored := *topic
	stored.ID = s.lastTopicID
	stored.CreatedAt = time.Now().UTC()
	s.topics[stored.ID] = &stored

	out := stored
	return &out, nil
}

func (s *Store) GetTopicByID(ctx context.Context, id int64) (*domain.Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	topic, ok := s.topics[id]
	if !ok {
		return nil, fmt.Errorf("topic %d: %w", id, domain.ErrNotFound)
	}
	out := *topic
	return &out, nil
}

func (s *Store) GetTopics(ctx context.Context) ([]*domain.Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	topics := make([]*domain.Topic, 0, len(s.topics))
	for _, t := range s.topics {
		out := *t
		topics = append(topics, &out)
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i].ID < topics[j].ID })
	return topics, nil
}

func (s *Store) DeleteTopic(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.topics[id]; !ok {
		return fmt.Errorf("topic %d: %w", id, domain.ErrNotFound)
	}
	for _, commentID := range s.commentsByTopic[id] {
		delete(s.comments, commentID)
	}
	delete(s.commentsByTopic, id)
	for key := range s.votes {
		if key.topicID == id {
			delete(s.votes, key)
		}
	}
	delete(s.topics, id)
	return nil
}

// === Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.topics[comment.TopicID]; !ok {
		return nil, fmt.Errorf("topic %d: %w", comment.TopicID, domain.ErrNotFound)
	}

	s.lastCommentID++
	stored := *comment
	stored.ID = s.lastCommentID
	stored.CreatedAt = time.Now().UTC()
	s.comments[stored.ID] = &stored
	s.commentsByTopic[stored.TopicID] = append(s.commentsByTopic[stored.TopicID], stored.ID)

	out := stored
	return &out, nil
}

func (s *Store) GetCommentByID(ctx context.Context, id int64) (*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	comment, ok := s.comments[id]
	if !ok {
		return nil, fmt.Errorf("comment %d: %w", id, domain.ErrNotFound)
	}
	out := *comment
	return &out, nil
}

func (s *Store) GetCommentsByTopicID(ctx context.Context, topicID int64) ([]*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.commentsByTopic[topicID]
	comments := make([]*domain.Comment, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.comments[id]; ok {
			out := *c
			comments = append(comments, &out)
		}
	}
	return comments, nil
}

func (s *Store) DeleteComment(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	comment, ok := s.comments[id]
	if !ok {
		return fmt.Errorf("comment %d: %w", id, domain.ErrNotFound)
	}
	ids := s.commentsByTopic[comment.TopicID]
	for i, cID := range ids {
		if cID == id {
			s.commentsByTopic[comment.TopicID] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	delete(s.comments, id)
	return nil
}

// === Vote Methods ===

// CastVote выполняет проверку и запись под одной блокировкой, что соответствует транзакции в Postgres.
func (s *Store) CastVote(ctx context.Context, topicID, userID int64, value int) (domain.VoteOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.topics[topicID]; !ok {
		return "", fmt.Errorf("topic %d: %w", topicID, domain.ErrNotFound)
	}

	key := voteKey{userID: userID, topicID: topicID}
	existing, ok := s.votes[key]
	switch {
	case !ok:
		s.lastVoteID++
		s.votes[key] = &domain.Vote{
			ID:        s.lastVoteID,
			TopicID:   topicID,
			UserID:    userID,
			Value:     value,
			CreatedAt: time.Now().UTC(),
		}
		return domain.VoteCreated, nil
	case existing.Value == value:
		return domain.VoteUnchanged, nil
	default:
		existing.Value = value
		return domain.VoteChanged, nil
	}
}

func (s *Store) GetVotesByTopicID(ctx context.Context, topicID int64) ([]*domain.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	votes := make([]*domain.Vote, 0)
	for key, v := range s.votes {
		if key.topicID == topicID {
			out := *v
			votes = append(votes, &out)
		}
	}
	sort.Slice(votes, func(i, j int) bool { return votes[i].ID < votes[j].ID })
	return votes, nil
}
