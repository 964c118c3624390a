package forum

import (
	"context"
	"errors"
	"fmt"

	"github.com/UkralStul/forum-service/internal/dataloader"
	"github.com/UkralStul/forum-service/internal/domain"
	"github.com/UkralStul/forum-service/internal/identity"
	"github.com/UkralStul/forum-service/internal/logger"
	"github.com/UkralStul/forum-service/internal/storage"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

const errUnknownUser = "referenced user does not exist"

// UserResolver ищет пользователей в сервисе идентификации.
type UserResolver interface {
	LookupUser(ctx context.Context, id int64) identity.Resolution
}

// EventPublisher отправляет события о новых комментариях. Вызов не блокирует и не возвращает ошибок.
type EventPublisher interface {
	PublishCommentCreated(ctx context.Context, evt domain.CommentCreatedEvent)
}

type CreateTopicInput struct {
	UserID int64  `json:"userId"`
	Title  string `json:"title" validate:"required,max=255"`
	Body   string `json:"body" validate:"required"`
}

type AddCommentInput struct {
	TopicID         int64  `json:"-"`
	ParentCommentID *int64 `json:"parentCommentId,omitempty"`
	UserID          int64  `json:"userId"`
	Body            string `json:"body" validate:"required"`
}

type VoteInput struct {
	TopicID int64 `json:"-"`
	UserID  int64 `json:"userId"`
	Value   int   `json:"value" validate:"oneof=-1 1"`
}

// Service связывает хранилище, сервис пользователей и публикацию событий.
type Service struct {
	store    storage.Storage
	users    UserResolver
	events   EventPublisher
	validate *validator.Validate
}

func NewService(store storage.Storage, users UserResolver, events EventPublisher) *Service {
	return &Service{
		store:    store,
		users:    users,
		events:   events,
		validate: validator.New(),
	}
}

func (s *Service) validateInput(in interface{}) error {
	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return domain.NewValidationError(fmt.Sprintf("field %s failed on %s", f.Field(), f.Tag()))
		}
		return domain.NewValidationError(err.Error())
	}
	return nil
}

// requireUser возвращает пользователя или ValidationError. Сбой сервиса пользователей тоже считается ошибкой валидации.
func (s *Service) requireUser(ctx context.Context, id int64) (*domain.User, error) {
	res := s.users.LookupUser(ctx, id)
	if !res.Found() {
		logger.For(ctx).WithFields(logrus.Fields{
			"user_id": id,
			"status":  res.Status.String(),
		}).Info("rejecting write for unresolved user")
		return nil, domain.NewValidationError(errUnknownUser)
	}
	return res.User, nil
}

func (s *Service) CreateTopic(ctx context.Context, in CreateTopicInput) (*domain.Topic, error) {
	if err := s.validateInput(in); err != nil {
		return nil, err
	}
	if _, err := s.requireUser(ctx, in.UserID); err != nil {
		return nil, err
	}

	topic, err := s.store.CreateTopic(ctx, &domain.Topic{
		AuthorID: in.UserID,
		Title:    in.Title,
		Body:     in.Body,
	})
	if err != nil {
		return nil, fmt.Errorf("create topic: %w", err)
	}
	return topic, nil
}

// AddComment сохраняет комментарий и публикует CommentCreatedEvent.
// Ошибки обогащения события и публикации на результат не влияют.
func (s *Service) AddComment(ctx context.Context, in AddCommentInput) (*domain.Comment, error) {
	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	topic, err := s.store.GetTopicByID(ctx, in.TopicID)
	if err != nil {
		return nil, err
	}
	commenter, err := s.requireUser(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	comment, err := s.store.CreateComment(ctx, &domain.Comment{
		TopicID:         topic.ID,
		ParentCommentID: in.ParentCommentID,
		AuthorID:        in.UserID,
		Body:            in.Body,
	})
	if err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}

	s.events.PublishCommentCreated(ctx, s.buildCommentEvent(ctx, topic, comment, commenter))
	return comment, nil
}

func (s *Service) buildCommentEvent(ctx context.Context, topic *domain.Topic, comment *domain.Comment, commenter *domain.User) domain.CommentCreatedEvent {
	evt := domain.CommentCreatedEvent{
		CommentID:       comment.ID,
		TopicID:         topic.ID,
		CommenterID:     commenter.ID,
		CommenterEmail:  commenter.Email,
		CommenterName:   commenter.Name,
		TopicTitle:      topic.Title,
		CommentBody:     comment.Body,
		CreatedAt:       comment.CreatedAt,
		TopicCreatorID:  topic.AuthorID,
		ParentCommentID: comment.ParentCommentID,
	}

	if res := s.users.LookupUser(ctx, topic.AuthorID); res.Found() {
		evt.TopicCreatorEmail = nonEmpty(res.User.Email)
	}

	if comment.ParentCommentID == nil {
		return evt
	}
	parent, err := s.store.GetCommentByID(ctx, *comment.ParentCommentID)
	if err != nil {
		logger.For(ctx).WithError(err).WithField("parent_comment_id", *comment.ParentCommentID).
			Warn("parent comment not loaded, reply notification skipped")
		return evt
	}
	if parent.TopicID != topic.ID {
		logger.For(ctx).WithFields(logrus.Fields{
			"parent_comment_id": parent.ID,
			"parent_topic_id":   parent.TopicID,
			"topic_id":          topic.ID,
		}).Warn("parent comment belongs to another topic, reply notification skipped")
		return evt
	}
	parentAuthor := parent.AuthorID
	evt.ParentCommentCreatorID = &parentAuthor
	if res := s.users.LookupUser(ctx, parent.AuthorID); res.Found() {
		evt.ParentCommentCreatorEmail = nonEmpty(res.User.Email)
	}
	return evt
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Vote ставит или меняет голос пользователя. Повтор того же значения ничего не меняет.
func (s *Service) Vote(ctx context.Context, in VoteInput) (domain.VoteOutcome, error) {
	if err := s.validateInput(in); err != nil {
		return "", err
	}
	if _, err := s.requireUser(ctx, in.UserID); err != nil {
		return "", err
	}

	outcome, err := s.store.CastVote(ctx, in.TopicID, in.UserID, in.Value)
	if err != nil {
		return "", err
	}
	logger.For(ctx).WithFields(logrus.Fields{
		"topic_id": in.TopicID,
		"user_id":  in.UserID,
		"outcome":  outcome,
	}).Debug("vote cast")
	return outcome, nil
}

func creator(res identity.Resolution) *domain.User {
	if res.Found() {
		return res.User
	}
	return nil
}

func (s *Service) GetTopicWithUser(ctx context.Context, id int64) (*domain.TopicWithUser, error) {
	topic, err := s.store.GetTopicByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &domain.TopicWithUser{Topic: topic, Creator: creator(s.users.LookupUser(ctx, topic.AuthorID))}, nil
}

func (s *Service) GetAllTopicsWithUser(ctx context.Context) ([]*domain.TopicWithUser, error) {
	topics, err := s.store.GetTopics(ctx)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}

	loaders := s.loadersFor(ctx)
	thunks := make([]func() identity.Resolution, len(topics))
	for i, t := range topics {
		thunks[i] = loaders.LoadUser(ctx, t.AuthorID)
	}

	result := make([]*domain.TopicWithUser, len(topics))
	for i, t := range topics {
		result[i] = &domain.TopicWithUser{Topic: t, Creator: creator(thunks[i]())}
	}
	return result, nil
}

// GetCommentWithUser возвращает комментарий темы. Комментарий другой темы считается отсутствующим.
func (s *Service) GetCommentWithUser(ctx context.Context, topicID, commentID int64) (*domain.CommentWithUser, error) {
	comment, err := s.topicComment(ctx, topicID, commentID)
	if err != nil {
		return nil, err
	}
	return &domain.CommentWithUser{Comment: comment, Creator: creator(s.users.LookupUser(ctx, comment.AuthorID))}, nil
}

func (s *Service) GetCommentsWithUser(ctx context.Context, topicID int64) ([]*domain.CommentWithUser, error) {
	if _, err := s.store.GetTopicByID(ctx, topicID); err != nil {
		return nil, err
	}
	comments, err := s.store.GetCommentsByTopicID(ctx, topicID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}

	loaders := s.loadersFor(ctx)
	thunks := make([]func() identity.Resolution, len(comments))
	for i, c := range comments {
		thunks[i] = loaders.LoadUser(ctx, c.AuthorID)
	}

	result := make([]*domain.CommentWithUser, len(comments))
	for i, c := range comments {
		result[i] = &domain.CommentWithUser{Comment: c, Creator: creator(thunks[i]())}
	}
	return result, nil
}

// loadersFor берет лоадеры из контекста запроса, а вне HTTP создает свои.
func (s *Service) loadersFor(ctx context.Context) *dataloader.Loaders {
	if l := dataloader.For(ctx); l != nil {
		return l
	}
	return dataloader.NewLoaders(s.users)
}

func (s *Service) DeleteTopic(ctx context.Context, id int64) error {
	return s.store.DeleteTopic(ctx, id)
}

func (s *Service) DeleteComment(ctx context.Context, topicID, commentID int64) error {
	if _, err := s.topicComment(ctx, topicID, commentID); err != nil {
		return err
	}
	return s.store.DeleteComment(ctx, commentID)
}

func (s *Service) topicComment(ctx context.Context, topicID, commentID int64) (*domain.Comment, error) {
	comment, err := s.store.GetCommentByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.TopicID != topicID {
		return nil, fmt.Errorf("comment %d in topic %d: %w", commentID, topicID, domain.ErrNotFound)
	}
	return comment, nil
}
