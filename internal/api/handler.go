package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/UkralStul/forum-service/internal/dataloader"
	"github.com/UkralStul/forum-service/internal/domain"
	"github.com/UkralStul/forum-service/internal/forum"
	"github.com/UkralStul/forum-service/internal/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// ForumService - операции форума, доступные через HTTP.
type ForumService interface {
	CreateTopic(ctx context.Context, in forum.CreateTopicInput) (*domain.Topic, error)
	GetTopicWithUser(ctx context.Context, id int64) (*domain.TopicWithUser, error)
	GetAllTopicsWithUser(ctx context.Context) ([]*domain.TopicWithUser, error)
	DeleteTopic(ctx context.Context, id int64) error
	AddComment(ctx context.Context, in forum.AddCommentInput) (*domain.Comment, error)
	GetCommentWithUser(ctx context.Context, topicID, commentID int64) (*domain.CommentWithUser, error)
	GetCommentsWithUser(ctx context.Context, topicID int64) ([]*domain.CommentWithUser, error)
	DeleteComment(ctx context.Context, topicID, commentID int64) error
	Vote(ctx context.Context, in forum.VoteInput) (domain.VoteOutcome, error)
}

type Handler struct {
	svc ForumService
}

// NewRouter собирает роутер со всеми маршрутами API.
func NewRouter(svc ForumService, users dataloader.UserResolver) http.Handler {
	h := &Handler{svc: svc}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/topics", func(r chi.Router) {
		r.Use(dataloader.Middleware(users))

		r.Post("/", h.createTopic)
		r.Get("/", h.listTopics)

		r.Route("/{topicID}", func(r chi.Router) {
			r.Get("/", h.getTopic)
			r.Delete("/", h.deleteTopic)
			r.Post("/votes", h.vote)

			r.Post("/comments", h.addComment)
			r.Get("/comments", h.listComments)
			r.Get("/comments/{commentID}", h.getComment)
			r.Delete("/comments/{commentID}", h.deleteComment)
		})
	})

	return r
}

func (h *Handler) createTopic(w http.ResponseWriter, r *http.Request) {
	var in forum.CreateTopicInput
	if !decode(w, r, &in) {
		return
	}
	topic, err := h.svc.CreateTopic(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, topic)
}

func (h *Handler) listTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := h.svc.GetAllTopicsWithUser(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, topics)
}

func (h *Handler) getTopic(w http.ResponseWriter, r *http.Request) {
	topicID, ok := pathID(w, r, "topicID")
	if !ok {
		return
	}
	topic, err := h.svc.GetTopicWithUser(r.Context(), topicID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, topic)
}

func (h *Handler) deleteTopic(w http.ResponseWriter, r *http.Request) {
	topicID, ok := pathID(w, r, "topicID")
	if !ok {
		return
	}
	if err := h.svc.DeleteTopic(r.Context(), topicID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) addComment(w http.ResponseWriter, r *http.Request) {
	topicID, ok := pathID(w, r, "topicID")
	if !ok {
		return
	}
	var in forum.AddCommentInput
	if !decode(w, r, &in) {
		return
	}
	in.TopicID = topicID

	comment, err := h.svc.AddComment(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (h *Handler) listComments(w http.ResponseWriter, r *http.Request) {
	topicID, ok := pathID(w, r, "topicID")
	if !ok {
		return
	}
	comments, err := h.svc.GetCommentsWithUser(r.Context(), topicID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

func (h *Handler) getComment(w http.ResponseWriter, r *http.Request) {
	topicID, ok := pathID(w, r, "topicID")
	if !ok {
		return
	}
	commentID, ok := pathID(w, r, "commentID")
	if !ok {
		return
	}
	comment, err := h.svc.GetCommentWithUser(r.Context(), topicID, commentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

func (h *Handler) deleteComment(w http.ResponseWriter, r *http.Request) {
	topicID, ok := pathID(w, r, "topicID")
	if !ok {
		return
	}
	commentID, ok := pathID(w, r, "commentID")
	if !ok {
		return
	}
	if err := h.svc.DeleteComment(r.Context(), topicID, commentID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type voteResponse struct {
	TopicID int64              `json:"topicId"`
	UserID  int64              `json:"userId"`
	Value   int                `json:"value"`
	Outcome domain.VoteOutcome `json:"outcome"`
}

func (h *Handler) vote(w http.ResponseWriter, r *http.Request) {
	topicID, ok := pathID(w, r, "topicID")
	if !ok {
		return
	}
	var in forum.VoteInput
	if !decode(w, r, &in) {
		return
	}
	in.TopicID = topicID

	outcome, err := h.svc.Vote(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, voteResponse{TopicID: topicID, UserID: in.UserID, Value: in.Value, Outcome: outcome})
}

type errorResponse struct {
	Error string `json:"error"`
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid " + param})
		return 0, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Reason})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	default:
		logger.For(r.Context()).WithError(err).Error("request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
