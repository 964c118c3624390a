package forum

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/UkralStul/forum-service/internal/domain"
	"github.com/UkralStul/forum-service/internal/identity"
	"github.com/UkralStul/forum-service/internal/storage/inmemory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsers struct {
	mu      sync.Mutex
	users   map[int64]*domain.User
	broken  bool
	failing map[int64]bool
	calls   int
}

func (f *fakeUsers) LookupUser(_ context.Context, id int64) identity.Resolution {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.broken || f.failing[id] {
		return identity.Resolution{Status: identity.StatusError, Err: errors.New("connection refused")}
	}
	u, ok := f.users[id]
	if !ok {
		return identity.Resolution{Status: identity.StatusNotFound}
	}
	return identity.Resolution{Status: identity.StatusFound, User: u}
}

// failFor переводит ответы для перечисленных id в StatusError.
func (f *fakeUsers) failFor(ids ...int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing == nil {
		f.failing = map[int64]bool{}
	}
	for _, id := range ids {
		f.failing[id] = true
	}
}

func (f *fakeUsers) setBroken(v bool) {
	f.mu.Lock()
	f.broken = v
	f.mu.Unlock()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.CommentCreatedEvent
}

func (p *recordingPublisher) PublishCommentCreated(_ context.Context, evt domain.CommentCreatedEvent) {
	p.mu.Lock()
	p.events = append(p.events, evt)
	p.mu.Unlock()
}

func (p *recordingPublisher) published() []domain.CommentCreatedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.CommentCreatedEvent(nil), p.events...)
}

type fixture struct {
	svc   *Service
	store *inmemory.Store
	users *fakeUsers
	pub   *recordingPublisher
}

func newFixture() *fixture {
	users := &fakeUsers{users: map[int64]*domain.User{
		1: {ID: 1, Name: "Alice", Email: "alice@example.com"},
		2: {ID: 2, Name: "Bob", Email: "bob@example.com"},
		3: {ID: 3, Name: "Carol", Email: ""},
	}}
	store := inmemory.New()
	pub := &recordingPublisher{}
	return &fixture{
		svc:   NewService(store, users, pub),
		store: store,
		users: users,
		pub:   pub,
	}
}

func (f *fixture) topic(t *testing.T, author int64) *domain.Topic {
	t.Helper()
	topic, err := f.svc.CreateTopic(context.Background(), CreateTopicInput{UserID: author, Title: "Go generics", Body: "Thoughts?"})
	require.NoError(t, err)
	return topic
}

func TestService_CreateTopic(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	topic := f.topic(t, 1)
	assert.Equal(t, int64(1), topic.AuthorID)
	assert.NotZero(t, topic.ID)

	_, err := f.svc.CreateTopic(ctx, CreateTopicInput{UserID: 99, Title: "t", Body: "b"})
	assert.True(t, domain.IsValidation(err))

	f.users.setBroken(true)
	_, err = f.svc.CreateTopic(ctx, CreateTopicInput{UserID: 1, Title: "t", Body: "b"})
	assert.True(t, domain.IsValidation(err))

	topics, err := f.store.GetTopics(ctx)
	require.NoError(t, err)
	assert.Len(t, topics, 1)
}

func TestService_CreateTopic_InvalidInput(t *testing.T) {
	f := newFixture()

	_, err := f.svc.CreateTopic(context.Background(), CreateTopicInput{UserID: 1, Title: "", Body: "b"})
	assert.True(t, domain.IsValidation(err))
	assert.Zero(t, f.users.calls)
}

func TestService_Vote_Idempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	topic := f.topic(t, 1)

	outcome, err := f.svc.Vote(ctx, VoteInput{TopicID: topic.ID, UserID: 2, Value: 1})
	require.NoError(t, err)
	assert.Equal(t, domain.VoteCreated, outcome)

	outcome, err = f.svc.Vote(ctx, VoteInput{TopicID: topic.ID, UserID: 2, Value: 1})
	require.NoError(t, err)
	assert.Equal(t, domain.VoteUnchanged, outcome)

	votes, err := f.store.GetVotesByTopicID(ctx, topic.ID)
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, 1, votes[0].Value)
}

func TestService_Vote_ChangeUpdatesRow(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	topic := f.topic(t, 1)

	_, err := f.svc.Vote(ctx, VoteInput{TopicID: topic.ID, UserID: 2, Value: 1})
	require.NoError(t, err)
	outcome, err := f.svc.Vote(ctx, VoteInput{TopicID: topic.ID, UserID: 2, Value: -1})
	require.NoError(t, err)
	assert.Equal(t, domain.VoteChanged, outcome)

	votes, err := f.store.GetVotesByTopicID(ctx, topic.ID)
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, -1, votes[0].Value)
}

func TestService_Vote_InvalidValue(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	topic := f.topic(t, 1)
	callsBefore := f.users.calls

	for _, v := range []int{0, 2, -2} {
		_, err := f.svc.Vote(ctx, VoteInput{TopicID: topic.ID, UserID: 2, Value: v})
		assert.True(t, domain.IsValidation(err), "value %d", v)
	}

	assert.Equal(t, callsBefore, f.users.calls)
	votes, err := f.store.GetVotesByTopicID(ctx, topic.ID)
	require.NoError(t, err)
	assert.Empty(t, votes)
}

func TestService_Vote_Rejections(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	topic := f.topic(t, 1)

	_, err := f.svc.Vote(ctx, VoteInput{TopicID: topic.ID, UserID: 99, Value: 1})
	assert.True(t, domain.IsValidation(err))

	_, err = f.svc.Vote(ctx, VoteInput{TopicID: 12345, UserID: 2, Value: 1})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_Vote_ConcurrentUsers(t *testing.T) {
	run := func() []domain.Vote {
		f := newFixture()
		ctx := context.Background()
		topic := f.topic(t, 1)

		var wg sync.WaitGroup
		for _, vote := range []VoteInput{
			{TopicID: topic.ID, UserID: 1, Value: 1},
			{TopicID: topic.ID, UserID: 2, Value: -1},
		} {
			wg.Add(1)
			go func(in VoteInput) {
				defer wg.Done()
				_, err := f.svc.Vote(ctx, in)
				assert.NoError(t, err)
			}(vote)
		}
		wg.Wait()

		votes, err := f.store.GetVotesByTopicID(ctx, topic.ID)
		require.NoError(t, err)
		result := make([]domain.Vote, 0, len(votes))
		for _, v := range votes {
			result = append(result, domain.Vote{TopicID: v.TopicID, UserID: v.UserID, Value: v.Value})
		}
		sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
		return result
	}

	first := run()
	require.Len(t, first, 2)
	assert.Equal(t, 1, first[0].Value)
	assert.Equal(t, -1, first[1].Value)
	assert.Equal(t, first, run())
}

func TestService_AddComment_MissingTopic(t *testing.T) {
	f := newFixture()

	_, err := f.svc.AddComment(context.Background(), AddCommentInput{TopicID: 777, UserID: 2, Body: "hi"})

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, f.pub.published())
}

func TestService_AddComment_UnknownCommenter(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	topic := f.topic(t, 1)

	_, err := f.svc.AddComment(ctx, AddCommentInput{TopicID: topic.ID, UserID: 99, Body: "hi"})

	assert.True(t, domain.IsValidation(err))
	assert.Empty(t, f.pub.published())
	comments, err := f.store.GetCommentsByTopicID(ctx, topic.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestService_AddComment_PublishesEnrichedEvent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	topic := f.topic(t, 1)

	parent, err := f.svc.AddComment(ctx, AddCommentInput{TopicID: topic.ID, UserID: 3, Body: "first"})
	require.NoError(t, err)
	reply, err := f.svc.AddComment(ctx, AddCommentInput{TopicID: topic.ID, ParentCommentID: &parent.ID, UserID: 2, Body: "reply"})
	require.NoError(t, err)

	events := f.pub.published()
	require.Len(t, events, 2)

	evt := events[1]
	assert.Equal(t, reply.ID, evt.CommentID)
	assert.Equal(t, topic.ID, evt.TopicID)
	assert.Equal(t, int64(2), evt.CommenterID)
	assert.Equal(t, "bob@example.com", evt.CommenterEmail)
	assert.Equal(t, "Bob", evt.CommenterName)
	assert.Equal(t, "Go generics", evt.TopicTitle)
	assert.Equal(t, "reply", evt.CommentBody)
	assert.Equal(t, int64(1), evt.TopicCreatorID)
	require.NotNil(t, evt.TopicCreatorEmail)
	assert.Equal(t, "alice@example.com", *evt.TopicCreatorEmail)
	require.NotNil(t, evt.ParentCommentID)
	assert.Equal(t, parent.ID, *evt.ParentCommentID)
	require.NotNil(t, evt.ParentCommentCreatorID)
	assert.Equal(t, int64(3), *evt.ParentCommentCreatorID)
	// у автора родителя нет email
	assert.Nil(t, evt.ParentCommentCreatorEmail)
}

func TestService_AddComment_EnrichmentFailureStillSucceeds(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	topic := f.topic(t, 1)
	delete(f.users.users, 1)

	comment, err := f.svc.AddComment(ctx, AddCommentInput{TopicID: topic.ID, UserID: 2, Body: "hi"})
	require.NoError(t, err)

	events := f.pub.published()
	require.Len(t, events, 1)
	assert.Equal(t, comment.ID, events[0].CommentID)
	assert.Equal(t, int64(1), events[0].TopicCreatorID)
	assert.Nil(t, events[0].TopicCreatorEmail)
}

func TestService_GetTopicWithUser_IdentityDown(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	topic := f.topic(t, 1)

	f.users.setBroken(true)
	got, err := f.svc.GetTopicWithUser(ctx, topic.ID)

	require.NoError(t, err)
	assert.Equal(t, topic.ID, got.ID)
	assert.Nil(t, got.Creator)

	_, err = f.svc.GetTopicWithUser(ctx, 404)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_GetAllTopicsWithUser(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.topic(t, 1)
	f.topic(t, 1)
	f.topic(t, 2)
	_, err := f.store.CreateTopic(ctx, &domain.Topic{AuthorID: 99, Title: "orphan", Body: "b"})
	require.NoError(t, err)

	callsBefore := f.users.calls
	topics, err := f.svc.GetAllTopicsWithUser(ctx)
	require.NoError(t, err)
	require.Len(t, topics, 4)

	for _, topic := range topics {
		if topic.AuthorID == 99 {
			assert.Nil(t, topic.Creator)
			continue
		}
		require.NotNil(t, topic.Creator)
		assert.Equal(t, topic.AuthorID, topic.Creator.ID)
	}
	// три уникальных автора
	assert.Equal(t, 3, f.users.calls-callsBefore)
}

func TestService_Comments_ScopedToTopic(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	topicA := f.topic(t, 1)
	topicB := f.topic(t, 2)

	comment, err := f.svc.AddComment(ctx, AddCommentInput{TopicID: topicA.ID, UserID: 2, Body: "hi"})
	require.NoError(t, err)

	got, err := f.svc.GetCommentWithUser(ctx, topicA.ID, comment.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Creator)
	assert.Equal(t, "Bob", got.Creator.Name)

	_, err = f.svc.GetCommentWithUser(ctx, topicB.ID, comment.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, f.svc.DeleteComment(ctx, topicB.ID, comment.ID), domain.ErrNotFound)

	list, err := f.svc.GetCommentsWithUser(ctx, topicA.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, f.svc.DeleteComment(ctx, topicA.ID, comment.ID))
	_, err = f.svc.GetCommentWithUser(ctx, topicA.ID, comment.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_DeleteTopic(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	topic := f.topic(t, 1)

	require.NoError(t, f.svc.DeleteTopic(ctx, topic.ID))
	assert.ErrorIs(t, f.svc.DeleteTopic(ctx, topic.ID), domain.ErrNotFound)

	_, err := f.svc.GetCommentsWithUser(ctx, topic.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_AddComment_IdentityErrorsDuringEnrichment(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	topic := f.topic(t, 1)
	parent, err := f.svc.AddComment(ctx, AddCommentInput{TopicID: topic.ID, UserID: 3, Body: "first"})
	require.NoError(t, err)

	// автор темы и автор родителя недоступны, комментатор находится
	f.users.failFor(1, 3)
	reply, err := f.svc.AddComment(ctx, AddCommentInput{TopicID: topic.ID, ParentCommentID: &parent.ID, UserID: 2, Body: "reply"})
	require.NoError(t, err)

	events := f.pub.published()
	require.Len(t, events, 2)
	evt := events[1]
	assert.Equal(t, reply.ID, evt.CommentID)
	assert.Equal(t, "bob@example.com", evt.CommenterEmail)
	assert.Equal(t, int64(1), evt.TopicCreatorID)
	assert.Nil(t, evt.TopicCreatorEmail)
	require.NotNil(t, evt.ParentCommentCreatorID)
	assert.Equal(t, int64(3), *evt.ParentCommentCreatorID)
	assert.Nil(t, evt.ParentCommentCreatorEmail)
}

func TestService_AddComment_ParentFromAnotherTopic(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	topicA := f.topic(t, 1)
	topicB := f.topic(t, 1)
	foreign, err := f.svc.AddComment(ctx, AddCommentInput{TopicID: topicB.ID, UserID: 2, Body: "elsewhere"})
	require.NoError(t, err)

	_, err = f.svc.AddComment(ctx, AddCommentInput{TopicID: topicA.ID, ParentCommentID: &foreign.ID, UserID: 1, Body: "reply"})
	require.NoError(t, err)

	events := f.pub.published()
	require.Len(t, events, 2)
	assert.Nil(t, events[1].ParentCommentCreatorID)
	assert.Nil(t, events[1].ParentCommentCreatorEmail)
}

func TestService_ListReads_IdentityDown(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	topic := f.topic(t, 1)
	f.topic(t, 2)
	_, err := f.svc.AddComment(ctx, AddCommentInput{TopicID: topic.ID, UserID: 2, Body: "hi"})
	require.NoError(t, err)

	f.users.setBroken(true)

	topics, err := f.svc.GetAllTopicsWithUser(ctx)
	require.NoError(t, err)
	require.Len(t, topics, 2)
	for _, tw := range topics {
		assert.Nil(t, tw.Creator)
	}

	comments, err := f.svc.GetCommentsWithUser(ctx, topic.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Nil(t, comments[0].Creator)
}
