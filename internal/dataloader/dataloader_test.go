package dataloader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/UkralStul/forum-service/internal/domain"
	"github.com/UkralStul/forum-service/internal/identity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingResolver struct {
	mu    sync.Mutex
	calls map[int64]int
}

func (c *countingResolver) LookupUser(_ context.Context, id int64) identity.Resolution {
	c.mu.Lock()
	c.calls[id]++
	c.mu.Unlock()
	if id == 404 {
		return identity.Resolution{Status: identity.StatusNotFound}
	}
	return identity.Resolution{Status: identity.StatusFound, User: &domain.User{ID: id}}
}

func TestLoaders_DeduplicatesAuthors(t *testing.T) {
	resolver := &countingResolver{calls: map[int64]int{}}
	loaders := NewLoaders(resolver)
	ctx := context.Background()

	ids := []int64{1, 2, 1, 404, 2, 1}
	thunks := make([]func() identity.Resolution, len(ids))
	for i, id := range ids {
		thunks[i] = loaders.LoadUser(ctx, id)
	}

	for i, thunk := range thunks {
		res := thunk()
		if ids[i] == 404 {
			assert.Equal(t, identity.StatusNotFound, res.Status)
			continue
		}
		require.True(t, res.Found())
		assert.Equal(t, ids[i], res.User.ID)
	}

	assert.Equal(t, map[int64]int{1: 1, 2: 1, 404: 1}, resolver.calls)
}

func TestMiddleware_InjectsLoaders(t *testing.T) {
	var got *Loaders
	handler := Middleware(&countingResolver{calls: map[int64]int{}})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = For(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.NotNil(t, got)
	assert.Nil(t, For(context.Background()))
}
