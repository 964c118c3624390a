package dataloader

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/UkralStul/forum-service/internal/identity"

	"github.com/graph-gophers/dataloader"
)

type contextKey string

const key = contextKey("dataloaders")

// maxBatch ограничивает число одновременных запросов к сервису пользователей из одного батча.
const maxBatch = 50

// UserResolver - источник пользователей для лоадера.
type UserResolver interface {
	LookupUser(ctx context.Context, id int64) identity.Resolution
}

// Loaders содержит все дата-лоадеры приложения.
type Loaders struct {
	UserByID *dataloader.Loader
}

// NewLoaders создает лоадеры для одного запроса.
// Повторяющиеся id авторов в пределах запроса запрашиваются у сервиса пользователей один раз.
func NewLoaders(users UserResolver) *Loaders {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		results := make([]*dataloader.Result, len(keys))

		var wg sync.WaitGroup
		for i, k := range keys {
			id, err := strconv.ParseInt(k.String(), 10, 64)
			if err != nil {
				results[i] = &dataloader.Result{Error: err}
				continue
			}
			wg.Add(1)
			go func(i int, id int64) {
				defer wg.Done()
				results[i] = &dataloader.Result{Data: users.LookupUser(ctx, id)}
			}(i, id)
		}
		wg.Wait()

		return results
	}

	return &Loaders{
		UserByID: dataloader.NewBatchedLoader(batchFn,
			dataloader.WithWait(time.Millisecond),
			dataloader.WithBatchCapacity(maxBatch),
		),
	}
}

// LoadUser ставит id в очередь батча. Результат нужно получить вызовом thunk.
func (l *Loaders) LoadUser(ctx context.Context, id int64) func() identity.Resolution {
	thunk := l.UserByID.Load(ctx, dataloader.StringKey(strconv.FormatInt(id, 10)))
	return func() identity.Resolution {
		data, err := thunk()
		if err != nil {
			return identity.Resolution{Status: identity.StatusError, Err: err}
		}
		res, ok := data.(identity.Resolution)
		if !ok {
			return identity.Resolution{Status: identity.StatusError}
		}
		return res
	}
}

// Middleware для внедрения лоадеров в контекст запроса.
func Middleware(users UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), key, NewLoaders(users))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// For извлекает лоадеры из контекста. Возвращает nil, если Middleware не применялся.
func For(ctx context.Context) *Loaders {
	loaders, _ := ctx.Value(key).(*Loaders)
	return loaders
}
