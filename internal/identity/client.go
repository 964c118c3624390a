package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/UkralStul/forum-service/internal/domain"
	"github.com/UkralStul/forum-service/internal/logger"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"
)

// Status - результат поиска пользователя.
type Status int

const (
	StatusFound Status = iota
	StatusNotFound
	// StatusError - сбой транспорта или таймаут. Отличается от StatusNotFound.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusNotFound:
		return "not_found"
	default:
		return "error"
	}
}

// Resolution - результат LookupUser. User заполнен только при StatusFound,
// Err только при StatusError.
type Resolution struct {
	Status Status
	User   *domain.User
	Err    error
}

// Found сообщает, найден ли пользователь.
func (r Resolution) Found() bool {
	return r.Status == StatusFound && r.User != nil
}

// Client обращается к сервису пользователей. Повторов нет, каждый вызов ограничен таймаутом.
type Client struct {
	conn    grpc.ClientConnInterface
	timeout time.Duration
}

// NewClient создает клиента поверх готового соединения.
func NewClient(conn grpc.ClientConnInterface, timeout time.Duration) *Client {
	return &Client{conn: conn, timeout: timeout}
}

// Dial открывает соединение с сервисом пользователей.
func Dial(addr string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                30 * time.Second,
			Timeout:             10 * time.Second,
			PermitWithoutStream: true,
		}),
		grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(4 * 1024 * 1024)),
	}
	conn, err := grpc.Dial(addr, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("dial identity service %s: %w", addr, err)
	}
	return conn, nil
}

// LookupUser ищет пользователя по id.
func (c *Client) LookupUser(ctx context.Context, id int64) Resolution {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp := new(UserResponse)
	err := c.conn.Invoke(ctx, getUserByIDMethod, &UserRequest{ID: id}, resp, grpc.CallContentSubtype(codecName))
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return Resolution{Status: StatusNotFound}
		}
		logger.For(ctx).WithError(err).WithField("user_id", id).Warn("identity lookup failed")
		return Resolution{Status: StatusError, Err: err}
	}
	return Resolution{Status: StatusFound, User: resp.toUser()}
}
