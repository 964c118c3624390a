package identity

import (
	"context"
	"encoding/json"

	"github.com/UkralStul/forum-service/internal/domain"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

const (
	codecName         = "json"
	serviceName       = "user.UserService"
	getUserByIDMethod = "/" + serviceName + "/GetUserById"
)

// jsonCodec передает сообщения сервиса пользователей в JSON вместо protobuf.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                               { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// UserRequest - запрос пользователя по id.
type UserRequest struct {
	ID int64 `json:"id"`
}

// UserResponse - ответ сервиса пользователей.
type UserResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedAt string `json:"createdAt"`
}

func (r *UserResponse) toUser() *domain.User {
	return &domain.User{
		ID:        r.ID,
		Username:  r.Username,
		Name:      r.Name,
		Email:     r.Email,
		Role:      r.Role,
		CreatedAt: r.CreatedAt,
	}
}

// UserServiceServer - серверная сторона контракта. Отсутствующего пользователя
// нужно возвращать как status.Error(codes.NotFound, ...).
type UserServiceServer interface {
	GetUserByID(ctx context.Context, req *UserRequest) (*UserResponse, error)
}

// RegisterUserServiceServer регистрирует реализацию сервиса пользователей на gRPC сервере.
func RegisterUserServiceServer(s *grpc.Server, srv UserServiceServer) {
	s.RegisterService(&userServiceDesc, srv)
}

var userServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*UserServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetUserById", Handler: getUserByIDHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "user.proto",
}

func getUserByIDHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(UserRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(UserServiceServer).GetUserByID(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getUserByIDMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(UserServiceServer).GetUserByID(ctx, req.(*UserRequest))
	}
	return interceptor(ctx, in, info, handler)
}
