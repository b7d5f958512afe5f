package lock

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "snapx.lock.v1.LockService"

// Full method names.
const (
	MethodAcquire = "/" + ServiceName + "/Acquire"
	MethodRenew   = "/" + ServiceName + "/Renew"
	MethodUnlock  = "/" + ServiceName + "/Unlock"
)

// Message field names.
const (
	FieldName        = "name"
	FieldDuration    = "duration"
	FieldOwner       = "owner"
	FieldChallenge   = "challenge"
	FieldExpiresAt   = "expires_at"
	FieldBreakPeriod = "break_period"
)

// LockServiceServer is the server API of the lock service.
type LockServiceServer interface {
	Acquire(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Renew(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Unlock(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// RegisterLockServiceServer registers srv on s.
func RegisterLockServiceServer(s grpc.ServiceRegistrar, srv LockServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

//nolint:gochecknoglobals // gRPC service descriptors are package-level by convention.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LockServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Acquire",
			Handler: unaryHandler(MethodAcquire, func(srv LockServiceServer) unaryMethod {
				return srv.Acquire
			}),
		},
		{
			MethodName: "Renew",
			Handler: unaryHandler(MethodRenew, func(srv LockServiceServer) unaryMethod {
				return srv.Renew
			}),
		},
		{
			MethodName: "Unlock",
			Handler: unaryHandler(MethodUnlock, func(srv LockServiceServer) unaryMethod {
				return srv.Unlock
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "snapx/lock/v1/lock.proto",
}

type unaryMethod func(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

// unaryHandler builds the grpc.MethodDesc handler that decodes a Struct and dispatches to the method.
func unaryHandler(fullMethod string, pick func(LockServiceServer) unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}

		method := pick(srv.(LockServiceServer))
		if interceptor == nil {
			return method(ctx, in)
		}

		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}

		handler := func(ctx context.Context, req any) (any, error) {
			return method(ctx, req.(*structpb.Struct))
		}

		return interceptor(ctx, in, info, handler)
	}
}

// LockServiceClient is the client API of the lock service.
type LockServiceClient interface {
	Acquire(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Renew(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Unlock(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type lockServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewLockServiceClient creates a client over cc.
func NewLockServiceClient(cc grpc.ClientConnInterface) LockServiceClient {
	return &lockServiceClient{cc: cc}
}

func (c *lockServiceClient) Acquire(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodAcquire, req, opts...)
}

func (c *lockServiceClient) Renew(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodRenew, req, opts...)
}

func (c *lockServiceClient) Unlock(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodUnlock, req, opts...)
}

func (c *lockServiceClient) invoke(
	ctx context.Context,
	method string,
	req *structpb.Struct,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, req, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}
