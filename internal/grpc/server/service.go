package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ProfileServiceName is the fully qualified gRPC service name
const ProfileServiceName = "socialprobe.v1.ProfileService"

// ProfileServiceServer is the server API for ProfileService. Messages are
// google.protobuf.Struct documents with the same field names as the HTTP API.
type ProfileServiceServer interface {
	Analyze(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AnalyzeAsync(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetTask(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type profileMethod func(ProfileServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, call profileMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ProfileServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ProfileServiceName + "/" + name,
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(ProfileServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ProfileServiceDesc describes ProfileService for grpc.Server.RegisterService
var ProfileServiceDesc = grpc.ServiceDesc{
	ServiceName: ProfileServiceName,
	HandlerType: (*ProfileServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("Analyze", ProfileServiceServer.Analyze),
		unaryHandler("AnalyzeAsync", ProfileServiceServer.AnalyzeAsync),
		unaryHandler("GetTask", ProfileServiceServer.GetTask),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "socialprobe/v1/profile.proto",
}

// RegisterProfileServiceServer registers srv on s
func RegisterProfileServiceServer(s grpc.ServiceRegistrar, srv ProfileServiceServer) {
	s.RegisterService(&ProfileServiceDesc, srv)
}
