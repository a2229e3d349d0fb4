package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "techdraw.v1.Research"

// ResearchServer is the service contract. Every method takes and returns a
// google.protobuf.Struct so the API needs no generated code.
type ResearchServer interface {
	OpenSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ToggleObtained(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ToggleSkipped(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetScalar(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetCategoryBonus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ImportSave(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Reset(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Items(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type method func(ResearchServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, call method) grpc.MethodDesc {
	full := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ResearchServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(ResearchServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ResearchServiceDesc describes the service for grpc.Server.RegisterService.
var ResearchServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ResearchServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("OpenSession", ResearchServer.OpenSession),
		unary("ToggleObtained", ResearchServer.ToggleObtained),
		unary("ToggleSkipped", ResearchServer.ToggleSkipped),
		unary("SetScalar", ResearchServer.SetScalar),
		unary("SetCategoryBonus", ResearchServer.SetCategoryBonus),
		unary("ImportSave", ResearchServer.ImportSave),
		unary("Reset", ResearchServer.Reset),
		unary("Items", ResearchServer.Items),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "techdraw/v1/research.proto",
}

func RegisterResearchServer(s grpc.ServiceRegistrar, srv ResearchServer) {
	s.RegisterService(&ResearchServiceDesc, srv)
}

// ResearchClient calls the service over a connection.
type ResearchClient struct {
	cc grpc.ClientConnInterface
}

func NewResearchClient(cc grpc.ClientConnInterface) *ResearchClient {
	return &ResearchClient{cc: cc}
}

// Call invokes method with req.
func (c *ResearchClient) Call(ctx context.Context, method string, req map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
