package pslangv1

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "pslang.v1.Projection"

const (
	FullMethodParse         = "/" + ServiceName + "/Parse"
	FullMethodFilter        = "/" + ServiceName + "/Filter"
	FullMethodTransform     = "/" + ServiceName + "/Transform"
	FullMethodListAudiences = "/" + ServiceName + "/ListAudiences"
)

// ProjectionServer is implemented by the projection service.
type ProjectionServer interface {
	Parse(context.Context, *ParseRequest) (*ParseResponse, error)
	Filter(context.Context, *FilterRequest) (*FilterResponse, error)
	Transform(context.Context, *TransformRequest) (*TransformResponse, error)
	ListAudiences(context.Context, *ListAudiencesRequest) (*ListAudiencesResponse, error)
}

// ProjectionServiceDesc describes the service for grpc.Server.RegisterService.
var ProjectionServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ProjectionServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Parse", FullMethodParse, ProjectionServer.Parse),
		unary("Filter", FullMethodFilter, ProjectionServer.Filter),
		unary("Transform", FullMethodTransform, ProjectionServer.Transform),
		unary("ListAudiences", FullMethodListAudiences, ProjectionServer.ListAudiences),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pslang/v1/projection",
}

// RegisterProjectionServer registers srv on s.
func RegisterProjectionServer(s grpc.ServiceRegistrar, srv ProjectionServer) {
	s.RegisterService(&ProjectionServiceDesc, srv)
}

func unary[Req, Resp any](name, fullMethod string, call func(ProjectionServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ProjectionServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(ProjectionServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ProjectionClient calls the projection service.
type ProjectionClient interface {
	Parse(ctx context.Context, in *ParseRequest, opts ...grpc.CallOption) (*ParseResponse, error)
	Filter(ctx context.Context, in *FilterRequest, opts ...grpc.CallOption) (*FilterResponse, error)
	Transform(ctx context.Context, in *TransformRequest, opts ...grpc.CallOption) (*TransformResponse, error)
	ListAudiences(ctx context.Context, in *ListAudiencesRequest, opts ...grpc.CallOption) (*ListAudiencesResponse, error)
}

type projectionClient struct {
	cc grpc.ClientConnInterface
}

// NewProjectionClient returns a client that sends every call with the JSON
// content subtype.
func NewProjectionClient(cc grpc.ClientConnInterface) ProjectionClient {
	return &projectionClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *projectionClient) Parse(ctx context.Context, in *ParseRequest, opts ...grpc.CallOption) (*ParseResponse, error) {
	return invoke[ParseResponse](ctx, c.cc, FullMethodParse, in, opts)
}

func (c *projectionClient) Filter(ctx context.Context, in *FilterRequest, opts ...grpc.CallOption) (*FilterResponse, error) {
	return invoke[FilterResponse](ctx, c.cc, FullMethodFilter, in, opts)
}

func (c *projectionClient) Transform(ctx context.Context, in *TransformRequest, opts ...grpc.CallOption) (*TransformResponse, error) {
	return invoke[TransformResponse](ctx, c.cc, FullMethodTransform, in, opts)
}

func (c *projectionClient) ListAudiences(ctx context.Context, in *ListAudiencesRequest, opts ...grpc.CallOption) (*ListAudiencesResponse, error) {
	return invoke[ListAudiencesResponse](ctx, c.cc, FullMethodListAudiences, in, opts)
}
