package client

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	pb "github.com/ppiankov/pslang/api/pslang/v1"
	"github.com/ppiankov/pslang/internal/model"
)

// DefaultTimeout bounds every call.
const DefaultTimeout = 5 * time.Second

// Client connects to a pslang gRPC projection server.
type Client struct {
	conn    *grpc.ClientConn
	client  pb.ProjectionClient
	timeout time.Duration
}

// New creates a gRPC client for the given address. The connection is
// established lazily on the first call.
func New(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to projection server: %w", err)
	}
	return &Client{
		conn:    conn,
		client:  pb.NewProjectionClient(conn),
		timeout: DefaultTimeout,
	}, nil
}

// SetTimeout changes the per-call timeout.
func (c *Client) SetTimeout(d time.Duration) {
	if d > 0 {
		c.timeout = d
	}
}

// Parse returns the zones of document.
func (c *Client) Parse(ctx context.Context, document string) (*pb.ParseResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.client.Parse(ctx, &pb.ParseRequest{Document: document})
}

// Filter projects a document for an audience. There is no local fallback:
// when the server is unreachable the caller gets an error, never the
// unfiltered document.
func (c *Client) Filter(ctx context.Context, req *pb.FilterRequest) (*pb.FilterResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.client.Filter(ctx, req)
}

// Transform converts a conversation into an annotated document.
func (c *Client) Transform(ctx context.Context, turns []model.Turn) (*pb.TransformResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.client.Transform(ctx, &pb.TransformRequest{Turns: turns})
}

// ListAudiences returns the audiences the server can project for.
func (c *Client) ListAudiences(ctx context.Context) (*pb.ListAudiencesResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.client.ListAudiences(ctx, &pb.ListAudiencesRequest{})
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
