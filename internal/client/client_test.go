package client

import (
	"context"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	pb "github.com/ppiankov/pslang/api/pslang/v1"
	"github.com/ppiankov/pslang/internal/config"
	"github.com/ppiankov/pslang/internal/model"
	"github.com/ppiankov/pslang/internal/server"
)

// startTestServer creates a server and returns its address.
func startTestServer(t *testing.T) string {
	t.Helper()
	t.Setenv(config.EnvHome, t.TempDir())

	srv, err := server.New(server.Config{PolicyPath: filepath.Join(t.TempDir(), "policy.yaml")})
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	go srv.ServeOn(lis)

	t.Cleanup(func() {
		srv.GracefulStop()
		srv.Close()
	})
	return lis.Addr().String()
}

func newClient(t *testing.T, addr string) *Client {
	t.Helper()
	c, err := New(addr)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestClientFilter(t *testing.T) {
	c := newClient(t, startTestServer(t))

	resp, err := c.Filter(context.Background(), &pb.FilterRequest{
		Document: "<. keep out .> <@. deploy @.> <$. notes $.>",
		Audience: "executor",
	})
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if !strings.Contains(resp.Filtered, "deploy") || strings.Contains(resp.Filtered, "keep out") || strings.Contains(resp.Filtered, "notes") {
		t.Errorf("unexpected projection %q", resp.Filtered)
	}
}

func TestClientParseAndTransform(t *testing.T) {
	c := newClient(t, startTestServer(t))
	ctx := context.Background()

	parsed, err := c.Parse(ctx, "<?. why? ?.>")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(parsed.Zones) != 1 || parsed.Zones[0].Type != model.ZoneQuestion {
		t.Errorf("zones = %+v", parsed.Zones)
	}

	tr, err := c.Transform(ctx, []model.Turn{{Role: model.RoleUser, Content: "Review my Django models"}})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if tr.Result.Tags[0] != "intent:review" {
		t.Errorf("tags = %v", tr.Result.Tags)
	}
}

func TestClientListAudiences(t *testing.T) {
	c := newClient(t, startTestServer(t))

	resp, err := c.ListAudiences(context.Background())
	if err != nil {
		t.Fatalf("ListAudiences: %v", err)
	}
	if resp.DefaultAudience != "agent" || len(resp.Audiences) != 4 {
		t.Errorf("unexpected audiences: %+v", resp)
	}
}

func TestClientUnknownAudience(t *testing.T) {
	c := newClient(t, startTestServer(t))

	_, err := c.Filter(context.Background(), &pb.FilterRequest{Document: "x", Audience: "nobody"})
	if status.Code(err) != codes.NotFound {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestClientUnreachableServerFails(t *testing.T) {
	// Reserve a port and release it so nothing is listening.
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := lis.Addr().String()
	lis.Close()

	c := newClient(t, addr)
	c.SetTimeout(500 * time.Millisecond)

	resp, err := c.Filter(context.Background(), &pb.FilterRequest{Document: "<. secret .>"})
	if err == nil {
		t.Fatalf("expected error, got %+v", resp)
	}
	if resp != nil {
		t.Error("expected no projection on failure")
	}
}
