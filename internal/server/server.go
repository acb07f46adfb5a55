package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	pb "github.com/ppiankov/pslang/api/pslang/v1"
	"github.com/ppiankov/pslang/internal/audit"
	"github.com/ppiankov/pslang/internal/ingest"
	"github.com/ppiankov/pslang/internal/logging"
	"github.com/ppiankov/pslang/internal/metrics"
	"github.com/ppiankov/pslang/internal/profile"
	"github.com/ppiankov/pslang/internal/projector"
	"github.com/ppiankov/pslang/internal/ratelimit"
	"github.com/ppiankov/pslang/internal/redact"
	"github.com/ppiankov/pslang/internal/store"
)

// Config holds gRPC server configuration.
type Config struct {
	Addr         string
	PolicyPath   string
	AuditLogPath string
	MaxBytes     int
	Redact       *redact.Config
	Store        store.Store
	Metrics      *metrics.Metrics
	Logger       *zap.Logger
	// RateLimit caps requests per caller address. Zero disables it.
	RateLimit ratelimit.Limit
}

// Server implements the pslang.v1.Projection gRPC service.
type Server struct {
	proj     *projector.Projector
	auditLog *audit.Log
	log      *zap.Logger
	cfg      Config
	limiter  *ratelimit.Limiter

	grpcServer *grpc.Server
}

// New creates a gRPC server with loaded policy and, when configured, an
// open audit log.
func New(cfg Config) (*Server, error) {
	log := logging.OrNop(cfg.Logger)

	var auditLog *audit.Log
	var recorder audit.Recorder = audit.Discard
	if cfg.AuditLogPath != "" {
		var err error
		auditLog, err = audit.Open(cfg.AuditLogPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit log: %w", err)
		}
		recorder = auditLog
	}

	proj, err := projector.New(projector.Config{
		Surface:    metrics.SurfaceGRPC,
		PolicyPath: cfg.PolicyPath,
		MaxBytes:   cfg.MaxBytes,
		Redact:     cfg.Redact,
		Audit:      recorder,
		Metrics:    cfg.Metrics,
		Logger:     log,
		Store:      cfg.Store,
	})
	if err != nil {
		if auditLog != nil {
			auditLog.Close()
		}
		return nil, err
	}

	s := &Server{
		proj:     proj,
		auditLog: auditLog,
		log:      log,
		cfg:      cfg,
		limiter:  ratelimit.New(cfg.RateLimit),
	}
	// Inbound messages cannot exceed the document cap plus JSON framing.
	s.grpcServer = grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.logCalls, s.limitCalls),
		grpc.MaxRecvMsgSize(2*proj.MaxBytes()+64*1024),
	)
	pb.RegisterProjectionServer(s.grpcServer, s)
	return s, nil
}

// Serve listens on the configured address. Blocks until stopped.
func (s *Server) Serve() error {
	lis, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.ServeOn(lis)
}

// ServeOn serves on the given listener. For testing.
func (s *Server) ServeOn(lis net.Listener) error {
	s.log.Info("grpc server listening", zap.String("addr", lis.Addr().String()))
	return s.grpcServer.Serve(lis)
}

// GracefulStop gracefully shuts down the gRPC server.
func (s *Server) GracefulStop() {
	s.grpcServer.GracefulStop()
}

// Close cleans up resources.
func (s *Server) Close() error {
	if s.auditLog != nil {
		return s.auditLog.Close()
	}
	return nil
}

// ReloadPolicy re-reads the policy file. The previous policy stays active
// on error.
func (s *Server) ReloadPolicy() error {
	return s.proj.ReloadPolicy()
}

// Parse implements the Parse RPC.
func (s *Server) Parse(ctx context.Context, req *pb.ParseRequest) (*pb.ParseResponse, error) {
	res, err := s.proj.Parse(ctx, req.Document)
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.ParseResponse{
		RequestID:    res.RequestID,
		Zones:        res.Zones,
		OverlapPairs: res.OverlapPairs,
	}, nil
}

// Filter implements the Filter RPC.
func (s *Server) Filter(ctx context.Context, req *pb.FilterRequest) (*pb.FilterResponse, error) {
	out, err := s.proj.Filter(ctx, projector.FilterRequest{
		Document:   req.Document,
		DocumentID: req.DocumentID,
		Audience:   req.Audience,
		Scrub:      req.Scrub,
	})
	if err != nil {
		return nil, toStatus(err)
	}

	zones := make([]pb.ZoneSpan, len(out.Zones))
	for i, z := range out.Zones {
		zones[i] = pb.ZoneSpan{Type: z.Type, Start: z.Start, End: z.End, Kept: z.Kept}
	}
	return &pb.FilterResponse{
		RequestID:  out.RequestID,
		Audience:   out.Audience,
		Source:     string(out.Source),
		Filtered:   out.Filtered,
		Zones:      zones,
		Stats:      out.Stats,
		Scrubbed:   out.Scrubbed,
		PolicyHash: out.PolicyHash,
	}, nil
}

// Transform implements the Transform RPC.
func (s *Server) Transform(ctx context.Context, req *pb.TransformRequest) (*pb.TransformResponse, error) {
	out, err := s.proj.Transform(ctx, req.Turns)
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.TransformResponse{RequestID: out.RequestID, Result: out.Result}, nil
}

// ListAudiences implements the ListAudiences RPC.
func (s *Server) ListAudiences(ctx context.Context, req *pb.ListAudiencesRequest) (*pb.ListAudiencesResponse, error) {
	resolved := s.proj.Audiences()
	audiences := make([]pb.Audience, len(resolved))
	for i, r := range resolved {
		audiences[i] = pb.Audience{
			Name:       r.Name,
			Source:     string(r.Source),
			Visibility: r.Policy,
			Scrub:      r.Scrub,
		}
	}
	return &pb.ListAudiencesResponse{
		DefaultAudience: s.proj.DefaultAudience(),
		Audiences:       audiences,
		PolicyHash:      s.proj.PolicyHash(),
	}, nil
}

func (s *Server) logCalls(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	code := status.Code(err)
	fields := []zap.Field{
		zap.String("method", info.FullMethod),
		zap.String("code", code.String()),
		zap.Duration("elapsed", time.Since(start)),
	}
	if code == codes.Internal {
		s.log.Error("rpc failed", append(fields, zap.Error(err))...)
	} else {
		s.log.Debug("rpc", fields...)
	}
	return resp, err
}

func (s *Server) limitCalls(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if r := s.limiter.Allow(callerKey(ctx)); r.Exceeded {
		s.cfg.Metrics.ObserveRateLimited(metrics.SurfaceGRPC)
		return nil, status.Error(codes.ResourceExhausted, r.Reason)
	}
	return handler(ctx, req)
}

// callerKey identifies the caller by remote host, ignoring the port.
func callerKey(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return ""
	}
	addr := p.Addr.String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// toStatus maps projector errors to gRPC status codes.
func toStatus(err error) error {
	var code codes.Code
	switch {
	case errors.Is(err, ingest.ErrTooLarge),
		errors.Is(err, ingest.ErrInvalidUTF8),
		errors.Is(err, projector.ErrInvalidTurn):
		code = codes.InvalidArgument
	case errors.Is(err, profile.ErrUnknownProfile),
		errors.Is(err, store.ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, projector.ErrNoStore):
		code = codes.FailedPrecondition
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	default:
		code = codes.Internal
	}
	return status.Error(code, err.Error())
}
