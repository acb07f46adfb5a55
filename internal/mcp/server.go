package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/ppiankov/pslang/internal/audit"
	"github.com/ppiankov/pslang/internal/logging"
	"github.com/ppiankov/pslang/internal/metrics"
	"github.com/ppiankov/pslang/internal/projector"
	"github.com/ppiankov/pslang/internal/redact"
	"github.com/ppiankov/pslang/internal/store"
)

// Config holds MCP server configuration.
type Config struct {
	PolicyPath   string
	AuditLogPath string
	MaxBytes     int
	Redact       *redact.Config
	Store        store.Store
	Metrics      *metrics.Metrics
	Logger       *zap.Logger
	Version      string
}

// Server exposes the zone engine as MCP tools.
type Server struct {
	mcpServer *mcpsdk.Server
	proj      *projector.Projector
	auditLog  *audit.Log
	log       *zap.Logger
}

// New creates an MCP server with loaded policy and tools.
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
		Surface:    metrics.SurfaceMCP,
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

	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		proj:     proj,
		auditLog: auditLog,
		log:      log,
	}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "pslang",
			Version: version,
		},
		nil,
	)

	s.registerTools()
	return s, nil
}

// Run starts the MCP server on stdio transport. Blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info("mcp server starting on stdio")
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// ReloadPolicy re-reads the policy file.
func (s *Server) ReloadPolicy() error {
	return s.proj.ReloadPolicy()
}

// Close closes the audit log if configured.
func (s *Server) Close() error {
	if s.auditLog != nil {
		return s.auditLog.Close()
	}
	return nil
}

// registerTools adds all pslang tools to the MCP server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "pslang_parse",
		Description: "List the annotated zones of a document with their types, inner text and byte offsets.",
	}, s.handleParse)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "pslang_filter",
		Description: "Project a zone-annotated document for an audience. Private, question and benchmark zones are always removed; other zones follow the audience's visibility policy.",
	}, s.handleFilter)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "pslang_transform",
		Description: "Convert a user/assistant conversation into a zone-annotated document with intent, tech-stack and complexity tags and estimated signals.",
	}, s.handleTransform)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "pslang_audiences",
		Description: "List the audiences documents can be projected for, with their visibility policies.",
	}, s.handleAudiences)
}
