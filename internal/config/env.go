// Package config resolves pslang's filesystem locations and limits from the
// environment. A .env file in the working directory is honoured when present.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvHome      = "PSLANG_HOME"
	EnvPolicy    = "PSLANG_POLICY"
	EnvAuditLog  = "PSLANG_AUDIT_LOG"
	EnvStore     = "PSLANG_STORE"
	EnvMaxBytes  = "PSLANG_MAX_BYTES"
	EnvGRPCAddr  = "PSLANG_GRPC_ADDR"
	EnvMetrics   = "PSLANG_METRICS_ADDR"
	EnvInboxRoot = "PSLANG_INBOX"
)

// DefaultMaxBytes caps a single document or transcript at 1 MiB.
const DefaultMaxBytes = 1 << 20

// Defaults for network listeners.
const (
	DefaultGRPCAddr    = "127.0.0.1:50061"
	DefaultMetricsAddr = "127.0.0.1:9461"
)

// Env is the resolved runtime environment.
type Env struct {
	Home        string
	PolicyPath  string
	AuditLog    string
	StorePath   string
	InboxRoot   string
	GRPCAddr    string
	MetricsAddr string
	MaxBytes    int
}

// LoadDotenv reads ./.env into the process environment. A missing file is
// not an error; existing variables are never overwritten.
func LoadDotenv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: load .env: %w", err)
	}
	return nil
}

// Load resolves Env from environment variables, filling defaults under
// Home (PSLANG_HOME, else ~/.pslang).
func Load() (*Env, error) {
	home, err := Home()
	if err != nil {
		return nil, err
	}

	e := &Env{
		Home:        home,
		PolicyPath:  getenv(EnvPolicy, filepath.Join(home, "policy.yaml")),
		AuditLog:    getenv(EnvAuditLog, filepath.Join(home, "audit.jsonl")),
		StorePath:   getenv(EnvStore, filepath.Join(home, "documents.db")),
		InboxRoot:   getenv(EnvInboxRoot, filepath.Join(home, "inbox")),
		GRPCAddr:    getenv(EnvGRPCAddr, DefaultGRPCAddr),
		MetricsAddr: getenv(EnvMetrics, DefaultMetricsAddr),
		MaxBytes:    DefaultMaxBytes,
	}

	if v := os.Getenv(EnvMaxBytes); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("config: %s must be a positive integer, got %q", EnvMaxBytes, v)
		}
		e.MaxBytes = n
	}
	return e, nil
}

// Home returns the pslang state directory.
func Home() (string, error) {
	if h := os.Getenv(EnvHome); h != "" {
		return h, nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: cannot determine home directory: %w", err)
	}
	return filepath.Join(userHome, ".pslang"), nil
}

// ProfilesDir returns the directory holding user audience profiles.
func ProfilesDir() (string, error) {
	home, err := Home()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "profiles"), nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
