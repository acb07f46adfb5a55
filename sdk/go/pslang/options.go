package pslang

import "go.uber.org/zap"

// Option configures a Projector at creation time.
type Option func(*projectorConfig)

type projectorConfig struct {
	policyPath string
	maxBytes   int
	logger     *zap.Logger
}

// WithPolicy sets the path to a policy YAML file. Without it the policy under
// PSLANG_HOME is used, or the built-in defaults when that file is absent.
func WithPolicy(path string) Option {
	return func(c *projectorConfig) { c.policyPath = path }
}

// WithMaxBytes caps documents and transcripts. Defaults to 1 MiB.
func WithMaxBytes(n int) Option {
	return func(c *projectorConfig) { c.maxBytes = n }
}

// WithLogger sets the logger for policy reloads and overlap warnings.
func WithLogger(l *zap.Logger) Option {
	return func(c *projectorConfig) { c.logger = l }
}
