// Package config loads the checker's process configuration from the
// environment and builds the AWS backed collaborators.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chainguard-dev/terraform-provider-imagecheck/internal/checker"
	"github.com/kelseyhightower/envconfig"
)

// Registry backends.
const (
	RegistryECR = "ecr"
	RegistryOCI = "oci"
)

// Response modes understood by the handler.
const (
	ResponseRecord = "record"
	ResponseError  = "error"
	ResponseCFN    = "cfn"
)

// Config configures a checker host process.
type Config struct {
	// Default target, overridable per invocation by resource properties.
	PipelineName  string `envconfig:"PIPELINE_NAME"`
	RepositoryURI string `envconfig:"REPOSITORY_URI"`
	ImageTag      string `envconfig:"IMAGE_TAG"`

	// Optional with defaults
	PollInterval   time.Duration `envconfig:"POLL_INTERVAL"`   // default: 10s
	Registry       string        `envconfig:"REGISTRY"`        // default: ecr
	ResponseMode   string        `envconfig:"RESPONSE_MODE"`   // default: record
	DeadlineMargin time.Duration `envconfig:"DEADLINE_MARGIN"` // default: 5s
	Region         string        `envconfig:"AWS_REGION"`
	LogLevel       string        `envconfig:"LOG_LEVEL"` // default: info
	LogFile        string        `envconfig:"LOG_FILE"`
}

// Load reads the configuration from the environment, applies defaults and
// validates the result.
func Load() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("loading configuration from environment: %w", err)
	}
	c.applyDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.ImageTag == "" {
		c.ImageTag = "latest"
	}
	if c.PollInterval == 0 {
		c.PollInterval = checker.DefaultPollInterval
	}
	if c.Registry == "" {
		c.Registry = RegistryECR
	}
	if c.ResponseMode == "" {
		c.ResponseMode = ResponseRecord
	}
	if c.DeadlineMargin == 0 {
		c.DeadlineMargin = 5 * time.Second
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	c.Registry = strings.ToLower(c.Registry)
	c.ResponseMode = strings.ToLower(c.ResponseMode)
}

func (c *Config) validate() error {
	if c.PollInterval < 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive, got %s", c.PollInterval)
	}
	if c.DeadlineMargin < 0 {
		return fmt.Errorf("DEADLINE_MARGIN must not be negative, got %s", c.DeadlineMargin)
	}
	switch c.Registry {
	case RegistryECR, RegistryOCI:
	default:
		return fmt.Errorf("REGISTRY must be one of %q or %q, got %q", RegistryECR, RegistryOCI, c.Registry)
	}
	switch c.ResponseMode {
	case ResponseRecord, ResponseError, ResponseCFN:
	default:
		return fmt.Errorf("RESPONSE_MODE must be one of %q, %q or %q, got %q", ResponseRecord, ResponseError, ResponseCFN, c.ResponseMode)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Target returns the default target for invocations.
func (c *Config) Target() checker.Target {
	return checker.Target{
		PipelineName:      c.PipelineName,
		RepositoryLocator: c.RepositoryURI,
		ImageTag:          c.ImageTag,
	}
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return l, nil
}
