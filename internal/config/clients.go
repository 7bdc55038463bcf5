package config

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	"github.com/chainguard-dev/terraform-provider-imagecheck/internal/checker"
	"github.com/chainguard-dev/terraform-provider-imagecheck/internal/pipeline"
	"github.com/chainguard-dev/terraform-provider-imagecheck/internal/registry"
)

// LoadAWS loads the default AWS configuration, pinned to region when set.
func LoadAWS(ctx context.Context, region string) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading AWS config: %w", err)
	}
	return cfg, nil
}

// NewChecker builds a checker whose collaborators live as long as the
// calling process.
func (c *Config) NewChecker(ctx context.Context) (*checker.Checker, error) {
	awsCfg, err := LoadAWS(ctx, c.Region)
	if err != nil {
		return nil, err
	}
	return NewChecker(awsCfg, c.Registry, c.PollInterval), nil
}

// NewChecker wires CodePipeline and the chosen registry backend.
func NewChecker(awsCfg aws.Config, backend string, interval time.Duration) *checker.Checker {
	pipes := pipeline.NewCodePipeline(codepipeline.NewFromConfig(awsCfg))

	var reg checker.Registry
	switch backend {
	case RegistryOCI:
		reg = registry.NewOCI()
	default:
		reg = registry.NewECR(ecr.NewFromConfig(awsCfg))
	}

	return checker.New(pipes, reg, checker.WithPollInterval(interval))
}
