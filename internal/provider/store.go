package provider

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline"
	"github.com/chainguard-dev/terraform-provider-imagecheck/internal/checker"
	"github.com/chainguard-dev/terraform-provider-imagecheck/internal/config"
	"github.com/chainguard-dev/terraform-provider-imagecheck/internal/pipeline"
)

// Checker runs one availability check.
type Checker interface {
	Check(ctx context.Context, req checker.Request) checker.Result
}

// ProviderStore holds the collaborators shared by the provider's resources
// and data sources for the life of the provider process.
type ProviderStore struct {
	checker   Checker
	pipelines checker.Pipelines
}

// NewProviderStore builds the AWS backed collaborators.
func NewProviderStore(awsCfg aws.Config, backend string, interval time.Duration) *ProviderStore {
	return &ProviderStore{
		checker:   config.NewChecker(awsCfg, backend, interval),
		pipelines: pipeline.NewCodePipeline(codepipeline.NewFromConfig(awsCfg)),
	}
}
