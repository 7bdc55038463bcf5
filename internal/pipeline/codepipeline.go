// Package pipeline reports build pipeline executions from AWS CodePipeline.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline"
	cptypes "github.com/aws/aws-sdk-go-v2/service/codepipeline/types"
	"github.com/aws/smithy-go"
	"github.com/chainguard-dev/clog"
	"github.com/chainguard-dev/terraform-provider-imagecheck/internal/checker"
)

// pageSize bounds each query. Only the most recent execution is inspected.
const pageSize int32 = 5

var (
	ErrPipelineNotFound = errors.New("pipeline not found")

	errListPipelineExecutions = errors.New("failed to list pipeline executions")
)

// API is the subset of the CodePipeline client used here.
type API interface {
	ListPipelineExecutions(ctx context.Context, params *codepipeline.ListPipelineExecutionsInput, optFns ...func(*codepipeline.Options)) (*codepipeline.ListPipelineExecutionsOutput, error)
}

var _ checker.Pipelines = (*CodePipeline)(nil)

type CodePipeline struct {
	client API
}

func NewCodePipeline(client API) *CodePipeline {
	return &CodePipeline{client: client}
}

// ListExecutions returns the newest executions of the pipeline, most recently
// started first, as returned by ListPipelineExecutions.
func (p *CodePipeline) ListExecutions(ctx context.Context, pipelineName string) ([]checker.Execution, error) {
	out, err := p.client.ListPipelineExecutions(ctx, &codepipeline.ListPipelineExecutionsInput{
		PipelineName: aws.String(pipelineName),
		MaxResults:   aws.Int32(pageSize),
	})
	if err != nil {
		var nf *cptypes.PipelineNotFoundException
		if errors.As(err, &nf) {
			return nil, fmt.Errorf("%w: %s", ErrPipelineNotFound, pipelineName)
		}

		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			clog.FromContext(ctx).Warn("codepipeline api error", "pipeline", pipelineName, "code", apiErr.ErrorCode(), "message", apiErr.ErrorMessage())
		}
		return nil, fmt.Errorf("%w: %w", errListPipelineExecutions, err)
	}

	execs := make([]checker.Execution, 0, len(out.PipelineExecutionSummaries))
	for _, s := range out.PipelineExecutionSummaries {
		execs = append(execs, checker.Execution{
			ID:     aws.ToString(s.PipelineExecutionId),
			Status: checker.Status(s.Status),
		})
	}
	return execs, nil
}
