// Package checker blocks a deployment until a build pipeline has produced an
// image and that image is present in its registry.
//
// A single Check call is one invocation: it polls the pipeline-status service
// until the most recent execution reaches a terminal state, then performs
// exactly one registry lookup, and reports one Result. Nothing is retained
// between calls.
package checker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultPollInterval is the fixed delay between pipeline status queries.
	DefaultPollInterval = 10 * time.Second

	tracerName = "github.com/chainguard-dev/terraform-provider-imagecheck/internal/checker"
)

// RequiredActions are the IAM actions a host role needs to run the checker
// against CodePipeline and ECR.
var RequiredActions = []string{
	"codepipeline:ListPipelineExecutions",
	"ecr:DescribeImages",
}

var (
	errInvalidRequest     = errors.New("invalid request")
	errListExecutions     = errors.New("failed to list pipeline executions")
	errTimedOut           = errors.New("timed out")
	errImageNotAvailable  = errors.New("Image not available in registry") //nolint:staticcheck // surfaced verbatim to operators
	errMalformedLocator   = errors.New("malformed repository locator")
	errUnsupportedRequest = errors.New("unsupported request kind")
)

// ExecutionError is returned when the current pipeline execution ends in a
// terminal, unsuccessful state.
type ExecutionError struct {
	ExecutionID string
	Status      Status
}

func (e *ExecutionError) Error() string {
	return "Pipeline execution " + string(e.Status)
}

type Checker struct {
	pipelines Pipelines
	registry  Registry
	interval  time.Duration
	tracer    trace.Tracer
}

type Option func(*Checker)

// WithPollInterval overrides DefaultPollInterval.
func WithPollInterval(d time.Duration) Option {
	return func(c *Checker) {
		if d > 0 {
			c.interval = d
		}
	}
}

// New returns a Checker using the given collaborators. The collaborators are
// expected to live as long as the hosting process.
func New(pipelines Pipelines, registry Registry, opts ...Option) *Checker {
	c := &Checker{
		pipelines: pipelines,
		registry:  registry,
		interval:  DefaultPollInterval,
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PhysicalResourceID is the stable identity for a repository/tag pair.
func PhysicalResourceID(locator, tag string) string {
	return locator + ":" + tag
}

// Check runs one invocation and always returns exactly one Result. When ctx
// is done before the pipeline settles the result is a timeout failure.
func (c *Checker) Check(ctx context.Context, req Request) Result {
	ctx, span := c.tracer.Start(ctx, "checker.Check", trace.WithAttributes(
		attribute.String("request_kind", string(req.Kind)),
		attribute.String("pipeline_name", req.PipelineName),
	))
	defer span.End()

	ctx = clog.WithValues(ctx, "request_kind", string(req.Kind), "pipeline", req.PipelineName)

	var res Result
	switch req.Kind {
	case Create, Update:
		res = c.waitAndVerify(ctx, req)
	case Delete:
		res = Result{
			PhysicalResourceID: req.PhysicalResourceID,
			Outcome:            Success,
			Data:               map[string]any{},
		}
	default:
		res = Result{
			PhysicalResourceID: req.PhysicalResourceID,
			Outcome:            Failed,
			Reason:             fmt.Sprintf("%s: %q", errUnsupportedRequest, req.Kind),
			Data:               map[string]any{},
		}
	}

	if res.OK() {
		clog.FromContext(ctx).Info("check succeeded", "physical_resource_id", res.PhysicalResourceID)
	} else {
		span.SetStatus(codes.Error, res.Reason)
		clog.FromContext(ctx).Error("check failed", "physical_resource_id", res.PhysicalResourceID, "reason", res.Reason)
	}
	return res
}

func (c *Checker) waitAndVerify(ctx context.Context, req Request) Result {
	res := Result{
		PhysicalResourceID: PhysicalResourceID(req.RepositoryLocator, req.ImageTag),
		Outcome:            Failed,
		Data:               map[string]any{},
	}
	if req.SourceHash != "" {
		res.Data[DataSourceHash] = req.SourceHash
	}

	if err := validate(req.Target); err != nil {
		res.Reason = err.Error()
		return res
	}

	id, err := c.waitForPipeline(ctx, req.PipelineName)
	res.ExecutionID = id
	if err != nil {
		res.Reason = err.Error()
		return res
	}

	if err := c.verifyImage(ctx, req.RepositoryLocator, req.ImageTag); err != nil {
		res.Reason = err.Error()
		return res
	}

	res.Outcome = Success
	res.Data[DataImageAvailable] = true
	return res
}

// waitForPipeline polls until the most recent execution of the pipeline
// succeeds, fails, or ctx is done. It returns the id of the last execution
// observed.
func (c *Checker) waitForPipeline(ctx context.Context, pipelineName string) (string, error) {
	ctx, span := c.tracer.Start(ctx, "checker.waitForPipeline")
	defer span.End()

	log := clog.FromContext(ctx)
	var last string
	for polls := 1; ; polls++ {
		execs, err := c.pipelines.ListExecutions(ctx, pipelineName)
		if err != nil {
			if ctx.Err() != nil {
				return last, timeoutError(ctx, pipelineName)
			}
			return last, fmt.Errorf("%w: %w", errListExecutions, err)
		}

		// A pipeline triggered by an upstream upload may not have registered
		// an execution yet.
		if len(execs) == 0 {
			log.Info("no pipeline executions yet", "poll", polls)
		} else {
			cur := execs[0]
			last = cur.ID
			span.SetAttributes(attribute.String("execution_id", cur.ID), attribute.String("status", string(cur.Status)))

			switch {
			case cur.Status == StatusSucceeded:
				log.Info("pipeline execution succeeded", "execution_id", cur.ID, "poll", polls)
				return cur.ID, nil
			case cur.Status.Terminal():
				return cur.ID, &ExecutionError{ExecutionID: cur.ID, Status: cur.Status}
			}
			log.Info("waiting for pipeline execution", "execution_id", cur.ID, "status", cur.Status, "poll", polls)
		}

		t := time.NewTimer(c.interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return last, timeoutError(ctx, pipelineName)
		case <-t.C:
		}
	}
}

// verifyImage performs a single registry lookup for the image.
func (c *Checker) verifyImage(ctx context.Context, locator, tag string) error {
	ctx, span := c.tracer.Start(ctx, "checker.verifyImage", trace.WithAttributes(
		attribute.String("repository_locator", locator),
		attribute.String("image_tag", tag),
	))
	defer span.End()

	repo, err := RepositoryName(locator)
	if err != nil {
		return fmt.Errorf("%w: %w", errImageNotAvailable, err)
	}

	img := Image{Locator: locator, Repository: repo, Tag: tag}
	if err := c.registry.DescribeImage(ctx, img); err != nil {
		return fmt.Errorf("%w: %w", errImageNotAvailable, err)
	}

	clog.FromContext(ctx).Info("image is available", "repository", repo, "tag", tag)
	return nil
}

// RepositoryName returns the final "/" delimited segment of a repository
// locator.
func RepositoryName(locator string) (string, error) {
	locator = strings.TrimSpace(locator)
	i := strings.LastIndex(locator, "/")
	name := locator[i+1:]
	if name == "" {
		return "", fmt.Errorf("%w: %q", errMalformedLocator, locator)
	}
	return name, nil
}

func validate(t Target) error {
	var missing []string
	if t.PipelineName == "" {
		missing = append(missing, "pipeline name")
	}
	if t.RepositoryLocator == "" {
		missing = append(missing, "repository locator")
	}
	if t.ImageTag == "" {
		missing = append(missing, "image tag")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", errInvalidRequest, strings.Join(missing, ", "))
	}
	return nil
}

func timeoutError(ctx context.Context, pipelineName string) error {
	return fmt.Errorf("%w waiting for pipeline %s execution: %w", errTimedOut, pipelineName, context.Cause(ctx))
}
