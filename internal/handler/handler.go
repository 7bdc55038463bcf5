// Package handler adapts the checker to CloudFormation custom resource
// events delivered through AWS Lambda.
//
// Three response conventions are supported:
//
//   - record: the completion record is returned as the function result with
//     an explicit Status. Failures are never returned as errors.
//   - error: the CDK provider framework convention. Success returns the
//     record, failure returns an error whose message is the reason.
//   - cfn: the function talks to CloudFormation directly and uploads the
//     record to the event's presigned ResponseURL.
package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/chainguard-dev/terraform-provider-imagecheck/internal/checker"
	"github.com/chainguard-dev/terraform-provider-imagecheck/internal/log"
	"github.com/google/uuid"
)

// Mode selects the response convention.
type Mode string

const (
	ModeRecord Mode = "record"
	ModeError  Mode = "error"
	ModeCFN    Mode = "cfn"
)

// Resource property keys that override the configured target.
const (
	PropPipelineName  = "PipelineName"
	PropRepositoryURI = "RepositoryUri"
	PropImageTag      = "ImageTag"
	PropSourceHash    = "SourceHash"
)

var errUnknownMode = errors.New("unknown response mode")

// Checker runs one invocation.
type Checker interface {
	Check(ctx context.Context, req checker.Request) checker.Result
}

// Response is the completion record as seen by the caller.
type Response struct {
	PhysicalResourceID string         `json:"PhysicalResourceId"`
	Status             string         `json:"Status,omitempty"`
	Reason             string         `json:"Reason,omitempty"`
	Data               map[string]any `json:"Data"`
}

type Handler struct {
	checker  Checker
	defaults checker.Target
	margin   time.Duration
}

type Option func(*Handler)

// WithDeadlineMargin stops waiting this long before the invocation deadline
// so a timeout record can still be delivered.
func WithDeadlineMargin(d time.Duration) Option {
	return func(h *Handler) {
		h.margin = d
	}
}

// New returns a Handler. defaults supplies the target for events that do not
// carry one in their resource properties.
func New(c Checker, defaults checker.Target, opts ...Option) *Handler {
	h := &Handler{checker: c, defaults: defaults}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Request converts an event into a checker request.
func (h *Handler) Request(ev cfn.Event) checker.Request {
	t := h.defaults
	override(&t.PipelineName, ev.ResourceProperties, PropPipelineName)
	override(&t.RepositoryLocator, ev.ResourceProperties, PropRepositoryURI)
	override(&t.ImageTag, ev.ResourceProperties, PropImageTag)
	override(&t.SourceHash, ev.ResourceProperties, PropSourceHash)

	return checker.Request{
		Kind:               checker.RequestKind(ev.RequestType),
		PhysicalResourceID: ev.PhysicalResourceID,
		Target:             t,
	}
}

// NewResponse renders a result as a completion record with an explicit
// Status.
func NewResponse(res checker.Result) Response {
	return Response{
		PhysicalResourceID: res.PhysicalResourceID,
		Status:             string(res.Outcome),
		Reason:             res.Reason,
		Data:               res.Data,
	}
}

// Handle runs the check and returns the record. It never returns an error.
func (h *Handler) Handle(ctx context.Context, ev cfn.Event) (Response, error) {
	return NewResponse(h.run(ctx, ev)), nil
}

// HandleOrError runs the check and returns an error for failed outcomes.
func (h *Handler) HandleOrError(ctx context.Context, ev cfn.Event) (Response, error) {
	res := h.run(ctx, ev)
	if err := res.Err(); err != nil {
		return Response{}, fmt.Errorf("failed to wait for image: %w", err)
	}
	return Response{
		PhysicalResourceID: res.PhysicalResourceID,
		Data:               res.Data,
	}, nil
}

// HandleCFN has the shape cfn.LambdaWrap expects.
func (h *Handler) HandleCFN(ctx context.Context, ev cfn.Event) (string, map[string]any, error) {
	res := h.run(ctx, ev)
	return res.PhysicalResourceID, res.Data, res.Err()
}

// Func returns the lambda handler function for the mode.
func (h *Handler) Func(mode Mode) (any, error) {
	switch mode {
	case ModeRecord, "":
		return h.Handle, nil
	case ModeError:
		return h.HandleOrError, nil
	case ModeCFN:
		return cfn.LambdaWrap(h.HandleCFN), nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownMode, mode)
	}
}

func (h *Handler) run(ctx context.Context, ev cfn.Event) checker.Result {
	ctx = log.With(ctx,
		"request_id", requestID(ctx, ev),
		"logical_resource_id", ev.LogicalResourceID,
	)

	if dl, ok := ctx.Deadline(); ok && h.margin > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, dl.Add(-h.margin))
		defer cancel()
	}

	req := h.Request(ev)
	log.Info(ctx, "handling custom resource event",
		"request_type", string(ev.RequestType),
		"pipeline", req.PipelineName,
		"repository_uri", req.RepositoryLocator,
		"image_tag", req.ImageTag,
		"source_hash", req.SourceHash,
	)
	return h.checker.Check(ctx, req)
}

// requestID prefers the lambda request id, then the CloudFormation one. Local
// invocations get a random id.
func requestID(ctx context.Context, ev cfn.Event) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	if ev.RequestID != "" {
		return ev.RequestID
	}
	return uuid.NewString()
}

func override(dst *string, props map[string]any, key string) {
	if v, ok := props[key].(string); ok && v != "" {
		*dst = v
	}
}
