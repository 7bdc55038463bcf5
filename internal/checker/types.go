package checker

import (
	"context"
	"errors"
)

// RequestKind is the lifecycle event that triggered an invocation.
type RequestKind string

const (
	Create RequestKind = "Create"
	Update RequestKind = "Update"
	Delete RequestKind = "Delete"
)

// Outcome is the terminal state of a single invocation.
type Outcome string

const (
	Success Outcome = "SUCCESS"
	Failed  Outcome = "FAILED"
)

// Keys used in Result.Data.
const (
	DataImageAvailable = "ImageAvailable"
	DataSourceHash     = "SourceHash"
)

// Status is the state of a single pipeline execution as reported by the
// pipeline-status service.
type Status string

const (
	StatusInProgress Status = "InProgress"
	StatusStopping   Status = "Stopping"
	StatusStopped    Status = "Stopped"
	StatusSucceeded  Status = "Succeeded"
	StatusSuperseded Status = "Superseded"
	StatusFailed     Status = "Failed"
	StatusCancelled  Status = "Cancelled"
)

// Terminal reports whether the status ends the wait with a failure.
func (s Status) Terminal() bool {
	return s == StatusFailed || s == StatusStopped
}

// Execution is a point in time snapshot of one pipeline run.
type Execution struct {
	ID     string
	Status Status
}

// Image identifies the artifact the pipeline is expected to publish.
type Image struct {
	// Locator is the full repository URI, e.g.
	// 123456789012.dkr.ecr.us-east-1.amazonaws.com/app-runner-repo.
	Locator string
	// Repository is the final path segment of Locator.
	Repository string
	Tag        string
}

// Target names the pipeline and image an invocation waits on.
type Target struct {
	PipelineName      string
	RepositoryLocator string
	ImageTag          string
	// SourceHash is a fingerprint of the source tree that triggered the
	// build. It is informational only and is echoed back in Result.Data.
	SourceHash string
}

// Request is a single, immutable invocation of the checker.
type Request struct {
	Kind               RequestKind
	PhysicalResourceID string
	Target
}

// Pipelines lists executions of a pipeline, most recently started first.
type Pipelines interface {
	ListExecutions(ctx context.Context, pipelineName string) ([]Execution, error)
}

// Registry confirms an image exists. Any returned error means the image is
// not available.
type Registry interface {
	DescribeImage(ctx context.Context, image Image) error
}

// Result is the single completion record produced per Request.
type Result struct {
	PhysicalResourceID string
	Outcome            Outcome
	Reason             string
	Data               map[string]any

	// ExecutionID is the pipeline execution that satisfied the wait, if any.
	// It is not part of the wire record.
	ExecutionID string
}

// OK reports whether the outcome is Success.
func (r Result) OK() bool {
	return r.Outcome == Success
}

// Err converts a failed result into an error for hosts that signal failure
// by returning one. It returns nil for successful results.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return errors.New(r.Reason)
}
