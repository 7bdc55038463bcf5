package main

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/chainguard-dev/terraform-provider-imagecheck/internal/checker"
	"github.com/chainguard-dev/terraform-provider-imagecheck/internal/handler"
	"github.com/spf13/cobra"
)

const defaultCheckTimeout = 15 * time.Minute

var errCheckFailed = errors.New("check failed")

type checkOpts struct {
	pipeline     string
	repository   string
	tag          string
	sourceHash   string
	requestType  string
	physicalID   string
	pollInterval time.Duration
	timeout      time.Duration
}

func newCheckCmd(a *app) *cobra.Command {
	o := &checkOpts{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run a single check and print the completion record",
		Long: `Runs one check and prints the completion record as JSON. Flags override
the target read from the environment. Exits non-zero when the record's
Status is FAILED.

Examples:
  imagecheck check --pipeline build-123 \
    --repository-uri 123456789012.dkr.ecr.us-east-1.amazonaws.com/app-runner-repo
  imagecheck check --tag v2 --timeout 5m`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.run(cmd, a)
		},
	}

	cmd.Flags().StringVar(&o.pipeline, "pipeline", "", "Name of the pipeline that builds the image")
	cmd.Flags().StringVar(&o.repository, "repository-uri", "", "URI of the repository the pipeline pushes to")
	cmd.Flags().StringVar(&o.tag, "tag", "", "Image tag to confirm")
	cmd.Flags().StringVar(&o.sourceHash, "source-hash", "", "Source fingerprint to echo in the record")
	cmd.Flags().StringVar(&o.requestType, "request-type", string(checker.Create), "Request kind (Create|Update|Delete)")
	cmd.Flags().StringVar(&o.physicalID, "physical-resource-id", "", "Physical resource id of an existing resource")
	cmd.Flags().DurationVar(&o.pollInterval, "poll-interval", 0, "Delay between pipeline status queries")
	cmd.Flags().DurationVar(&o.timeout, "timeout", defaultCheckTimeout, "How long to wait before giving up")

	return cmd
}

func (o *checkOpts) run(cmd *cobra.Command, a *app) error {
	if o.pollInterval > 0 {
		a.cfg.PollInterval = o.pollInterval
	}

	c, err := a.newChecker(cmd.Context(), a.cfg)
	if err != nil {
		return err
	}

	target := a.cfg.Target()
	set(&target.PipelineName, o.pipeline)
	set(&target.RepositoryLocator, o.repository)
	set(&target.ImageTag, o.tag)
	set(&target.SourceHash, o.sourceHash)

	ctx, cancel := context.WithTimeout(cmd.Context(), o.timeout)
	defer cancel()

	res := c.Check(ctx, checker.Request{
		Kind:               checker.RequestKind(o.requestType),
		PhysicalResourceID: o.physicalID,
		Target:             target,
	})

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(handler.NewResponse(res)); err != nil {
		return err
	}

	if !res.OK() {
		return errCheckFailed
	}
	return nil
}

func set(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
