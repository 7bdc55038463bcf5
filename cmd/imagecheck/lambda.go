package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/chainguard-dev/clog"
	"github.com/chainguard-dev/terraform-provider-imagecheck/internal/handler"
	"github.com/chainguard-dev/terraform-provider-imagecheck/internal/o11y"
	"github.com/spf13/cobra"
)

func newLambdaCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lambda",
		Short: "Serve CloudFormation custom resource events as an AWS Lambda function",
		Long: `Runs the AWS Lambda runtime loop. Each event is one check, answered with
a completion record in the convention named by RESPONSE_MODE.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			shutdown, err := o11y.SetupTracing(ctx, serviceName)
			if err != nil {
				return fmt.Errorf("setting up tracing: %w", err)
			}
			a.closers = append(a.closers, func() {
				if err := shutdown(context.WithoutCancel(ctx)); err != nil {
					clog.WarnContext(ctx, "failed to shut down tracing", "error", err.Error())
				}
			})

			h, err := a.handler(ctx)
			if err != nil {
				return err
			}
			fn, err := h.Func(handler.Mode(a.cfg.ResponseMode))
			if err != nil {
				return err
			}

			clog.InfoContext(ctx, "starting lambda handler",
				"version", version,
				"response_mode", a.cfg.ResponseMode,
				"registry", a.cfg.Registry,
			)
			lambda.StartWithOptions(fn,
				lambda.WithContext(ctx),
				lambda.WithEnableSIGTERM(a.close),
			)
			return nil
		},
	}
}

func (a *app) handler(ctx context.Context) (*handler.Handler, error) {
	c, err := a.newChecker(ctx, a.cfg)
	if err != nil {
		return nil, fmt.Errorf("building checker: %w", err)
	}
	return handler.New(c, a.cfg.Target(), handler.WithDeadlineMargin(a.cfg.DeadlineMargin)), nil
}
