package main

import (
	"context"
	"fmt"

	"github.com/chainguard-dev/clog"
	"github.com/chainguard-dev/terraform-provider-imagecheck/internal/config"
	"github.com/chainguard-dev/terraform-provider-imagecheck/internal/handler"
	"github.com/chainguard-dev/terraform-provider-imagecheck/internal/log"
	"github.com/spf13/cobra"
)

const serviceName = "imagecheck"

// checkerFactory builds the checker for a loaded configuration.
type checkerFactory func(ctx context.Context, cfg *config.Config) (handler.Checker, error)

func awsChecker(ctx context.Context, cfg *config.Config) (handler.Checker, error) {
	return cfg.NewChecker(ctx)
}

// app is the state shared by subcommands once the root has loaded the
// configuration.
type app struct {
	cfg        *config.Config
	newChecker checkerFactory
	closers    []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "imagecheck",
		Short: "Wait for a build pipeline to publish a container image",
		Long: `imagecheck blocks until the most recent execution of a build pipeline
succeeds, then confirms the image it publishes exists in the registry.

Configuration is read from the environment:
  PIPELINE_NAME     the pipeline that builds the image
  REPOSITORY_URI    the repository the pipeline pushes to
  IMAGE_TAG         the tag to confirm (default: latest)
  POLL_INTERVAL     delay between status queries (default: 10s)
  REGISTRY          ecr or oci (default: ecr)
  RESPONSE_MODE     record, error or cfn (default: record)
  LOG_LEVEL         debug, info, warn or error (default: info)
  LOG_FILE          also write JSON logs to this file`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			level, err := cfg.Level()
			if err != nil {
				return err
			}

			ctx := clog.WithLogger(cmd.Context(), log.NewJSON(cmd.ErrOrStderr(), level))
			ctx, closeLog := log.TeeToFile(ctx, cfg.LogFile, level)
			a.closers = append(a.closers, closeLog)

			a.cfg = cfg
			cmd.SetContext(ctx)
			return nil
		},
	}
	root.SetVersionTemplate(fmt.Sprintf("%s %s\n", serviceName, version))

	root.AddCommand(
		newLambdaCmd(a),
		newCheckCmd(a),
		newPolicyCmd(),
	)
	return root
}
