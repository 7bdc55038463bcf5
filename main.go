package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/chainguard-dev/clog"
	log2 "github.com/chainguard-dev/terraform-provider-imagecheck/internal/log"
	"github.com/chainguard-dev/terraform-provider-imagecheck/internal/o11y"
	"github.com/chainguard-dev/terraform-provider-imagecheck/internal/provider"
	"github.com/hashicorp/terraform-plugin-framework/providerserver"
)

// Run "go generate" to format example terraform files.
//go:generate terraform fmt -recursive ./examples/

// these will be set by the goreleaser configuration
// to appropriate values for the compiled binary.
var version string = "dev"

func main() {
	var debug bool
	flag.BoolVar(&debug, "debug", false, "set to true to run the provider with support for debuggers like delve")
	flag.Parse()

	opts := providerserver.ServeOpts{
		Address: "registry.terraform.io/chainguard-dev/imagecheck",
		Debug:   debug,
	}

	ctx := context.Background()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	ctx = setupLog(ctx)

	shutdown, err := o11y.SetupTracing(ctx, "terraform-provider-imagecheck")
	if err != nil {
		log.Fatal(err.Error())
	}
	defer func() {
		if err := shutdown(context.WithoutCancel(ctx)); err != nil {
			clog.WarnContext(ctx, "failed to shut down tracing", "error", err.Error())
		}
	}()

	if err := providerserver.Serve(ctx, provider.New(version), opts); err != nil {
		log.Fatal(err.Error())
	}
}

// setupLog sets up the default logging configuration.
func setupLog(ctx context.Context) context.Context {
	logger := log2.NewTerraform()
	ctx = clog.WithLogger(ctx, logger)
	slog.SetDefault(&logger.Logger)
	return ctx
}
