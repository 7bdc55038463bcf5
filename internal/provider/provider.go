package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/chainguard-dev/terraform-provider-imagecheck/internal/config"
	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/provider"
	"github.com/hashicorp/terraform-plugin-framework/provider/schema"
	"github.com/hashicorp/terraform-plugin-framework/resource"
	"github.com/hashicorp/terraform-plugin-framework/types"
)

var _ provider.Provider = &ImageCheckProvider{}

// ImageCheckProvider defines the provider implementation.
type ImageCheckProvider struct {
	// version is set to the provider version on release, "dev" when the
	// provider is built and ran locally, and "test" when running acceptance
	// testing.
	version string

	// store replaces the AWS backed store when set. Used by tests.
	store *ProviderStore
}

// ImageCheckProviderModel describes the provider data model.
type ImageCheckProviderModel struct {
	Region       types.String `tfsdk:"region"`
	Registry     types.String `tfsdk:"registry"`
	PollInterval types.String `tfsdk:"poll_interval"`
}

func (p *ImageCheckProvider) Metadata(ctx context.Context, req provider.MetadataRequest, resp *provider.MetadataResponse) {
	resp.TypeName = "imagecheck"
	resp.Version = p.version
}

func (p *ImageCheckProvider) Schema(ctx context.Context, req provider.SchemaRequest, resp *provider.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "Waits for build pipelines to publish container images before dependent resources are deployed.",
		Attributes: map[string]schema.Attribute{
			"region": schema.StringAttribute{
				Description: "The AWS region of the pipeline and registry. Defaults to the region of the ambient AWS configuration.",
				Optional:    true,
			},
			"registry": schema.StringAttribute{
				Description: "The registry backend used to confirm images (ecr|oci). Defaults to ecr.",
				Optional:    true,
			},
			"poll_interval": schema.StringAttribute{
				Description: "How long to wait between pipeline status queries, as a Go duration. Defaults to 10s.",
				Optional:    true,
			},
		},
	}
}

func (p *ImageCheckProvider) Configure(ctx context.Context, req provider.ConfigureRequest, resp *provider.ConfigureResponse) {
	var data ImageCheckProviderModel
	resp.Diagnostics.Append(req.Config.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	store := p.store
	if store == nil {
		interval := time.Duration(0)
		if v := data.PollInterval.ValueString(); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil || d <= 0 {
				resp.Diagnostics.AddAttributeError(path.Root("poll_interval"), "invalid poll_interval", fmt.Sprintf("expected a positive duration, got %q", v))
				return
			}
			interval = d
		}

		backend := config.RegistryECR
		switch v := data.Registry.ValueString(); v {
		case "", config.RegistryECR:
		case config.RegistryOCI:
			backend = v
		default:
			resp.Diagnostics.AddAttributeError(path.Root("registry"), "invalid registry", fmt.Sprintf("expected %q or %q, got %q", config.RegistryECR, config.RegistryOCI, v))
			return
		}

		awsCfg, err := config.LoadAWS(ctx, data.Region.ValueString())
		if err != nil {
			resp.Diagnostics.AddError("failed to load AWS configuration", err.Error())
			return
		}
		store = NewProviderStore(awsCfg, backend, interval)
	}

	resp.DataSourceData = store
	resp.ResourceData = store
}

func (p *ImageCheckProvider) Resources(_ context.Context) []func() resource.Resource {
	return []func() resource.Resource{
		NewImageAvailabilityResource,
	}
}

func (p *ImageCheckProvider) DataSources(ctx context.Context) []func() datasource.DataSource {
	return []func() datasource.DataSource{
		NewPipelineExecutionDataSource,
	}
}

func New(version string) func() provider.Provider {
	return func() provider.Provider {
		return &ImageCheckProvider{
			version: version,
		}
	}
}
