package provider

import (
	"context"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/chainguard-dev/terraform-provider-imagecheck/internal/checker"
	"github.com/chainguard-dev/terraform-provider-imagecheck/internal/provider/framework"
	"github.com/hashicorp/terraform-plugin-framework-timeouts/resource/timeouts"
	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/resource"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema/stringdefault"
	"github.com/hashicorp/terraform-plugin-framework/types"
)

const (
	// Matches the 15 minute ceiling a lambda backed custom resource gets.
	defaultImageAvailabilityTimeout = 15 * time.Minute
)

var (
	_ resource.ResourceWithConfigure = &ImageAvailabilityResource{}
	_ framework.CreateOrUpdater      = &ImageAvailabilityResource{}
)

func NewImageAvailabilityResource() resource.Resource {
	return &ImageAvailabilityResource{WithTypeName: "image_availability"}
}

// ImageAvailabilityResource blocks apply until the pipeline has published the
// image. It owns nothing remotely, so Read and Delete are no-ops.
type ImageAvailabilityResource struct {
	framework.WithTypeName
	framework.WithNoOpRead

	store *ProviderStore
}

type ImageAvailabilityResourceModel struct {
	Id             types.String   `tfsdk:"id"`
	PipelineName   types.String   `tfsdk:"pipeline_name"`
	RepositoryUri  types.String   `tfsdk:"repository_uri"`
	ImageTag       types.String   `tfsdk:"image_tag"`
	SourceHash     types.String   `tfsdk:"source_hash"`
	ImageAvailable types.Bool     `tfsdk:"image_available"`
	ExecutionId    types.String   `tfsdk:"execution_id"`
	Timeouts       timeouts.Value `tfsdk:"timeouts"`
}

func (r *ImageAvailabilityResource) Schema(ctx context.Context, _ resource.SchemaRequest, resp *resource.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "Waits for the most recent execution of a build pipeline to succeed, then confirms the image it publishes exists in the registry.",
		Attributes: map[string]schema.Attribute{
			"id": schema.StringAttribute{
				Description: "The image identity, `<repository_uri>:<image_tag>`.",
				Computed:    true,
			},
			"pipeline_name": schema.StringAttribute{
				Description: "The name of the pipeline that builds and pushes the image.",
				Required:    true,
			},
			"repository_uri": schema.StringAttribute{
				Description: "The URI of the repository the pipeline pushes to. The final path segment is the repository name.",
				Required:    true,
			},
			"image_tag": schema.StringAttribute{
				Description: "The tag the pipeline publishes.",
				Optional:    true,
				Computed:    true,
				Default:     stringdefault.StaticString("latest"),
			},
			"source_hash": schema.StringAttribute{
				Description: "A fingerprint of the source tree that triggered the build. Changing it re-runs the check.",
				Optional:    true,
			},
			"image_available": schema.BoolAttribute{
				Description: "Whether the image was confirmed in the registry.",
				Computed:    true,
			},
			"execution_id": schema.StringAttribute{
				Description: "The pipeline execution that produced the image.",
				Computed:    true,
			},
			"timeouts": timeouts.Attributes(ctx, timeouts.Opts{
				Create: true,
				Update: true,
			}),
		},
	}
}

func (r *ImageAvailabilityResource) Configure(_ context.Context, req resource.ConfigureRequest, resp *resource.ConfigureResponse) {
	// Prevent panic if the provider has not been configured.
	if req.ProviderData == nil {
		return
	}

	store, ok := req.ProviderData.(*ProviderStore)
	if !ok {
		resp.Diagnostics.AddError("invalid provider data", "expected *ProviderStore")
		return
	}

	r.store = store
}

func (r *ImageAvailabilityResource) Create(ctx context.Context, req resource.CreateRequest, resp *resource.CreateResponse) {
	framework.Create(ctx, r, req, resp)
}

func (r *ImageAvailabilityResource) Update(ctx context.Context, req resource.UpdateRequest, resp *resource.UpdateResponse) {
	framework.Update(ctx, r, req, resp)
}

// CreateOrUpdate waits for the image. An update reruns the whole check
// against the latest execution, which the change that prompted the update
// has already started.
func (r *ImageAvailabilityResource) CreateOrUpdate(ctx context.Context, req framework.CreateOrUpdateRequest, resp *framework.CreateOrUpdateResponse) {
	var data ImageAvailabilityResourceModel
	resp.Diagnostics.Append(req.Plan.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	kind, readTimeout := checker.Create, data.Timeouts.Create
	if req.Update {
		kind, readTimeout = checker.Update, data.Timeouts.Update
	}

	timeout, diags := readTimeout(ctx, defaultImageAvailabilityTimeout)
	resp.Diagnostics.Append(diags...)
	if resp.Diagnostics.HasError() {
		return
	}

	resp.Diagnostics.Append(r.do(ctx, kind, timeout, &data)...)
	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func (r *ImageAvailabilityResource) Delete(ctx context.Context, req resource.DeleteRequest, resp *resource.DeleteResponse) {
	var data ImageAvailabilityResourceModel
	resp.Diagnostics.Append(req.State.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	res := r.store.checker.Check(ctx, checker.Request{
		Kind:               checker.Delete,
		PhysicalResourceID: data.Id.ValueString(),
	})
	if !res.OK() {
		resp.Diagnostics.AddError("failed to delete image availability check", res.Reason)
	}
}

func (r *ImageAvailabilityResource) do(ctx context.Context, kind checker.RequestKind, timeout time.Duration, data *ImageAvailabilityResourceModel) diag.Diagnostics {
	ctx = clog.WithValues(ctx, "pipeline", data.PipelineName.ValueString(), "repository_uri", data.RepositoryUri.ValueString())

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	clog.InfoContext(ctx, "waiting for image", "timeout", timeout.String())
	res := r.store.checker.Check(ctx, checker.Request{
		Kind:               kind,
		PhysicalResourceID: data.Id.ValueString(),
		Target: checker.Target{
			PipelineName:      data.PipelineName.ValueString(),
			RepositoryLocator: data.RepositoryUri.ValueString(),
			ImageTag:          data.ImageTag.ValueString(),
			SourceHash:        data.SourceHash.ValueString(),
		},
	})

	data.Id = types.StringValue(res.PhysicalResourceID)
	data.ExecutionId = types.StringValue(res.ExecutionID)
	data.ImageAvailable = types.BoolValue(res.OK())

	if !res.OK() {
		return diag.Diagnostics{diag.NewErrorDiagnostic("image is not available", res.Reason)}
	}
	return nil
}
