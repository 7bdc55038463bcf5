package provider

import (
	"context"
	"fmt"

	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/datasource/schema"
	"github.com/hashicorp/terraform-plugin-framework/types"
)

var _ datasource.DataSourceWithConfigure = &PipelineExecutionDataSource{}

func NewPipelineExecutionDataSource() datasource.DataSource {
	return &PipelineExecutionDataSource{}
}

// PipelineExecutionDataSource reports the most recently started execution of
// a pipeline without waiting on it.
type PipelineExecutionDataSource struct {
	store *ProviderStore
}

type PipelineExecutionDataSourceModel struct {
	PipelineName types.String `tfsdk:"pipeline_name"`
	ExecutionId  types.String `tfsdk:"execution_id"`
	Status       types.String `tfsdk:"status"`
}

func (d *PipelineExecutionDataSource) Metadata(_ context.Context, req datasource.MetadataRequest, resp *datasource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_pipeline_execution"
}

func (d *PipelineExecutionDataSource) Schema(_ context.Context, _ datasource.SchemaRequest, resp *datasource.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "The most recently started execution of a pipeline. Both computed attributes are empty when the pipeline has never run.",
		Attributes: map[string]schema.Attribute{
			"pipeline_name": schema.StringAttribute{
				Description: "The name of the pipeline.",
				Required:    true,
			},
			"execution_id": schema.StringAttribute{
				Description: "The id of the most recent execution.",
				Computed:    true,
			},
			"status": schema.StringAttribute{
				Description: "The status of the most recent execution, e.g. InProgress or Succeeded.",
				Computed:    true,
			},
		},
	}
}

func (d *PipelineExecutionDataSource) Configure(_ context.Context, req datasource.ConfigureRequest, resp *datasource.ConfigureResponse) {
	// Prevent panic if the provider has not been configured.
	if req.ProviderData == nil {
		return
	}

	store, ok := req.ProviderData.(*ProviderStore)
	if !ok {
		resp.Diagnostics.AddError("invalid provider data", "expected *ProviderStore")
		return
	}

	d.store = store
}

func (d *PipelineExecutionDataSource) Read(ctx context.Context, req datasource.ReadRequest, resp *datasource.ReadResponse) {
	var data PipelineExecutionDataSourceModel
	resp.Diagnostics.Append(req.Config.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	execs, err := d.store.pipelines.ListExecutions(ctx, data.PipelineName.ValueString())
	if err != nil {
		resp.Diagnostics.AddError("failed to read pipeline executions", fmt.Sprintf("pipeline %s: %s", data.PipelineName.ValueString(), err))
		return
	}

	data.ExecutionId = types.StringValue("")
	data.Status = types.StringValue("")
	if len(execs) > 0 {
		data.ExecutionId = types.StringValue(execs[0].ID)
		data.Status = types.StringValue(string(execs[0].Status))
	}

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}
