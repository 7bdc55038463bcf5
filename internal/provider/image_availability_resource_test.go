package provider

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/chainguard-dev/terraform-provider-imagecheck/internal/checker"
	fwresource "github.com/hashicorp/terraform-plugin-framework/resource"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-testing/helper/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRepositoryURI = "123456789012.dkr.ecr.us-east-1.amazonaws.com/app-runner-repo"

func TestImageAvailabilityResource_Schema(t *testing.T) {
	ctx := context.Background()
	resp := &fwresource.SchemaResponse{}
	NewImageAvailabilityResource().Schema(ctx, fwresource.SchemaRequest{}, resp)
	require.False(t, resp.Diagnostics.HasError(), resp.Diagnostics)

	diags := resp.Schema.ValidateImplementation(ctx)
	require.False(t, diags.HasError(), diags)
}

func TestImageAvailabilityResource_Do(t *testing.T) {
	tests := []struct {
		name        string
		status      checker.Status
		registryErr error
		wantOK      bool
		wantDetail  string
		wantLookups int
	}{
		{
			name:        "available",
			status:      checker.StatusSucceeded,
			wantOK:      true,
			wantLookups: 1,
		},
		{
			name:       "pipeline failed",
			status:     checker.StatusFailed,
			wantDetail: "Pipeline execution Failed",
		},
		{
			name:        "image missing",
			status:      checker.StatusSucceeded,
			registryErr: errors.New("ImageNotFoundException"),
			wantDetail:  "not available",
			wantLookups: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePipelines{status: tt.status}
			reg := &fakeRegistry{err: tt.registryErr}
			r := &ImageAvailabilityResource{store: testStore(p, reg)}

			data := &ImageAvailabilityResourceModel{
				PipelineName:  types.StringValue("build-123"),
				RepositoryUri: types.StringValue(testRepositoryURI),
				ImageTag:      types.StringValue("latest"),
				SourceHash:    types.StringNull(),
			}

			diags := r.do(context.Background(), checker.Create, time.Minute, data)

			assert.Equal(t, testRepositoryURI+":latest", data.Id.ValueString())
			assert.Equal(t, "exec-1", data.ExecutionId.ValueString())
			assert.Equal(t, tt.wantOK, data.ImageAvailable.ValueBool())
			assert.Equal(t, tt.wantLookups, reg.calls)

			if tt.wantOK {
				require.False(t, diags.HasError(), diags)
				return
			}
			require.True(t, diags.HasError())
			assert.Contains(t, diags.Errors()[0].Detail(), tt.wantDetail)
		})
	}
}

func TestImageAvailabilityResource_DoTimeout(t *testing.T) {
	p := &fakePipelines{status: checker.StatusInProgress}
	r := &ImageAvailabilityResource{store: &ProviderStore{
		checker:   checker.New(p, &fakeRegistry{}, checker.WithPollInterval(time.Millisecond)),
		pipelines: p,
	}}

	data := &ImageAvailabilityResourceModel{
		PipelineName:  types.StringValue("build-123"),
		RepositoryUri: types.StringValue(testRepositoryURI),
		ImageTag:      types.StringValue("latest"),
	}

	diags := r.do(context.Background(), checker.Update, 20*time.Millisecond, data)
	require.True(t, diags.HasError())
	assert.Contains(t, diags.Errors()[0].Detail(), "timed out")
	assert.False(t, data.ImageAvailable.ValueBool())
}

func TestAccImageAvailabilityResource(t *testing.T) {
	p := &fakePipelines{status: checker.StatusSucceeded}
	reg := &fakeRegistry{}

	cfg := func(hash string) string {
		return `
resource "imagecheck_image_availability" "app" {
  pipeline_name  = "build-123"
  repository_uri = "` + testRepositoryURI + `"
  source_hash    = "` + hash + `"
}

data "imagecheck_pipeline_execution" "build" {
  pipeline_name = "build-123"
}
`
	}

	resource.Test(t, resource.TestCase{
		ProtoV6ProviderFactories: testProviderFactories(testStore(p, reg)),
		Steps: []resource.TestStep{
			{
				Config: cfg("aaaa"),
				Check: resource.ComposeAggregateTestCheckFunc(
					resource.TestCheckResourceAttr("imagecheck_image_availability.app", "id", testRepositoryURI+":latest"),
					resource.TestCheckResourceAttr("imagecheck_image_availability.app", "image_tag", "latest"),
					resource.TestCheckResourceAttr("imagecheck_image_availability.app", "image_available", "true"),
					resource.TestCheckResourceAttr("imagecheck_image_availability.app", "execution_id", "exec-1"),
					resource.TestCheckResourceAttr("data.imagecheck_pipeline_execution.build", "status", "Succeeded"),
				),
			},
			{
				// A new source hash re-runs the check in place.
				Config: cfg("bbbb"),
				Check: resource.ComposeAggregateTestCheckFunc(
					resource.TestCheckResourceAttr("imagecheck_image_availability.app", "source_hash", "bbbb"),
					resource.TestCheckResourceAttr("imagecheck_image_availability.app", "image_available", "true"),
				),
			},
		},
	})
}

func TestAccImageAvailabilityResource_PipelineFailed(t *testing.T) {
	p := &fakePipelines{status: checker.StatusFailed}
	reg := &fakeRegistry{}

	resource.Test(t, resource.TestCase{
		ProtoV6ProviderFactories: testProviderFactories(testStore(p, reg)),
		Steps: []resource.TestStep{{
			Config: `
resource "imagecheck_image_availability" "app" {
  pipeline_name  = "build-123"
  repository_uri = "` + testRepositoryURI + `"
}
`,
			ExpectError: regexp.MustCompile(`Pipeline execution Failed`),
		}},
	})
}
