package framework

import (
	"context"

	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/resource"
	"github.com/hashicorp/terraform-plugin-framework/tfsdk"
)

// CreateOrUpdater is implemented by resources whose Create and Update run the
// same logic against the planned state.
type CreateOrUpdater interface {
	CreateOrUpdate(ctx context.Context, req CreateOrUpdateRequest, resp *CreateOrUpdateResponse)
}

type CreateOrUpdateRequest struct {
	Config tfsdk.Config
	Plan   tfsdk.Plan
	// State is null on create.
	State tfsdk.State
	// Update is set when the resource already exists.
	Update bool
}

type CreateOrUpdateResponse struct {
	State       *tfsdk.State
	Diagnostics *diag.Diagnostics
}

// Create adapts a CreateOrUpdater to resource.Resource's Create.
func Create(ctx context.Context, r CreateOrUpdater, req resource.CreateRequest, resp *resource.CreateResponse) {
	r.CreateOrUpdate(ctx, CreateOrUpdateRequest{
		Config: req.Config,
		Plan:   req.Plan,
	}, &CreateOrUpdateResponse{
		State:       &resp.State,
		Diagnostics: &resp.Diagnostics,
	})
}

// Update adapts a CreateOrUpdater to resource.Resource's Update.
func Update(ctx context.Context, r CreateOrUpdater, req resource.UpdateRequest, resp *resource.UpdateResponse) {
	r.CreateOrUpdate(ctx, CreateOrUpdateRequest{
		Config: req.Config,
		Plan:   req.Plan,
		State:  req.State,
		Update: true,
	}, &CreateOrUpdateResponse{
		State:       &resp.State,
		Diagnostics: &resp.Diagnostics,
	})
}
