package provider

import (
	"context"
	"sync"

	"github.com/chainguard-dev/terraform-provider-imagecheck/internal/checker"
	"github.com/hashicorp/terraform-plugin-framework/providerserver"
	"github.com/hashicorp/terraform-plugin-go/tfprotov6"
)

// fakePipelines reports a fixed status for every pipeline.
type fakePipelines struct {
	mu     sync.Mutex
	status checker.Status
	calls  int
}

func (f *fakePipelines) ListExecutions(context.Context, string) ([]checker.Execution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.status == "" {
		return nil, nil
	}
	return []checker.Execution{{ID: "exec-1", Status: f.status}}, nil
}

type fakeRegistry struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (f *fakeRegistry) DescribeImage(context.Context, checker.Image) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func testStore(p *fakePipelines, r *fakeRegistry) *ProviderStore {
	return &ProviderStore{
		checker:   checker.New(p, r),
		pipelines: p,
	}
}

// testProviderFactories instantiates a provider backed by store for
// acceptance testing. The factory function is invoked for every Terraform
// CLI command executed to create a provider server to which the CLI can
// reattach.
func testProviderFactories(store *ProviderStore) map[string]func() (tfprotov6.ProviderServer, error) {
	return map[string]func() (tfprotov6.ProviderServer, error){
		"imagecheck": providerserver.NewProtocol6WithError(&ImageCheckProvider{
			version: "test",
			store:   store,
		}),
	}
}
