package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/chainguard-dev/terraform-provider-imagecheck/internal/checker"
	"github.com/chainguard-dev/terraform-provider-imagecheck/internal/config"
	"github.com/chainguard-dev/terraform-provider-imagecheck/internal/handler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRepositoryURI = "123456789012.dkr.ecr.us-east-1.amazonaws.com/app-runner-repo"

type fakeChecker struct {
	result checker.Result
	got    checker.Request
	calls  int
}

func (f *fakeChecker) Check(_ context.Context, req checker.Request) checker.Result {
	f.calls++
	f.got = req
	return f.result
}

// clearEnv unsets the configuration variables for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PIPELINE_NAME", "REPOSITORY_URI", "IMAGE_TAG", "POLL_INTERVAL", "REGISTRY",
		"RESPONSE_MODE", "DEADLINE_MARGIN", "AWS_REGION", "LOG_LEVEL", "LOG_FILE",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func execute(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(a)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	a.close()
	return stdout.String(), err
}

func TestCheckCmd(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		args    []string
		result  checker.Result
		wantReq checker.Request
		wantErr error
		want    map[string]any
	}{
		{
			name: "success from flags",
			args: []string{"check", "--pipeline", "build-123", "--repository-uri", testRepositoryURI},
			result: checker.Result{
				PhysicalResourceID: testRepositoryURI + ":latest",
				Outcome:            checker.Success,
				Data:               map[string]any{checker.DataImageAvailable: true},
			},
			wantReq: checker.Request{
				Kind: checker.Create,
				Target: checker.Target{
					PipelineName:      "build-123",
					RepositoryLocator: testRepositoryURI,
					ImageTag:          "latest",
				},
			},
			want: map[string]any{
				"Status":             "SUCCESS",
				"PhysicalResourceId": testRepositoryURI + ":latest",
				"Data":               map[string]any{"ImageAvailable": true},
			},
		},
		{
			name: "flags override environment",
			env: map[string]string{
				"PIPELINE_NAME":  "from-env",
				"REPOSITORY_URI": testRepositoryURI,
				"IMAGE_TAG":      "v1",
			},
			args: []string{"check", "--tag", "v2", "--source-hash", "abc", "--request-type", "Update", "--physical-resource-id", "old:v1"},
			result: checker.Result{
				PhysicalResourceID: testRepositoryURI + ":v2",
				Outcome:            checker.Failed,
				Reason:             "Pipeline execution Failed",
				Data:               map[string]any{},
			},
			wantReq: checker.Request{
				Kind:               checker.Update,
				PhysicalResourceID: "old:v1",
				Target: checker.Target{
					PipelineName:      "from-env",
					RepositoryLocator: testRepositoryURI,
					ImageTag:          "v2",
					SourceHash:        "abc",
				},
			},
			wantErr: errCheckFailed,
			want: map[string]any{
				"Status":             "FAILED",
				"Reason":             "Pipeline execution Failed",
				"PhysicalResourceId": testRepositoryURI + ":v2",
				"Data":               map[string]any{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			fake := &fakeChecker{result: tt.result}
			a := &app{newChecker: func(context.Context, *config.Config) (handler.Checker, error) {
				return fake, nil
			}}

			out, err := execute(t, a, tt.args...)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			assert.Equal(t, 1, fake.calls)
			assert.Equal(t, tt.wantReq, fake.got)

			var got map[string]any
			require.NoError(t, json.Unmarshal([]byte(out), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckCmd_PollInterval(t *testing.T) {
	clearEnv(t)

	var interval time.Duration
	a := &app{newChecker: func(_ context.Context, cfg *config.Config) (handler.Checker, error) {
		interval = cfg.PollInterval
		return &fakeChecker{result: checker.Result{Outcome: checker.Success}}, nil
	}}

	_, err := execute(t, a, "check", "--poll-interval", "2s")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, interval)
}

func TestCheckCmd_InvalidEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("REGISTRY", "gcr")

	fake := &fakeChecker{}
	a := &app{newChecker: func(context.Context, *config.Config) (handler.Checker, error) {
		return fake, nil
	}}

	_, err := execute(t, a, "check")
	require.ErrorContains(t, err, "REGISTRY")
	assert.Zero(t, fake.calls)
}

func TestPolicyCmd(t *testing.T) {
	// Invalid configuration does not matter to policy.
	clearEnv(t)
	t.Setenv("REGISTRY", "gcr")

	out, err := execute(t, &app{}, "policy")
	require.NoError(t, err)

	var doc policyDocument
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Statement, 1)
	assert.Equal(t, "Allow", doc.Statement[0].Effect)
	assert.ElementsMatch(t, []string{"codepipeline:ListPipelineExecutions", "ecr:DescribeImages"}, doc.Statement[0].Action)
}

func TestAppHandler(t *testing.T) {
	clearEnv(t)
	t.Setenv("PIPELINE_NAME", "build-123")
	t.Setenv("REPOSITORY_URI", testRepositoryURI)

	cfg, err := config.Load()
	require.NoError(t, err)

	fake := &fakeChecker{result: checker.Result{Outcome: checker.Success, Data: map[string]any{}}}
	a := &app{cfg: cfg, newChecker: func(context.Context, *config.Config) (handler.Checker, error) {
		return fake, nil
	}}

	h, err := a.handler(context.Background())
	require.NoError(t, err)

	req := h.Request(cfn.Event{RequestType: cfn.RequestCreate})
	assert.Equal(t, "build-123", req.PipelineName)
	assert.Equal(t, testRepositoryURI, req.RepositoryLocator)
	assert.Equal(t, "latest", req.ImageTag)
}
