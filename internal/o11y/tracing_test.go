package o11y

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupTracing_Disabled(t *testing.T) {
	t.Setenv(EndpointEnv, "")

	shutdown, err := SetupTracing(context.Background(), "imagecheck")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
