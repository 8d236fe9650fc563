package principal_test

import (
	"context"
	"testing"

	"github.com/opentdc/events/pkg/principal"
	"github.com/stretchr/testify/require"
)

func TestFromContext(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	require.Equal(t, principal.Anonymous, principal.FromContext(ctx))

	ctx = principal.WithContext(ctx, "bruno")
	require.Equal(t, "bruno", principal.FromContext(ctx))

	// An empty actor falls back instead of producing blank audit stamps.
	ctx = principal.WithContext(context.Background(), "")
	require.Equal(t, principal.Anonymous, principal.FromContext(ctx))
}
