package noop

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublishDiscards(t *testing.T) {
	t.Parallel()

	id, err := New().Publish(context.Background(), "crawl-sessions", map[string]string{"domain": "example.com"})
	require.NoError(t, err)
	require.Empty(t, id)
}
