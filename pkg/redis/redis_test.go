package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_New_InvalidURL(t *testing.T) {
	cfg := Config{URL: "not-a-redis-url"}

	client, err := cfg.New(context.Background())

	require.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "parse redis url")
}
