package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "photobucket-photos", cfg.Dynamo.Table)
	assert.Equal(t, "photobucket-originals", cfg.Storage.Bucket)
	assert.Equal(t, "photos:enrich", cfg.Redis.Stream)
	assert.Equal(t, "enrich-workers", cfg.Redis.Group)
	assert.Equal(t, 30*time.Second, cfg.Vision.Timeout)
	assert.Equal(t, 4, cfg.Enrich.MaxConcurrent)
	assert.Equal(t, 15*time.Minute, cfg.Enrich.StuckThreshold)
}
