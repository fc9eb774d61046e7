package config

import (
	"testing"
	"time"

	"github.com/spacelproject/admin-spacel-sub001/internal/pkg/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 20, cfg.Feed.InitialWindow)
	assert.Equal(t, 20, cfg.Feed.WindowIncrement)
	assert.Equal(t, 100, cfg.Feed.SourceLimit)
	assert.Equal(t, 300*time.Millisecond, cfg.Feed.LoadMoreDelay)
	assert.Equal(t, "admin_notifications", cfg.DynamoTables.Notifications)
	assert.Empty(t, cfg.AlertPhoneNumbers)
	require.NoError(t, validate.Struct(cfg.Feed))
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("FEED_INITIAL_WINDOW", "10")
	t.Setenv("FEED_REFRESH_DEBOUNCE", "2s")
	t.Setenv("ALERT_PHONE_NUMBERS", "+15550001, ,+15550002")

	cfg := Load()

	assert.Equal(t, 10, cfg.Feed.InitialWindow)
	assert.Equal(t, 2*time.Second, cfg.Feed.RefreshDebounce)
	assert.Equal(t, []string{"+15550001", "+15550002"}, cfg.AlertPhoneNumbers)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("FEED_SOURCE_LIMIT", "lots")
	t.Setenv("FEED_LOAD_MORE_DELAY", "soon")

	cfg := Load()

	assert.Equal(t, 100, cfg.Feed.SourceLimit)
	assert.Equal(t, 300*time.Millisecond, cfg.Feed.LoadMoreDelay)
}

func TestFeedConfig_ValidationNamesVariable(t *testing.T) {
	cfg := Load()
	cfg.Feed.SourceLimit = 0

	err := validate.Struct(cfg.Feed)
	assert.EqualError(t, err, "field 'FEED_SOURCE_LIMIT' failed 'min'")
}
