package safety

import (
	"testing"

	"swingdesk/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestIsConfiguredSingleFieldCheck(t *testing.T) {
	cfg := baseline()
	assert.False(t, IsConfigured(cfg))

	t.Run("changing only risk pct does not flip", func(t *testing.T) {
		cfg := baseline()
		cfg.Risk.RiskPct = 0.005
		assert.False(t, IsConfigured(cfg))
	})
	t.Run("changing account size flips regardless of other fields", func(t *testing.T) {
		cfg := baseline()
		cfg.Risk.AccountSize = config.DefaultAccountSize + 1
		assert.True(t, IsConfigured(cfg))
	})
}

func TestGetReadiness(t *testing.T) {
	notReady := GetReadiness(baseline())
	assert.False(t, notReady.IsReady)
	assert.NotEmpty(t, notReady.Message)
	assert.NotEmpty(t, notReady.ActionItems)

	cfg := baseline()
	cfg.Risk.AccountSize = 50000
	ready := GetReadiness(cfg)
	assert.True(t, ready.IsReady)
	assert.Empty(t, ready.ActionItems)
	assert.NotNil(t, ready.ActionItems)
}
