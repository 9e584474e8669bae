package profile

import (
	"os"
	"path/filepath"
	"testing"

	"swingdesk/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const profileYAML = `profiles:
  default:
    description: 基准档位，不做覆盖
  conservative:
    description: 降风险档位
    overrides:
      risk:
        risk_pct: 0.005
        max_position_pct: 0.1
        regime_risk_multiplier: 0
      universe:
        min_price: 10
  earnings-window:
    description: 财报周档位
    overrides:
      risk:
        risk_pct: 0.0075
      management:
        time_stop_days: 5
`

func writeProfileFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRegistryResolveOverrides(t *testing.T) {
	r, err := NewRegistry(writeProfileFile(t, profileYAML))
	require.NoError(t, err)

	base := config.Default().Strategy
	assert.Equal(t, []string{"conservative", "default", "earnings-window"}, r.IDs())

	merged, err := r.Resolve("conservative", base)
	require.NoError(t, err)
	assert.Equal(t, 0.005, merged.Risk.RiskPct)
	assert.Equal(t, 0.1, merged.Risk.MaxPositionPct)
	assert.Equal(t, 10.0, merged.Universe.MinPrice)
	// 显式 0 的市况乘数要落成指向 0 的指针，表示"全停"而非"无覆盖"。
	require.NotNil(t, merged.Risk.RegimeRiskMultiplier)
	assert.Equal(t, 0.0, *merged.Risk.RegimeRiskMultiplier)
	// 未覆盖的字段沿用基础配置
	assert.Equal(t, base.Risk.StopMultiple, merged.Risk.StopMultiple)
	assert.Equal(t, base.Universe.MaxAtrPct, merged.Universe.MaxAtrPct)
	// 入参不被修改
	assert.Nil(t, base.Risk.RegimeRiskMultiplier)

	same, err := r.Resolve("", base)
	require.NoError(t, err)
	assert.Equal(t, base, same)

	_, err = r.Resolve("yolo", base)
	assert.Error(t, err)
}

func TestRegistryProfileWithoutOverrides(t *testing.T) {
	r, err := NewRegistry(writeProfileFile(t, profileYAML))
	require.NoError(t, err)
	base := config.Default().Strategy
	merged, err := r.Resolve("default", base)
	require.NoError(t, err)
	assert.Equal(t, base, merged)
}

func TestRegistryRejectsWrongUnits(t *testing.T) {
	// risk_pct 是 ratio：写成 percent（1.5 > 1）应当在加载期被 schema 拒绝。
	bad := `profiles:
  fat-finger:
    overrides:
      risk:
        risk_pct: 1.5
`
	_, err := NewRegistry(writeProfileFile(t, bad))
	assert.Error(t, err)
}

func TestRegistryRejectsUnknownFields(t *testing.T) {
	bad := `profiles:
  typo:
    overrides:
      risk:
        risk_percent: 0.01
`
	_, err := NewRegistry(writeProfileFile(t, bad))
	assert.Error(t, err)
}

func TestRegistrySnapshotVersionAdvances(t *testing.T) {
	path := writeProfileFile(t, profileYAML)
	r, err := NewRegistry(path)
	require.NoError(t, err)
	snap := r.Snapshot()
	assert.Equal(t, int64(1), snap.Version)
	require.NoError(t, r.reload())
	assert.Equal(t, int64(2), r.Snapshot().Version)
}
