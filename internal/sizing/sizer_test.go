package sizing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fp(v float64) *float64 { return &v }

func baseInput() Input {
	return Input{
		AccountSize:    50000,
		RiskPct:        0.01,
		EntryPrice:     100,
		StopPrice:      95,
		MinShares:      1,
		MaxPositionPct: 0.2,
	}
}

func TestSizeBaseline(t *testing.T) {
	res, err := Size(baseInput())
	require.NoError(t, err)

	assert.InDelta(t, 500.0, res.RiskAmount, 1e-9)
	assert.InDelta(t, 5.0, res.RiskPerShare, 1e-9)
	assert.Equal(t, int64(100), res.SuggestedShares)
	assert.Equal(t, int64(100), res.MaxShares)
	assert.Equal(t, int64(100), res.FinalShares)
	assert.InDelta(t, 10000.0, res.PositionValue, 1e-9)
	assert.InDelta(t, 0.01, res.RiskPctTaken, 1e-9)
	assert.False(t, res.ExceedsTarget)
}

func TestSizeMaxPositionCap(t *testing.T) {
	in := baseInput()
	in.StopPrice = 99 // riskPerShare=1 → suggested 500, cap at 100
	res, err := Size(in)
	require.NoError(t, err)
	assert.Equal(t, int64(500), res.SuggestedShares)
	assert.Equal(t, int64(100), res.MaxShares)
	assert.Equal(t, int64(100), res.FinalShares)
}

func TestSizeMinSharesAppliedAfterCap(t *testing.T) {
	// 用户下限大于仓位上限时，下限赢：这是既有行为，不是缺陷。
	in := baseInput()
	in.MinShares = 150
	res, err := Size(in)
	require.NoError(t, err)
	assert.Equal(t, int64(100), res.MaxShares)
	assert.Equal(t, int64(150), res.FinalShares)
	assert.True(t, res.ExceedsTarget)
	assert.InDelta(t, 0.015, res.RiskPctTaken, 1e-9)
}

func TestSizeRegimeOverlay(t *testing.T) {
	in := baseInput()
	in.RegimeRiskMultiplier = fp(0.5)
	in.RegimeMaxPositionMultiplier = fp(0.5)
	res, err := Size(in)
	require.NoError(t, err)
	assert.InDelta(t, 250.0, res.RiskAmount, 1e-9)
	assert.Equal(t, int64(50), res.SuggestedShares)
	assert.Equal(t, int64(50), res.MaxShares)
	assert.Equal(t, int64(50), res.FinalShares)

	t.Run("explicit zero multiplier throttles to floor", func(t *testing.T) {
		in := baseInput()
		in.RegimeRiskMultiplier = fp(0)
		res, err := Size(in)
		require.NoError(t, err)
		assert.Equal(t, int64(0), res.SuggestedShares)
		assert.Equal(t, in.MinShares, res.FinalShares)
	})
}

func TestSizeInvalidSetup(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Input)
	}{
		{"entry equals stop", func(in *Input) { in.StopPrice = in.EntryPrice }},
		{"entry below stop", func(in *Input) { in.StopPrice = in.EntryPrice + 1 }},
		{"zero account", func(in *Input) { in.AccountSize = 0 }},
		{"negative account", func(in *Input) { in.AccountSize = -100 }},
		{"zero risk pct", func(in *Input) { in.RiskPct = 0 }},
		{"risk pct above one", func(in *Input) { in.RiskPct = 1.5 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := baseInput()
			tc.mutate(&in)
			_, err := Size(in)
			assert.ErrorIs(t, err, ErrInvalidSetup)
		})
	}
}

func TestSizeFloorIsExact(t *testing.T) {
	// 0.07/0.0007 在二进制浮点下是 99.9999...，floor 必须仍得 100。
	in := Input{
		AccountSize:    100,
		RiskPct:        0.0007,
		EntryPrice:     1.0,
		StopPrice:      0.9993,
		MinShares:      0,
		MaxPositionPct: 1,
	}
	res, err := Size(in)
	require.NoError(t, err)
	assert.Equal(t, int64(100), res.SuggestedShares)
}

func TestStopFromATR(t *testing.T) {
	assert.InDelta(t, 94.0, StopFromATR(100, 3, 2), 1e-9)
}
