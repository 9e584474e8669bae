package indicator

import (
	"testing"

	"swingdesk/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trendingBars(n int, start, step float64) []Bar {
	bars := make([]Bar, n)
	price := start
	for i := range bars {
		bars[i] = Bar{
			High:   price * 1.01,
			Low:    price * 0.99,
			Close:  price,
			Volume: 1_000_000,
		}
		price += step
	}
	return bars
}

func universeCfg() config.UniverseConfig {
	return config.Default().Strategy.Universe
}

func TestComputeTrendingSeries(t *testing.T) {
	bars := trendingBars(120, 50, 0.5)
	snap, err := Compute(bars, universeCfg())
	require.NoError(t, err)

	assert.InDelta(t, 109.5, snap.Close, 1e-9)
	assert.True(t, snap.TrendUp, "单调上行序列快线应在慢线上方")
	assert.Greater(t, snap.ATR, 0.0)
	assert.Greater(t, snap.ATRPct, 0.0)
	assert.Less(t, snap.ATRPct, 5.0, "1% 振幅的序列 ATR% 应远低于 5")
	assert.Greater(t, snap.DollarVolM, 0.0)
}

func TestComputeNeedsEnoughBars(t *testing.T) {
	_, err := Compute(trendingBars(10, 50, 0.5), universeCfg())
	assert.Error(t, err)
}

func TestCheckUniverse(t *testing.T) {
	cfg := universeCfg()
	ok := Snapshot{Close: 50, ATRPct: 3, DollarVolM: cfg.MinDollarVolumeM + 1, TrendUp: true}
	assert.Empty(t, CheckUniverse(ok, cfg))

	bad := Snapshot{Close: cfg.MinPrice - 1, ATRPct: cfg.MaxAtrPct + 5, DollarVolM: 0, TrendUp: false}
	reasons := CheckUniverse(bad, cfg)
	assert.Len(t, reasons, 4)
}

func TestCheckUniverseMaxPriceZeroMeansNoCap(t *testing.T) {
	cfg := universeCfg()
	cfg.MaxPrice = 0
	snap := Snapshot{Close: 100000, ATRPct: 1, DollarVolM: cfg.MinDollarVolumeM + 1, TrendUp: true}
	assert.Empty(t, CheckUniverse(snap, cfg))
}
