package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func trade(r float64, exitDay int) Trade {
	return Trade{
		Ticker:     "TEST",
		EntryDate:  day(exitDay - 5),
		ExitDate:   day(exitDay),
		R:          r,
		ExitReason: ExitReasonStop,
	}
}

func yearWindow() Window {
	return Window{Start: day(0), End: day(0).AddDate(1, 0, 0)}
}

func TestAggregateEmptySet(t *testing.T) {
	report := Aggregate(nil, yearWindow(), CostParams{})

	assert.Equal(t, 0, report.Trades)
	assert.Nil(t, report.WinRate)
	assert.Nil(t, report.AvgWinR)
	assert.Nil(t, report.AvgLossR)
	assert.Nil(t, report.ExpectancyR)
	assert.Nil(t, report.ProfitFactorR)
	assert.Nil(t, report.MaxDrawdownR)
	assert.Nil(t, report.TradeFrequencyPerYear)
	assert.Nil(t, report.AvgCostR)
	assert.Nil(t, report.FeeImpactPct)
	require.Len(t, report.RRDistribution, 5)
	for _, b := range report.RRDistribution {
		assert.Zero(t, b.Count)
	}
}

func TestAggregateBasicStats(t *testing.T) {
	trades := []Trade{
		trade(2, 10),
		trade(1, 20),
		trade(-1, 30),
		trade(0, 40), // 既不算赢也不算输，但计入总数
	}
	report := Aggregate(trades, yearWindow(), CostParams{})

	assert.Equal(t, 4, report.Trades)
	assert.Equal(t, 2, report.Wins)
	assert.Equal(t, 1, report.Losses)
	require.NotNil(t, report.WinRate)
	assert.InDelta(t, 0.5, *report.WinRate, 1e-9)
	require.NotNil(t, report.ExpectancyR)
	assert.InDelta(t, 0.5, *report.ExpectancyR, 1e-9)
	require.NotNil(t, report.AvgWinR)
	assert.InDelta(t, 1.5, *report.AvgWinR, 1e-9)
	require.NotNil(t, report.AvgLossR)
	assert.InDelta(t, -1.0, *report.AvgLossR, 1e-9)
	require.NotNil(t, report.ProfitFactorR)
	assert.InDelta(t, 3.0, *report.ProfitFactorR, 1e-9)
}

func TestAggregateProfitFactorNilWithoutLosers(t *testing.T) {
	report := Aggregate([]Trade{trade(1, 1), trade(2, 2)}, yearWindow(), CostParams{})
	assert.Nil(t, report.ProfitFactorR)
	assert.Nil(t, report.AvgLossR)
	require.NotNil(t, report.AvgWinR)
}

func TestAggregateAvgWinNilWithoutWinners(t *testing.T) {
	report := Aggregate([]Trade{trade(-0.5, 1)}, yearWindow(), CostParams{})
	assert.Nil(t, report.AvgWinR)
	require.NotNil(t, report.AvgLossR)
	assert.InDelta(t, -0.5, *report.AvgLossR, 1e-9)
}

func TestAggregateDrawdownUsesExitOrder(t *testing.T) {
	// 输入乱序：按平仓时间排好是 +1, -1, -1, +2 → 峰值 1，谷底 -1，回撤 2。
	trades := []Trade{
		trade(2, 40),
		trade(-1, 20),
		trade(1, 10),
		trade(-1, 30),
	}
	report := Aggregate(trades, yearWindow(), CostParams{})
	require.NotNil(t, report.MaxDrawdownR)
	assert.InDelta(t, 2.0, *report.MaxDrawdownR, 1e-9)
}

func TestAggregateDrawdownSingleLoss(t *testing.T) {
	report := Aggregate([]Trade{trade(-1.5, 1)}, yearWindow(), CostParams{})
	require.NotNil(t, report.MaxDrawdownR)
	assert.InDelta(t, 1.5, *report.MaxDrawdownR, 1e-9)
}

func TestAggregateFrequencyFromWindow(t *testing.T) {
	// 频率来自请求区间：两年只有 4 笔 → 2/年，而不是除以交易自身的跨度。
	w := Window{Start: day(0), End: day(0).AddDate(2, 0, 0)}
	trades := []Trade{trade(1, 1), trade(1, 2), trade(1, 3), trade(1, 4)}
	report := Aggregate(trades, w, CostParams{})
	require.NotNil(t, report.TradeFrequencyPerYear)
	assert.InDelta(t, 2.0, *report.TradeFrequencyPerYear, 0.01)

	t.Run("invalid window leaves frequency nil", func(t *testing.T) {
		report := Aggregate(trades, Window{}, CostParams{})
		assert.Nil(t, report.TradeFrequencyPerYear)
	})
}

func TestAggregateRRDistribution(t *testing.T) {
	trades := []Trade{
		trade(-1.5, 1), // < -1R
		trade(-1.0, 2), // -1R to 0（左闭）
		trade(-0.2, 3), // -1R to 0
		trade(0, 4),    // 0 to 1R（左闭）
		trade(0.8, 5),  // 0 to 1R
		trade(1.0, 6),  // 1R to 2R（左闭）
		trade(2.0, 7),  // > 2R
		trade(3.5, 8),  // > 2R
	}
	report := Aggregate(trades, yearWindow(), CostParams{})

	counts := map[string]int{}
	total := 0
	for _, b := range report.RRDistribution {
		counts[b.Label] = b.Count
		total += b.Count
	}
	assert.Equal(t, len(trades), total)
	assert.Equal(t, 1, counts["< -1R"])
	assert.Equal(t, 2, counts["-1R to 0"])
	assert.Equal(t, 2, counts["0 to 1R"])
	assert.Equal(t, 1, counts["1R to 2R"])
	assert.Equal(t, 2, counts["> 2R"])
}

func TestAggregateCostImpact(t *testing.T) {
	tr := Trade{
		Ticker:       "COST",
		EntryDate:    day(0),
		ExitDate:     day(5),
		R:            2,
		ExitReason:   ExitReasonTarget,
		EntryPrice:   100,
		ExitPrice:    110,
		RiskPerShare: 5,
	}
	costs := CostParams{CommissionPct: 0.1, SlippageBps: 10, FxPct: 0}
	report := Aggregate([]Trade{tr}, yearWindow(), costs)

	// 双边成交额 210，每股成本 210*(0.001+0.001)=0.42 → 0.42/5 = 0.084R
	assert.InDelta(t, 0.084, report.TotalCostR, 1e-9)
	assert.InDelta(t, 2.0, report.GrossRTotal, 1e-9)
	assert.InDelta(t, 2.0-0.084, report.NetRTotal, 1e-9)
	require.NotNil(t, report.AvgCostR)
	assert.InDelta(t, 0.084, *report.AvgCostR, 1e-9)
	require.NotNil(t, report.FeeImpactPct)
	assert.InDelta(t, 0.042, *report.FeeImpactPct, 1e-9)

	t.Run("no risk basis no cost", func(t *testing.T) {
		tr := trade(1, 1) // RiskPerShare 为 0
		report := Aggregate([]Trade{tr}, yearWindow(), costs)
		assert.Zero(t, report.TotalCostR)
		assert.InDelta(t, report.GrossRTotal, report.NetRTotal, 1e-9)
	})
	t.Run("zero gross leaves impact nil", func(t *testing.T) {
		a, b := tr, tr
		a.R, b.R = 1, -1
		b.ExitDate = day(6)
		report := Aggregate([]Trade{a, b}, yearWindow(), costs)
		assert.Nil(t, report.FeeImpactPct)
		assert.Positive(t, report.TotalCostR)
	})
}

func TestAggregateDoesNotMutateInput(t *testing.T) {
	trades := []Trade{trade(2, 40), trade(-1, 10)}
	Aggregate(trades, yearWindow(), CostParams{})
	assert.Equal(t, 2.0, trades[0].R)
	assert.Equal(t, day(40), trades[0].ExitDate)
}
