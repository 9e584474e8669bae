package riskmath

import (
	"math"
	"testing"

	"swingdesk/internal/types"

	"github.com/stretchr/testify/assert"
)

func fp(v float64) *float64 { return &v }

func openPosition() types.Position {
	return types.Position{
		Ticker:     "AAPL",
		Status:     types.PositionStatusOpen,
		EntryPrice: 100,
		StopPrice:  95,
		Shares:     50,
	}
}

func TestPnLReferencePriceResolution(t *testing.T) {
	t.Run("exit price wins over everything", func(t *testing.T) {
		p := openPosition()
		p.ExitPrice = fp(110)
		p.CurrentPrice = fp(120)
		assert.Equal(t, 500.0, PnL(p, fp(130)))
	})
	t.Run("override wins over current price", func(t *testing.T) {
		p := openPosition()
		p.CurrentPrice = fp(120)
		assert.Equal(t, 250.0, PnL(p, fp(105)))
	})
	t.Run("current price when no override", func(t *testing.T) {
		p := openPosition()
		p.CurrentPrice = fp(104)
		assert.Equal(t, 200.0, PnL(p, nil))
	})
	t.Run("no price data yields zero", func(t *testing.T) {
		p := openPosition()
		assert.Equal(t, 0.0, PnL(p, nil))
	})
	t.Run("explicit zero exit price is a real price", func(t *testing.T) {
		p := openPosition()
		p.ExitPrice = fp(0)
		assert.Equal(t, -5000.0, PnL(p, fp(130)))
	})
}

func TestPnLPercent(t *testing.T) {
	p := openPosition()
	p.CurrentPrice = fp(110)
	assert.InDelta(t, 10.0, PnLPercent(p, nil), 1e-9)

	t.Run("zero entry price surfaces non-finite", func(t *testing.T) {
		p := openPosition()
		p.EntryPrice = 0
		p.CurrentPrice = fp(10)
		got := PnLPercent(p, nil)
		assert.True(t, math.IsInf(got, 0) || math.IsNaN(got))
	})
}

func TestRNow(t *testing.T) {
	p := openPosition()
	p.InitialRisk = fp(250) // (100-95)*50

	assert.InDelta(t, 1.0, RNow(p, 105), 1e-9)
	assert.InDelta(t, -1.0, RNow(p, 95), 1e-9)
	assert.InDelta(t, 2.0, RNow(p, 110), 1e-9)

	t.Run("missing risk basis yields exactly zero", func(t *testing.T) {
		p := openPosition()
		assert.Equal(t, 0.0, RNow(p, 500))
	})
	t.Run("zero risk basis yields exactly zero", func(t *testing.T) {
		p := openPosition()
		p.InitialRisk = fp(0)
		assert.Equal(t, 0.0, RNow(p, 500))
	})
}

func TestSummarize(t *testing.T) {
	long := openPosition()
	long.InitialRisk = fp(250)
	long.CurrentPrice = fp(105) // +250, +1R

	flat := openPosition()
	flat.Ticker = "MSFT"
	flat.InitialRisk = fp(500)
	flat.CurrentPrice = fp(100) // 0R

	closed := openPosition()
	closed.Status = types.PositionStatusClosed
	closed.ExitPrice = fp(90)

	sum := Summarize([]types.Position{long, flat, closed})
	assert.Equal(t, 2, sum.OpenPositions)
	assert.InDelta(t, 750.0, sum.TotalOpenRisk, 1e-9)
	assert.InDelta(t, 250.0, sum.TotalUnrealized, 1e-9)
	if assert.NotNil(t, sum.WeightedR) {
		// (1*250 + 0*500) / 750
		assert.InDelta(t, 1.0/3.0, *sum.WeightedR, 1e-9)
	}

	t.Run("no risk basis leaves weighted R nil", func(t *testing.T) {
		p := openPosition()
		sum := Summarize([]types.Position{p})
		assert.Nil(t, sum.WeightedR)
		assert.Equal(t, 1, sum.OpenPositions)
	})
}
