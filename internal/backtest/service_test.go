package backtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	store, err := NewResultStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	svc, err := NewService(store)
	require.NoError(t, err)
	return svc
}

func TestServiceSubmitAndReload(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	// 全部盈利：ProfitFactorR/AvgLossR 应为 nil，且经 JSON 往返后仍是 nil。
	trades := []Trade{
		trade(1.5, 10),
		trade(0.75, 20),
		trade(0.5, 30),
	}
	run, err := svc.Submit(ctx, SubmitParams{
		Name:    "breakout-3y",
		Profile: "default",
		Window:  yearWindow(),
		Costs:   CostParams{CommissionPct: 0.1, SlippageBps: 5},
		Trades:  trades,
	})
	require.NoError(t, err)
	assert.Equal(t, RunStatusDone, run.Status)
	assert.Equal(t, 3, run.Report.Trades)

	loaded, err := svc.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, loaded.ID)
	assert.Equal(t, RunStatusDone, loaded.Status)
	assert.Equal(t, 3, loaded.Report.Trades)
	require.NotNil(t, loaded.Report.WinRate)
	assert.InDelta(t, 1.0, *loaded.Report.WinRate, 1e-9)
	// nil 比值字段经过 JSON 往返仍是 nil，而不是 0。
	assert.Nil(t, loaded.Report.ProfitFactorR)
	assert.Nil(t, loaded.Report.AvgLossR)

	stored, err := svc.Trades(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, stored, 3)
	assert.Equal(t, 0.75, stored[1].R, "trades come back ordered by exit date")

	runs, err := svc.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "breakout-3y", runs[0].Name)
}

func TestServiceSubmitEmptySnapshot(t *testing.T) {
	svc := newTestService(t)
	run, err := svc.Submit(context.Background(), SubmitParams{
		Name:   "quiet-period",
		Window: yearWindow(),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, run.Report.Trades)
	assert.Nil(t, run.Report.WinRate)

	loaded, err := svc.Get(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.Report.Trades)
	assert.Nil(t, loaded.Report.WinRate)
}

func TestServiceSubmitValidation(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Submit(context.Background(), SubmitParams{Name: " ", Window: yearWindow()})
	assert.Error(t, err)
	_, err = svc.Submit(context.Background(), SubmitParams{Name: "x", Window: Window{}})
	assert.Error(t, err)
}
