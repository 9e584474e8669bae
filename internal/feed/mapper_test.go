package feed

import (
	"testing"
	"time"

	"swingdesk/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePositionNullVsZero(t *testing.T) {
	raw := []byte(`{
		"ticker": "AAPL",
		"status": "closed",
		"entry_date": "2024-03-05",
		"entry_price": 100,
		"stop_price": 95,
		"shares": 50,
		"position_id": "p1",
		"initial_risk": null,
		"exit_date": "2024-04-01",
		"exit_price": 0,
		"current_price": 104.2
	}`)
	p, err := ParsePosition(raw)
	require.NoError(t, err)

	// null → nil，显式 0 → 指向 0 的指针。两者绝不能互换。
	assert.Nil(t, p.InitialRisk)
	require.NotNil(t, p.ExitPrice)
	assert.Equal(t, 0.0, *p.ExitPrice)
	require.NotNil(t, p.CurrentPrice)
	assert.Equal(t, 104.2, *p.CurrentPrice)
	assert.Nil(t, p.MaxFavorablePrice, "缺失字段同样映射为 nil")
	require.NotNil(t, p.ExitDate)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), *p.ExitDate)
	assert.Nil(t, p.ExitOrderIDs, "缺失的 exit_order_ids 保持 nil")
}

func TestParsePositionEmptyExitOrderIDs(t *testing.T) {
	raw := []byte(`{
		"ticker": "MSFT",
		"status": "open",
		"entry_date": "2024-05-10T09:30:00Z",
		"entry_price": 300,
		"stop_price": 290,
		"shares": 10,
		"exit_order_ids": []
	}`)
	p, err := ParsePosition(raw)
	require.NoError(t, err)
	require.NotNil(t, p.ExitOrderIDs)
	assert.Len(t, p.ExitOrderIDs, 0)
}

func TestParsePositionRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"missing ticker", `{"status":"open","entry_date":"2024-01-01"}`},
		{"bad status", `{"ticker":"AAPL","status":"sideways","entry_date":"2024-01-01"}`},
		{"bad entry date", `{"ticker":"AAPL","status":"open","entry_date":"yesterday"}`},
		{"bad exit date", `{"ticker":"AAPL","status":"open","entry_date":"2024-01-01","exit_date":"soon"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParsePosition([]byte(tc.raw))
			assert.Error(t, err)
		})
	}
}

func TestParsePositionsArray(t *testing.T) {
	raw := []byte(`[
		{"ticker":"AAPL","status":"open","entry_date":"2024-01-02","entry_price":100,"stop_price":95,"shares":10},
		{"ticker":"NVDA","status":"open","entry_date":"2024-01-03","entry_price":500,"stop_price":470,"shares":4}
	]`)
	ps, err := ParsePositions(raw)
	require.NoError(t, err)
	require.Len(t, ps, 2)
	assert.Equal(t, "NVDA", ps[1].Ticker)

	_, err = ParsePositions([]byte(`{"ticker":"AAPL"}`))
	assert.Error(t, err, "对象不是数组")
}

func ordersFixture() []types.Order {
	entry := types.Order{
		OrderID: "o-entry", Ticker: "AAPL",
		Status: types.OrderStatusFilled, Kind: types.OrderKindEntry,
		CreatedDate: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	stop := types.Order{
		OrderID: "o-stop", Ticker: "AAPL",
		Status: types.OrderStatusPending, Kind: types.OrderKindStop,
		ParentOrderID: "o-entry",
		CreatedDate:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	return []types.Order{entry, stop}
}

func TestValidateOrderLinks(t *testing.T) {
	orders := ordersFixture()
	assert.NoError(t, ValidateOrderLinks(orders))

	// parent 不存在
	orders[1].ParentOrderID = "ghost"
	assert.Error(t, ValidateOrderLinks(orders))

	// parent 是 entry 但未成交
	orders = ordersFixture()
	orders[0].Status = types.OrderStatusPending
	assert.Error(t, ValidateOrderLinks(orders))

	// parent 不是 entry
	orders = ordersFixture()
	orders[0].Kind = types.OrderKindTakeProfit
	orders[0].ParentOrderID = "o-stop"
	assert.Error(t, ValidateOrderLinks(orders))
}

func TestParseOrders(t *testing.T) {
	raw := []byte(`[
		{"order_id":"o1","ticker":"AAPL","status":"filled","type":"limit_buy","kind":"entry",
		 "quantity":100,"limit_price":99.5,"created_date":"2024-01-02","filled_date":"2024-01-02T14:31:00Z"},
		{"order_id":"o2","ticker":"AAPL","status":"pending","type":"stop_sell","kind":"stop",
		 "quantity":100,"stop_price":0,"created_date":"2024-01-02","parent_order_id":"o1"}
	]`)
	orders, err := ParseOrders(raw)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	require.NotNil(t, orders[0].LimitPrice)
	assert.Equal(t, 99.5, *orders[0].LimitPrice)
	require.NotNil(t, orders[0].FilledDate)
	assert.Nil(t, orders[1].FilledDate)
	// 显式 0 的 stop_price 不会被折叠成 nil
	require.NotNil(t, orders[1].StopPrice)
	assert.Equal(t, 0.0, *orders[1].StopPrice)
	assert.NoError(t, ValidateOrderLinks(orders))
}

func TestParseTrades(t *testing.T) {
	raw := []byte(`[
		{"ticker":"AAPL","entry_date":"2024-01-02","exit_date":"2024-02-01","r":1.5,
		 "exit_reason":"target_hit","entry_price":100,"exit_price":107.5,"risk_per_share":5}
	]`)
	trades, err := ParseTrades(raw)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, 1.5, trades[0].R)
	assert.Equal(t, "target_hit", trades[0].ExitReason)

	_, err = ParseTrades([]byte(`[{"ticker":"AAPL","entry_date":"??","exit_date":"2024-02-01"}]`))
	assert.Error(t, err)
}
