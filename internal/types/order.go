package types

import "time"

// Order 状态与类型枚举。filled/cancelled 为终态。
const (
	OrderStatusPending   = "pending"
	OrderStatusFilled    = "filled"
	OrderStatusCancelled = "cancelled"

	OrderTypeMarketBuy  = "market_buy"
	OrderTypeMarketSell = "market_sell"
	OrderTypeLimitBuy   = "limit_buy"
	OrderTypeLimitSell  = "limit_sell"

	OrderKindEntry      = "entry"
	OrderKindStop       = "stop"
	OrderKindTakeProfit = "take_profit"
)

// Order 表示一条委托记录。stop/take_profit 的 parent 必须指向已成交的 entry。
type Order struct {
	OrderID  string  `json:"order_id"`
	Ticker   string  `json:"ticker"`
	Status   string  `json:"status"`
	Type     string  `json:"type"`
	Kind     string  `json:"kind"`
	Quantity float64 `json:"quantity"`

	LimitPrice *float64 `json:"limit_price,omitempty"`
	StopPrice  *float64 `json:"stop_price,omitempty"`

	CreatedDate time.Time  `json:"created_date"`
	FilledDate  *time.Time `json:"filled_date,omitempty"`

	ParentOrderID string `json:"parent_order_id,omitempty"`
	PositionID    string `json:"position_id,omitempty"`
}

// IsTerminal 返回订单是否已到终态（成交或撤销后不再迁移）。
func (o Order) IsTerminal() bool {
	return o.Status == OrderStatusFilled || o.Status == OrderStatusCancelled
}
