package types

import (
	"time"
)

// Position 状态。
const (
	PositionStatusOpen   = "open"
	PositionStatusClosed = "closed"
)

// Position 表示一笔持仓。可选数值字段一律用指针：
// nil 表示"后端未提供"，指向 0 表示"确实为 0"，两者不可混淆。
type Position struct {
	Ticker     string    `json:"ticker"`
	Status     string    `json:"status"`
	EntryDate  time.Time `json:"entry_date"`
	EntryPrice float64   `json:"entry_price"`
	StopPrice  float64   `json:"stop_price"`
	Shares     float64   `json:"shares"`

	PositionID    string `json:"position_id,omitempty"`
	SourceOrderID string `json:"source_order_id,omitempty"`

	// InitialRisk 是建仓时刻锁定的金额风险 (entry-stop)*shares。
	// 后续移动止损不会重算该值，R 倍数始终以它为基准。
	InitialRisk       *float64   `json:"initial_risk,omitempty"`
	MaxFavorablePrice *float64   `json:"max_favorable_price,omitempty"`
	ExitDate          *time.Time `json:"exit_date,omitempty"`
	ExitPrice         *float64   `json:"exit_price,omitempty"`
	CurrentPrice      *float64   `json:"current_price,omitempty"`

	Notes        string   `json:"notes,omitempty"`
	ExitOrderIDs []string `json:"exit_order_ids,omitempty"`
}

// IsOpen 返回持仓是否仍然在场。
func (p Position) IsOpen() bool {
	return p.Status == PositionStatusOpen
}
