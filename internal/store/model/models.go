package model

import (
	"gorm.io/datatypes"
)

// PositionModel 是持仓的落库形态。可选数值列用指针映射为 NULL，
// 与领域层的 nil/显式 0 语义一一对应。
type PositionModel struct {
	ID         int64  `gorm:"column:id;primaryKey"`
	PositionID string `gorm:"column:position_id;uniqueIndex"`
	Ticker     string `gorm:"column:ticker;index"`
	Status     string `gorm:"column:status;index"`

	EntryTS    int64   `gorm:"column:entry_ts"`
	EntryPrice float64 `gorm:"column:entry_price"`
	StopPrice  float64 `gorm:"column:stop_price"`
	Shares     float64 `gorm:"column:shares"`

	SourceOrderID string `gorm:"column:source_order_id"`

	InitialRisk       *float64 `gorm:"column:initial_risk"`
	MaxFavorablePrice *float64 `gorm:"column:max_favorable_price"`
	ExitTS            *int64   `gorm:"column:exit_ts"`
	ExitPrice         *float64 `gorm:"column:exit_price"`
	CurrentPrice      *float64 `gorm:"column:current_price"`

	Notes        string         `gorm:"column:notes"`
	ExitOrderIDs datatypes.JSON `gorm:"column:exit_order_ids;type:TEXT"`

	CreatedAtUnix int64 `gorm:"column:created_at"`
	UpdatedAtUnix int64 `gorm:"column:updated_at"`
}

func (PositionModel) TableName() string { return "positions" }

// OrderModel 是委托的落库形态。
type OrderModel struct {
	ID      int64  `gorm:"column:id;primaryKey"`
	OrderID string `gorm:"column:order_id;uniqueIndex"`
	Ticker  string `gorm:"column:ticker;index"`
	Status  string `gorm:"column:status"`
	Type    string `gorm:"column:type"`
	Kind    string `gorm:"column:kind"`

	Quantity   float64  `gorm:"column:quantity"`
	LimitPrice *float64 `gorm:"column:limit_price"`
	StopPrice  *float64 `gorm:"column:stop_price"`

	CreatedTS int64  `gorm:"column:created_ts"`
	FilledTS  *int64 `gorm:"column:filled_ts"`

	ParentOrderID string `gorm:"column:parent_order_id;index"`
	PositionID    string `gorm:"column:position_id;index"`

	CreatedAtUnix int64 `gorm:"column:created_at"`
	UpdatedAtUnix int64 `gorm:"column:updated_at"`
}

func (OrderModel) TableName() string { return "orders" }
