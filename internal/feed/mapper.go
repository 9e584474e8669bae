// Package feed 把后端扁平命名的 JSON 载荷归一化为内部模型。
// 关键规则：可选数值字段的 null/缺失 → nil，显式 0 → 指向 0 的指针。
// 历史上把 0 当缺失折叠过一次（零风险、零价格都是合法值），这里用
// gjson 的 Exists/Null 判定彻底区分两者。
package feed

import (
	"fmt"
	"time"

	"swingdesk/internal/backtest"
	"swingdesk/internal/types"

	"github.com/tidwall/gjson"
)

// optFloat 区分三态：缺失/null → nil，数值（含 0）→ 指针。
func optFloat(res gjson.Result) *float64 {
	if !res.Exists() || res.Type == gjson.Null {
		return nil
	}
	v := res.Float()
	return &v
}

func optTime(res gjson.Result) (*time.Time, error) {
	if !res.Exists() || res.Type == gjson.Null {
		return nil, nil
	}
	ts, err := parseDate(res.String())
	if err != nil {
		return nil, err
	}
	return &ts, nil
}

// parseDate 接受 RFC3339 与日期两种后端格式。
func parseDate(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.UTC(), nil
	}
	if ts, err := time.Parse("2006-01-02", s); err == nil {
		return ts.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("无法解析日期: %q", s)
}

// ParsePosition 解析单个持仓载荷。
func ParsePosition(raw []byte) (types.Position, error) {
	doc := gjson.ParseBytes(raw)
	return parsePosition(doc)
}

// ParsePositions 解析持仓数组载荷。
func ParsePositions(raw []byte) ([]types.Position, error) {
	doc := gjson.ParseBytes(raw)
	if !doc.IsArray() {
		return nil, fmt.Errorf("positions 载荷必须是数组")
	}
	items := doc.Array()
	out := make([]types.Position, 0, len(items))
	for i, item := range items {
		p, err := parsePosition(item)
		if err != nil {
			return nil, fmt.Errorf("positions[%d]: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func parsePosition(doc gjson.Result) (types.Position, error) {
	ticker := doc.Get("ticker").String()
	if ticker == "" {
		return types.Position{}, fmt.Errorf("position 缺少 ticker")
	}
	status := doc.Get("status").String()
	switch status {
	case types.PositionStatusOpen, types.PositionStatusClosed:
	default:
		return types.Position{}, fmt.Errorf("position %s 状态非法: %q", ticker, status)
	}
	entryDate, err := parseDate(doc.Get("entry_date").String())
	if err != nil {
		return types.Position{}, fmt.Errorf("position %s: %w", ticker, err)
	}
	exitDate, err := optTime(doc.Get("exit_date"))
	if err != nil {
		return types.Position{}, fmt.Errorf("position %s: %w", ticker, err)
	}

	p := types.Position{
		Ticker:            ticker,
		Status:            status,
		EntryDate:         entryDate,
		EntryPrice:        doc.Get("entry_price").Float(),
		StopPrice:         doc.Get("stop_price").Float(),
		Shares:            doc.Get("shares").Float(),
		PositionID:        doc.Get("position_id").String(),
		SourceOrderID:     doc.Get("source_order_id").String(),
		InitialRisk:       optFloat(doc.Get("initial_risk")),
		MaxFavorablePrice: optFloat(doc.Get("max_favorable_price")),
		ExitDate:          exitDate,
		ExitPrice:         optFloat(doc.Get("exit_price")),
		CurrentPrice:      optFloat(doc.Get("current_price")),
		Notes:             doc.Get("notes").String(),
	}
	if ids := doc.Get("exit_order_ids"); ids.Exists() && ids.IsArray() {
		// 空数组与缺失不同：空数组意味着"确认没有出场单"。
		p.ExitOrderIDs = make([]string, 0, len(ids.Array()))
		for _, id := range ids.Array() {
			p.ExitOrderIDs = append(p.ExitOrderIDs, id.String())
		}
	}
	return p, nil
}

// ParseOrders 解析订单数组载荷。
func ParseOrders(raw []byte) ([]types.Order, error) {
	doc := gjson.ParseBytes(raw)
	if !doc.IsArray() {
		return nil, fmt.Errorf("orders 载荷必须是数组")
	}
	items := doc.Array()
	out := make([]types.Order, 0, len(items))
	for i, item := range items {
		o, err := parseOrder(item)
		if err != nil {
			return nil, fmt.Errorf("orders[%d]: %w", i, err)
		}
		out = append(out, o)
	}
	return out, nil
}

func parseOrder(doc gjson.Result) (types.Order, error) {
	id := doc.Get("order_id").String()
	if id == "" {
		return types.Order{}, fmt.Errorf("order 缺少 order_id")
	}
	status := doc.Get("status").String()
	switch status {
	case types.OrderStatusPending, types.OrderStatusFilled, types.OrderStatusCancelled:
	default:
		return types.Order{}, fmt.Errorf("order %s 状态非法: %q", id, status)
	}
	kind := doc.Get("kind").String()
	switch kind {
	case types.OrderKindEntry, types.OrderKindStop, types.OrderKindTakeProfit:
	default:
		return types.Order{}, fmt.Errorf("order %s kind 非法: %q", id, kind)
	}
	createdDate, err := parseDate(doc.Get("created_date").String())
	if err != nil {
		return types.Order{}, fmt.Errorf("order %s: %w", id, err)
	}
	filledDate, err := optTime(doc.Get("filled_date"))
	if err != nil {
		return types.Order{}, fmt.Errorf("order %s: %w", id, err)
	}
	return types.Order{
		OrderID:       id,
		Ticker:        doc.Get("ticker").String(),
		Status:        status,
		Type:          doc.Get("type").String(),
		Kind:          kind,
		Quantity:      doc.Get("quantity").Float(),
		LimitPrice:    optFloat(doc.Get("limit_price")),
		StopPrice:     optFloat(doc.Get("stop_price")),
		CreatedDate:   createdDate,
		FilledDate:    filledDate,
		ParentOrderID: doc.Get("parent_order_id").String(),
		PositionID:    doc.Get("position_id").String(),
	}, nil
}

// ValidateOrderLinks 校验订单不变式：stop/take_profit 的 parent
// 必须指向一张已成交的 entry 单。
func ValidateOrderLinks(orders []types.Order) error {
	byID := make(map[string]types.Order, len(orders))
	for _, o := range orders {
		byID[o.OrderID] = o
	}
	for _, o := range orders {
		if o.Kind != types.OrderKindStop && o.Kind != types.OrderKindTakeProfit {
			continue
		}
		parent, ok := byID[o.ParentOrderID]
		if !ok {
			return fmt.Errorf("order %s 的 parent %q 不存在", o.OrderID, o.ParentOrderID)
		}
		if parent.Kind != types.OrderKindEntry || parent.Status != types.OrderStatusFilled {
			return fmt.Errorf("order %s 的 parent %s 必须是已成交的 entry 单", o.OrderID, parent.OrderID)
		}
	}
	return nil
}

// ParseTrades 解析回测引擎导出的交易数组。
func ParseTrades(raw []byte) ([]backtest.Trade, error) {
	doc := gjson.ParseBytes(raw)
	if !doc.IsArray() {
		return nil, fmt.Errorf("trades 载荷必须是数组")
	}
	items := doc.Array()
	out := make([]backtest.Trade, 0, len(items))
	for i, item := range items {
		entryDate, err := parseDate(item.Get("entry_date").String())
		if err != nil {
			return nil, fmt.Errorf("trades[%d]: %w", i, err)
		}
		exitDate, err := parseDate(item.Get("exit_date").String())
		if err != nil {
			return nil, fmt.Errorf("trades[%d]: %w", i, err)
		}
		out = append(out, backtest.Trade{
			Ticker:       item.Get("ticker").String(),
			EntryDate:    entryDate,
			ExitDate:     exitDate,
			R:            item.Get("r").Float(),
			ExitReason:   item.Get("exit_reason").String(),
			EntryPrice:   item.Get("entry_price").Float(),
			ExitPrice:    item.Get("exit_price").Float(),
			RiskPerShare: item.Get("risk_per_share").Float(),
		})
	}
	return out, nil
}
