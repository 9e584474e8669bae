// Package riskmath 提供持仓级别的盈亏与 R 倍数纯计算。
// 四个消费方（仪表盘、每日复盘、回测报告、下单预览）都只经由本包取数，
// 保证同一持仓在任何页面算出的数值一致。
package riskmath

import (
	"swingdesk/internal/types"
)

// referencePrice 按优先级解析参考价：exit → override → current → entry。
// 全部缺失时退回 entry，使盈亏为 0 而不是报错。
func referencePrice(p types.Position, override *float64) float64 {
	if p.ExitPrice != nil {
		return *p.ExitPrice
	}
	if override != nil {
		return *override
	}
	if p.CurrentPrice != nil {
		return *p.CurrentPrice
	}
	return p.EntryPrice
}

// PnL 返回金额盈亏 (参考价-入场价)*股数。缺价不报错，返回 0。
func PnL(p types.Position, override *float64) float64 {
	return (referencePrice(p, override) - p.EntryPrice) * p.Shares
}

// PnLPercent 返回百分比盈亏。入场价为 0 时结果非有限，
// 调用方须将非有限值当作"不适用"处理，这里不做钳制。
func PnLPercent(p types.Position, override *float64) float64 {
	return (referencePrice(p, override) - p.EntryPrice) / p.EntryPrice * 100
}

// RNow 返回按当前价计的 R 倍数，基准是建仓时锁定的 InitialRisk。
// 没有风险基准（缺失或为 0）时直接返回 0，而不是去算一个除法。
func RNow(p types.Position, currentPrice float64) float64 {
	if p.InitialRisk == nil || *p.InitialRisk == 0 {
		return 0
	}
	return (currentPrice - p.EntryPrice) * p.Shares / *p.InitialRisk
}
