package riskmath

import (
	"math"

	"swingdesk/internal/types"
)

// PortfolioSummary 聚合当前所有在场持仓，供仪表盘与每日复盘共用。
type PortfolioSummary struct {
	OpenPositions     int     `json:"open_positions"`
	TotalOpenRisk     float64 `json:"total_open_risk"`
	TotalUnrealized   float64 `json:"total_unrealized"`
	TotalPositionCost float64 `json:"total_position_cost"`
	// WeightedR 按 InitialRisk 加权的平均 R；没有任何风险基准时为 nil。
	WeightedR *float64 `json:"weighted_r"`
}

// Summarize 汇总在场持仓。已平仓记录被跳过；缺少现价的持仓按入场价计（贡献 0 盈亏）。
func Summarize(positions []types.Position) PortfolioSummary {
	var sum PortfolioSummary
	var riskBase, weighted float64
	for _, p := range positions {
		if !p.IsOpen() {
			continue
		}
		sum.OpenPositions++
		sum.TotalUnrealized += PnL(p, nil)
		sum.TotalPositionCost += p.EntryPrice * p.Shares
		if p.InitialRisk != nil && *p.InitialRisk > 0 {
			sum.TotalOpenRisk += *p.InitialRisk
			if p.CurrentPrice != nil {
				weighted += RNow(p, *p.CurrentPrice) * *p.InitialRisk
			}
			riskBase += *p.InitialRisk
		}
	}
	if riskBase > 0 {
		r := weighted / riskBase
		if !math.IsNaN(r) && !math.IsInf(r, 0) {
			sum.WeightedR = &r
		}
	}
	return sum
}
