package backtest

import (
	"sort"
)

// Aggregate 对交易快照计算一次全量统计。空集合返回 Trades=0 且所有
// 比值字段为 nil，不会抛错，也不会把 NaN 传给调用方。输入不被修改。
func Aggregate(trades []Trade, window Window, costs CostParams) Report {
	report := Report{
		Trades:         len(trades),
		RRDistribution: emptyDistribution(),
	}
	if len(trades) == 0 {
		return report
	}

	var sumAll, sumWin, sumLoss float64
	for _, t := range trades {
		sumAll += t.R
		switch {
		case t.R > 0:
			report.Wins++
			sumWin += t.R
		case t.R < 0:
			report.Losses++
			sumLoss += t.R
		}
		bucketFor(&report.RRDistribution, t.R)
	}

	n := float64(report.Trades)
	winRate := float64(report.Wins) / n
	report.WinRate = &winRate
	expectancy := sumAll / n
	report.ExpectancyR = &expectancy
	if report.Wins > 0 {
		avgWin := sumWin / float64(report.Wins)
		report.AvgWinR = &avgWin
	}
	if report.Losses > 0 {
		avgLoss := sumLoss / float64(report.Losses)
		report.AvgLossR = &avgLoss
	}
	if sumLoss < 0 {
		pf := sumWin / -sumLoss
		report.ProfitFactorR = &pf
	}

	dd := maxDrawdownR(trades)
	report.MaxDrawdownR = &dd

	if years := window.Years(); years > 0 {
		freq := n / years
		report.TradeFrequencyPerYear = &freq
	}

	applyCosts(&report, trades, costs)
	return report
}

func emptyDistribution() []RRBucket {
	out := make([]RRBucket, len(rrBucketLabels))
	for i, label := range rrBucketLabels {
		out[i] = RRBucket{Label: label}
	}
	return out
}

// bucketFor 把 R 归入固定的左闭右开区间，每笔恰好一个桶。
func bucketFor(dist *[]RRBucket, r float64) {
	idx := 0
	switch {
	case r < -1:
		idx = 0
	case r < 0:
		idx = 1
	case r < 1:
		idx = 2
	case r < 2:
		idx = 3
	default:
		idx = 4
	}
	(*dist)[idx].Count++
}

// maxDrawdownR 先按平仓日期排序再累加，得到权益曲线的最大峰谷回撤。
// 曲线从 0 起步，峰值也从 0 起算，单笔亏损即构成 |R| 的回撤。
func maxDrawdownR(trades []Trade) float64 {
	ordered := make([]Trade, len(trades))
	copy(ordered, trades)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ExitDate.Before(ordered[j].ExitDate)
	})

	var equity, peak, maxDD float64
	for _, t := range ordered {
		equity += t.R
		if equity > peak {
			peak = equity
		}
		if dd := peak - equity; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// applyCosts 把佣金/滑点/汇率成本按每笔交易自身的每股风险换算成 R 当量。
// 成本按双边成交额计：入场与出场各收一次。没有风险基准的交易不计成本。
func applyCosts(report *Report, trades []Trade, costs CostParams) {
	perNotional := costs.CommissionPct/100 + costs.SlippageBps/10000 + costs.FxPct/100

	var totalCostR float64
	for _, t := range trades {
		if t.RiskPerShare <= 0 {
			continue
		}
		perShareCost := perNotional * (t.EntryPrice + t.ExitPrice)
		totalCostR += perShareCost / t.RiskPerShare
	}

	report.GrossRTotal = sumR(trades)
	report.TotalCostR = totalCostR
	report.NetRTotal = report.GrossRTotal - totalCostR
	avg := totalCostR / float64(report.Trades)
	report.AvgCostR = &avg
	if report.GrossRTotal != 0 {
		impact := totalCostR / abs(report.GrossRTotal)
		report.FeeImpactPct = &impact
	}
}

func sumR(trades []Trade) float64 {
	var sum float64
	for _, t := range trades {
		sum += t.R
	}
	return sum
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
