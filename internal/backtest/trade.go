// Package backtest 聚合回测引擎产出的已平仓交易，生成汇总统计并落库。
// 聚合把交易集合当作一次性快照处理，不做流式更新。
package backtest

import (
	"time"
)

// 平仓原因。
const (
	ExitReasonStop     = "stop"
	ExitReasonTarget   = "target"
	ExitReasonTime     = "time"
	ExitReasonTrailing = "trailing"
)

// Trade 是一笔已平仓的模拟交易，由外部回测引擎产出后不可变。
// R 是以建仓风险为基准的带符号倍数。EntryPrice/ExitPrice/RiskPerShare
// 仅用于成本换算；RiskPerShare 为 0 时该笔不计成本。
type Trade struct {
	Ticker       string    `json:"ticker"`
	EntryDate    time.Time `json:"entry_date"`
	ExitDate     time.Time `json:"exit_date"`
	R            float64   `json:"r"`
	ExitReason   string    `json:"exit_reason"`
	EntryPrice   float64   `json:"entry_price,omitempty"`
	ExitPrice    float64   `json:"exit_price,omitempty"`
	RiskPerShare float64   `json:"risk_per_share,omitempty"`
}

// Window 是请求的回测区间。年跨度从这里取，而不是从交易里推：
// 清淡区间要得到"低频率"，不能变成除零。
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Years 返回区间年数，区间非法时为 0。
func (w Window) Years() float64 {
	if !w.End.After(w.Start) {
		return 0
	}
	return w.End.Sub(w.Start).Hours() / (24 * 365.25)
}

// CostParams 是每次回测的成本参数。
type CostParams struct {
	CommissionPct float64 `json:"commission_pct"` // percent，按成交额单边
	SlippageBps   float64 `json:"slippage_bps"`   // 基点，单边
	FxPct         float64 `json:"fx_pct"`         // percent，跨币种成本
}

// RRBucket 是 RR 分布中的一个固定区间。
type RRBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// RR 分布的固定区间标签。区间左闭右开：R=-1 落在 "-1R to 0"，
// R=1 落在 "1R to 2R"，每笔交易恰好进一个桶。
var rrBucketLabels = []string{"< -1R", "-1R to 0", "0 to 1R", "1R to 2R", "> 2R"}

// Report 是全量统计输出。比值类字段用指针：nil 表示"无定义"
// （空集合、没有输家等），调用方绝不会看到 NaN。
type Report struct {
	Trades int `json:"trades"`
	Wins   int `json:"wins"`
	Losses int `json:"losses"`

	WinRate               *float64 `json:"win_rate"`       // ratio 0~1
	AvgWinR               *float64 `json:"avg_win_r"`      // nil=没有盈利交易
	AvgLossR              *float64 `json:"avg_loss_r"`     // nil=没有亏损交易
	ExpectancyR           *float64 `json:"expectancy_r"`
	ProfitFactorR         *float64 `json:"profit_factor_r"` // nil=分母为 0
	MaxDrawdownR          *float64 `json:"max_drawdown_r"`
	TradeFrequencyPerYear *float64 `json:"trade_frequency_per_year"`

	RRDistribution []RRBucket `json:"rr_distribution"`

	GrossRTotal  float64  `json:"gross_r_total"`
	NetRTotal    float64  `json:"net_r_total"`
	TotalCostR   float64  `json:"total_cost_r"`
	AvgCostR     *float64 `json:"avg_cost_r"`
	FeeImpactPct *float64 `json:"fee_impact_pct"` // ratio：TotalCostR/|GrossRTotal|
}
