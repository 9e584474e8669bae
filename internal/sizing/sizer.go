// Package sizing 把账户规模、风险预算与止损距离换算成建议股数。
// 下单预览与仪表盘都用同一份输出，避免两边各算一套。
package sizing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidSetup 表示输入本身不构成合法的做多设置（entry<=stop、
// 账户或风险比例非正）。区别于"缺数据给哨兵值"，这一类必须中止计算。
var ErrInvalidSetup = errors.New("invalid sizing setup")

// Input 是一次仓位计算的全部输入。比例字段（RiskPct、MaxPositionPct）
// 取值 0~1；Regime* 为外部市况覆盖乘数，nil 表示无覆盖（等价于 1）。
type Input struct {
	AccountSize    float64 // 账户规模，>0
	RiskPct        float64 // 单笔风险比例，(0,1]
	EntryPrice     float64
	StopPrice      float64
	MinShares      int64   // 用户设定的最小股数下限
	MaxPositionPct float64 // 单仓位最大占比，(0,1]

	RegimeRiskMultiplier        *float64 // 市况风险乘数，nil=1
	RegimeMaxPositionMultiplier *float64 // 市况仓位上限乘数，nil=1
}

// Result 是计算输出。ExceedsTarget 仅作提示：因 MinShares 下限等原因
// 实际风险比例超过目标时置位，不会拒绝该笔计算。
type Result struct {
	RiskAmount      float64 `json:"risk_amount"`       // 本笔金额风险
	PositionValue   float64 `json:"position_value"`    // 仓位市值 finalShares*entry
	RiskPctTaken    float64 `json:"risk_pct_taken"`    // 实际风险比例
	RiskPerShare    float64 `json:"risk_per_share"`    // entry-stop
	SuggestedShares int64   `json:"suggested_shares"`  // 预算推导的股数
	MaxShares       int64   `json:"max_shares"`        // 仓位占比上限推导的股数
	FinalShares     int64   `json:"final_shares"`      // 取 min 后再套 MinShares 下限
	ExceedsTarget   bool    `json:"exceeds_target"`    // 实际风险超出目标的提示位
}

func overlay(mult *float64) float64 {
	if mult == nil {
		return 1
	}
	return *mult
}

// StopFromATR 由 ATR 与倍数推导止损价。
func StopFromATR(entryPrice, atr, stopMultiple float64) float64 {
	return entryPrice - atr*stopMultiple
}

// Size 执行仓位计算。MinShares 下限在仓位上限之后生效：用户设定的
// 下限足够大时可以突破 MaxPositionPct，这是既有产品行为，不在此"修复"。
func Size(in Input) (Result, error) {
	if in.AccountSize <= 0 {
		return Result{}, fmt.Errorf("%w: account size %.2f must be positive", ErrInvalidSetup, in.AccountSize)
	}
	if in.RiskPct <= 0 || in.RiskPct > 1 {
		return Result{}, fmt.Errorf("%w: risk pct %.4f outside (0,1]", ErrInvalidSetup, in.RiskPct)
	}
	if in.EntryPrice <= 0 {
		return Result{}, fmt.Errorf("%w: entry price %.4f must be positive", ErrInvalidSetup, in.EntryPrice)
	}
	// 全程走 decimal：十进制输入（99.93、0.01 这类）在二进制浮点下带噪声，
	// 先减后除再取整时噪声可能把股数推过取整边界。
	decEntry := decFromFloat(in.EntryPrice)
	decRiskPerShare := decEntry.Sub(decFromFloat(in.StopPrice))
	if decRiskPerShare.Sign() <= 0 {
		return Result{}, fmt.Errorf("%w: entry %.4f must exceed stop %.4f", ErrInvalidSetup, in.EntryPrice, in.StopPrice)
	}

	decAccount := decFromFloat(in.AccountSize)
	decRiskPerTrade := decAccount.
		Mul(decFromFloat(in.RiskPct)).
		Mul(decFromFloat(overlay(in.RegimeRiskMultiplier)))
	decMaxValue := decAccount.
		Mul(decFromFloat(in.MaxPositionPct)).
		Mul(decFromFloat(overlay(in.RegimeMaxPositionMultiplier)))

	suggested := decRiskPerTrade.DivRound(decRiskPerShare, 12).Floor().IntPart()
	maxShares := decMaxValue.DivRound(decEntry, 12).Floor().IntPart()

	final := suggested
	if final > maxShares {
		final = maxShares
	}
	if final < in.MinShares {
		final = in.MinShares
	}

	riskPerShare := decToFloat(decRiskPerShare)
	riskPerTrade := decToFloat(decRiskPerTrade)
	taken := decToFloat(decimal.NewFromInt(final).Mul(decRiskPerShare).DivRound(decAccount, 12))
	res := Result{
		RiskAmount:      riskPerTrade,
		PositionValue:   float64(final) * in.EntryPrice,
		RiskPctTaken:    taken,
		RiskPerShare:    riskPerShare,
		SuggestedShares: suggested,
		MaxShares:       maxShares,
		FinalShares:     final,
		ExceedsTarget:   decimalGT(taken, in.RiskPct),
	}
	return res, nil
}
