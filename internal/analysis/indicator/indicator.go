// Package indicator 基于日线 OHLCV 计算摆动交易用到的少量指标：
// ATR（止损距离）、EMA（趋势过滤）、ATR 百分比（波动过滤）。
package indicator

import (
	"fmt"
	"math"

	"swingdesk/internal/config"

	"github.com/markcheno/go-talib"
)

// Bar 是一根日线。
type Bar struct {
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// Snapshot 是某只股票最新一根 K 线上的指标值。
type Snapshot struct {
	Close       float64 `json:"close"`
	ATR         float64 `json:"atr"`
	ATRPct      float64 `json:"atr_pct"` // percent 0~100
	EMAFast     float64 `json:"ema_fast"`
	EMASlow     float64 `json:"ema_slow"`
	TrendUp     bool    `json:"trend_up"`
	DollarVolM  float64 `json:"dollar_vol_m"` // 20 日均成交额，百万美元
	BarsCounted int     `json:"bars_counted"`
}

const dollarVolumeWindow = 20

// Compute 计算指标快照。bars 按时间升序，长度不足返回错误。
func Compute(bars []Bar, cfg config.UniverseConfig) (Snapshot, error) {
	need := cfg.TrendEmaSlow
	if need < 15 {
		need = 15 // talib ATR(14) 至少需要 15 根
	}
	if len(bars) < need {
		return Snapshot{}, fmt.Errorf("K 线不足: 有 %d 根，至少需要 %d 根", len(bars), need)
	}
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	closes := make([]float64, len(bars))
	for i, b := range bars {
		highs[i] = b.High
		lows[i] = b.Low
		closes[i] = b.Close
	}

	atr := lastValid(talib.Atr(highs, lows, closes, 14))
	emaFast := lastValid(talib.Ema(closes, cfg.TrendEmaFast))
	emaSlow := lastValid(talib.Ema(closes, cfg.TrendEmaSlow))
	lastClose := closes[len(closes)-1]

	snap := Snapshot{
		Close:       lastClose,
		ATR:         atr,
		EMAFast:     emaFast,
		EMASlow:     emaSlow,
		TrendUp:     emaFast > emaSlow && lastClose > emaSlow,
		DollarVolM:  avgDollarVolumeM(bars),
		BarsCounted: len(bars),
	}
	if lastClose > 0 {
		snap.ATRPct = atr / lastClose * 100
	}
	return snap, nil
}

// CheckUniverse 按候选池规则检查快照，返回不通过的原因列表（空切片表示通过）。
func CheckUniverse(snap Snapshot, cfg config.UniverseConfig) []string {
	reasons := make([]string, 0, 4)
	if snap.Close < cfg.MinPrice {
		reasons = append(reasons, fmt.Sprintf("价格 %.2f 低于下限 %.2f", snap.Close, cfg.MinPrice))
	}
	if cfg.MaxPrice > 0 && snap.Close > cfg.MaxPrice {
		reasons = append(reasons, fmt.Sprintf("价格 %.2f 高于上限 %.2f", snap.Close, cfg.MaxPrice))
	}
	if snap.DollarVolM < cfg.MinDollarVolumeM {
		reasons = append(reasons, fmt.Sprintf("日均成交额 %.1fM 低于 %.1fM", snap.DollarVolM, cfg.MinDollarVolumeM))
	}
	if snap.ATRPct > cfg.MaxAtrPct {
		reasons = append(reasons, fmt.Sprintf("ATR%% %.1f 超过 %.1f", snap.ATRPct, cfg.MaxAtrPct))
	}
	if !snap.TrendUp {
		reasons = append(reasons, "趋势过滤未通过（快线未在慢线上方）")
	}
	return reasons
}

func avgDollarVolumeM(bars []Bar) float64 {
	n := dollarVolumeWindow
	if len(bars) < n {
		n = len(bars)
	}
	if n == 0 {
		return 0
	}
	var sum float64
	for _, b := range bars[len(bars)-n:] {
		sum += b.Close * b.Volume
	}
	return sum / float64(n) / 1e6
}

// lastValid 返回序列末尾最后一个有效值，talib 的前导区间是 0/NaN。
func lastValid(series []float64) float64 {
	for i := len(series) - 1; i >= 0; i-- {
		v := series[i]
		if v != 0 && !math.IsNaN(v) && !math.IsInf(v, 0) {
			return v
		}
	}
	return 0
}
