// Package safety 对策略配置做参数级安全评估，并判定配置是否脱离出厂默认。
// 评估是纯函数：每次调用都重新生成告警列表，不持有任何状态。
package safety

import (
	"fmt"

	"swingdesk/internal/config"
)

// Severity 告警级别。
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityDanger  Severity = "danger"
)

// Warning 是单个参数的告警。Param 用配置路径表示，Message 为可读解释。
type Warning struct {
	Param    string   `json:"param"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// thresholdRule 是阈值规则。阈值与字段使用同一单位（ratio 或 percent），
// 绝不做单位换算——历史上 ratio/percent 混用是这里最大的坑。
// below=false：value>=caution 告警、>=danger 危险；below=true 方向相反。
type thresholdRule struct {
	param   string
	unit    string
	below   bool
	caution float64
	danger  float64
	value   func(config.StrategyConfig) float64
}

// rules 按固定参数顺序排列，输出顺序与之一致（与触发顺序无关），
// 方便调用方和测试依赖稳定排序。
var rules = []thresholdRule{
	{
		param: "strategy.risk.risk_pct", unit: "ratio",
		caution: 0.02, danger: 0.05,
		value: func(c config.StrategyConfig) float64 { return c.Risk.RiskPct },
	},
	{
		param: "strategy.risk.max_position_pct", unit: "ratio",
		caution: 0.25, danger: 0.5,
		value: func(c config.StrategyConfig) float64 { return c.Risk.MaxPositionPct },
	},
	{
		param: "strategy.risk.stop_multiple", unit: "atr",
		below: true, caution: 1.0, danger: 0.5,
		value: func(c config.StrategyConfig) float64 { return c.Risk.StopMultiple },
	},
	{
		param: "strategy.risk.min_reward_risk", unit: "ratio",
		below: true, caution: 1.5, danger: 1.0,
		value: func(c config.StrategyConfig) float64 { return c.Risk.MinRewardRisk },
	},
	{
		param: "strategy.risk.max_fee_risk_pct", unit: "percent",
		caution: 10, danger: 20,
		value: func(c config.StrategyConfig) float64 { return c.Risk.MaxFeeRiskPct },
	},
	{
		param: "strategy.universe.min_price", unit: "usd",
		below: true, caution: 3, danger: 1,
		value: func(c config.StrategyConfig) float64 { return c.Universe.MinPrice },
	},
	{
		// percent 字段：15 表示 15%，阈值同样按 percent 设定。
		param: "strategy.universe.max_atr_pct", unit: "percent",
		caution: 20, danger: 30,
		value: func(c config.StrategyConfig) float64 { return c.Universe.MaxAtrPct },
	},
}

func (r thresholdRule) evaluate(cfg config.StrategyConfig) (Warning, bool) {
	v := r.value(cfg)
	var severity Severity
	var bound float64
	switch {
	case !r.below && v >= r.danger:
		severity, bound = SeverityDanger, r.danger
	case !r.below && v >= r.caution:
		severity, bound = SeverityWarning, r.caution
	case r.below && v <= r.danger:
		severity, bound = SeverityDanger, r.danger
	case r.below && v <= r.caution:
		severity, bound = SeverityWarning, r.caution
	default:
		return Warning{}, false
	}
	rel := "exceeds"
	if r.below {
		rel = "falls below"
	}
	return Warning{
		Param:    r.param,
		Severity: severity,
		Message:  fmt.Sprintf("%s value %g %s safe bound %g (%s)", r.param, v, rel, bound, r.unit),
	}, true
}

// Evaluate 评估策略配置，返回按固定参数顺序排列的告警列表。
// 无告警时返回空切片，绝不返回 nil 之外的错误——评估本身没有失败路径。
func Evaluate(cfg config.StrategyConfig) []Warning {
	warnings := make([]Warning, 0, 4)
	for _, r := range rules {
		if w, ok := r.evaluate(cfg); ok {
			warnings = append(warnings, w)
		}
	}
	warnings = append(warnings, regimeOverlayWarnings(cfg)...)
	return warnings
}

// regimeOverlayWarnings 单独处理市况乘数：放大方向才值得提醒，
// 1 以下的收缩是覆盖层的正常用途。
func regimeOverlayWarnings(cfg config.StrategyConfig) []Warning {
	out := make([]Warning, 0, 2)
	check := func(param string, mult *float64) {
		if mult == nil || *mult <= 1 {
			return
		}
		severity := SeverityInfo
		switch {
		case *mult >= 2:
			severity = SeverityDanger
		case *mult >= 1.25:
			severity = SeverityWarning
		}
		out = append(out, Warning{
			Param:    param,
			Severity: severity,
			Message:  fmt.Sprintf("%s value %g amplifies risk beyond the configured budget", param, *mult),
		})
	}
	check("strategy.risk.regime_risk_multiplier", cfg.Risk.RegimeRiskMultiplier)
	check("strategy.risk.regime_max_position_multiplier", cfg.Risk.RegimeMaxPositionMultiplier)
	return out
}
