package safety

import (
	"swingdesk/internal/config"
)

// Readiness 描述策略配置是否已脱离出厂默认，用于解锁下单相关界面。
type Readiness struct {
	IsReady     bool     `json:"is_ready"`
	Message     string   `json:"message"`
	ActionItems []string `json:"action_items"`
}

// IsConfigured 只看 account_size 是否偏离出厂默认值。这是刻意收窄的信号：
// 只改 risk_pct 等其他字段不算配置过，界面的解锁逻辑依赖这一单字段判定。
func IsConfigured(cfg config.StrategyConfig) bool {
	return cfg.Risk.AccountSize != config.DefaultAccountSize
}

// GetReadiness 把 IsConfigured 包装成带行动项的结构。未就绪时给出
// 固定的行动清单，就绪时清单为空。
func GetReadiness(cfg config.StrategyConfig) Readiness {
	if IsConfigured(cfg) {
		return Readiness{
			IsReady:     true,
			Message:     "strategy configured",
			ActionItems: []string{},
		}
	}
	return Readiness{
		IsReady: false,
		Message: "strategy is still on shipped defaults; set your account size to unlock trading",
		ActionItems: []string{
			"set strategy.risk.account_size to your actual account value",
			"review strategy.risk.risk_pct against your risk tolerance",
			"confirm universe filters match your market",
		},
	}
}
