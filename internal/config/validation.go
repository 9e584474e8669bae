package config

import (
	"fmt"
	"strings"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.App.validate(); err != nil {
		return err
	}
	if err := c.Strategy.validate(); err != nil {
		return err
	}
	if err := c.Backtest.validate(); err != nil {
		return err
	}
	return nil
}

func (a *AppConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(a.LogLevel)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("app.log_level unknown value: %s", a.LogLevel)
	}
	return nil
}

func (s *StrategyConfig) validate() error {
	if err := s.Universe.validate(); err != nil {
		return err
	}
	if err := s.Risk.validate(); err != nil {
		return err
	}
	if err := s.Management.validate(); err != nil {
		return err
	}
	return nil
}

func (u *UniverseConfig) validate() error {
	if u.MinPrice < 0 {
		return fmt.Errorf("strategy.universe.min_price must be >= 0")
	}
	if u.MaxPrice != 0 && u.MaxPrice < u.MinPrice {
		return fmt.Errorf("strategy.universe.max_price %.2f below min_price %.2f", u.MaxPrice, u.MinPrice)
	}
	if u.MaxAtrPct <= 0 || u.MaxAtrPct > 100 {
		return fmt.Errorf("strategy.universe.max_atr_pct must be in (0,100]")
	}
	if u.TrendEmaFast <= 0 || u.TrendEmaSlow <= 0 {
		return fmt.Errorf("strategy.universe trend ema periods must be positive")
	}
	if u.TrendEmaFast >= u.TrendEmaSlow {
		return fmt.Errorf("strategy.universe.trend_ema_fast %d must be below trend_ema_slow %d", u.TrendEmaFast, u.TrendEmaSlow)
	}
	return nil
}

func (r *RiskConfig) validate() error {
	if r.AccountSize <= 0 {
		return fmt.Errorf("strategy.risk.account_size must be positive")
	}
	if r.RiskPct <= 0 || r.RiskPct > 1 {
		return fmt.Errorf("strategy.risk.risk_pct must be in (0,1] (ratio, not percent)")
	}
	if r.MaxPositionPct <= 0 || r.MaxPositionPct > 1 {
		return fmt.Errorf("strategy.risk.max_position_pct must be in (0,1] (ratio, not percent)")
	}
	if r.MinShares < 0 {
		return fmt.Errorf("strategy.risk.min_shares must be >= 0")
	}
	if r.StopMultiple <= 0 {
		return fmt.Errorf("strategy.risk.stop_multiple must be positive")
	}
	if r.MaxFeeRiskPct < 0 || r.MaxFeeRiskPct > 100 {
		return fmt.Errorf("strategy.risk.max_fee_risk_pct must be in [0,100] (percent, not ratio)")
	}
	if m := r.RegimeRiskMultiplier; m != nil && *m < 0 {
		return fmt.Errorf("strategy.risk.regime_risk_multiplier must be >= 0")
	}
	if m := r.RegimeMaxPositionMultiplier; m != nil && *m < 0 {
		return fmt.Errorf("strategy.risk.regime_max_position_multiplier must be >= 0")
	}
	return nil
}

func (m *ManagementConfig) validate() error {
	if m.BreakevenAtR < 0 || m.TrailAtR < 0 {
		return fmt.Errorf("strategy.management R triggers must be >= 0")
	}
	if m.TrailAtrMultiple < 0 {
		return fmt.Errorf("strategy.management.trail_atr_multiple must be >= 0")
	}
	if m.TimeStopDays < 0 {
		return fmt.Errorf("strategy.management.time_stop_days must be >= 0")
	}
	return nil
}

func (b *BacktestConfig) validate() error {
	if b.LookbackYears <= 0 {
		return fmt.Errorf("backtest.lookback_years must be positive")
	}
	if b.CommissionPct < 0 || b.SlippageBps < 0 || b.FxPct < 0 {
		return fmt.Errorf("backtest cost parameters must be >= 0")
	}
	return nil
}
