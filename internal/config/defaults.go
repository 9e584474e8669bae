package config

import (
	"strings"
)

// 默认值常量。DefaultAccountSize 同时是 readiness 的出厂基准：
// 用户把 account_size 改离该值才算"配置过"。
const (
	DefaultAccountSize = 10000.0

	defaultAppEnv      = "dev"
	defaultAppLogLevel = "info"
	defaultAppHTTPAddr = ":9980"
	defaultAppLogPath  = ""

	defaultStorePositionsPath = "data/positions.db"
	defaultStoreBacktestDir   = "data/backtest"

	defaultProfilePath   = "configs/profiles.yaml"
	defaultProfileActive = "default"

	defaultUniverseMinPrice   = 5.0
	defaultUniverseMaxPrice   = 0.0
	defaultUniverseVolumeM    = 10.0
	defaultUniverseEmaFast    = 20
	defaultUniverseEmaSlow    = 50
	defaultUniverseMaxAtrPct  = 8.0
	defaultSignalLookback     = 20
	defaultSignalPullbackEma  = 10
	defaultSignalVolumeRatio  = 1.5
	defaultRiskPct            = 0.01
	defaultRiskMaxPositionPct = 0.2
	defaultRiskMinShares      = 1
	defaultRiskStopMultiple   = 2.0
	defaultRiskMinRewardRisk  = 2.0
	defaultRiskMaxFeePct      = 5.0
	defaultMgmtBreakevenAtR   = 1.0
	defaultMgmtTrailAtR       = 2.0
	defaultMgmtTrailAtrMult   = 3.0
	defaultMgmtTimeStopDays   = 30
	defaultBacktestYears      = 3.0
	defaultBacktestCommission = 0.1
	defaultBacktestSlippage   = 5.0
	defaultBacktestFxPct      = 0.0
)

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Store.applyDefaults(keys)
	c.Profile.applyDefaults(keys)
	c.Strategy.applyDefaults(keys)
	c.Backtest.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
	)
}

func (s *StoreConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("store.positions_path", &s.PositionsPath, defaultStorePositionsPath),
		stringFieldDefault("store.backtest_dir", &s.BacktestDir, defaultStoreBacktestDir),
	)
}

func (p *ProfileConfig) applyDefaults(keys keySet) {
	if p == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("profile.path", &p.Path, defaultProfilePath),
		stringFieldDefault("profile.active", &p.Active, defaultProfileActive),
	)
}

func (s *StrategyConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	s.Universe.applyDefaults(keys)
	s.Signal.applyDefaults(keys)
	s.Risk.applyDefaults(keys)
	s.Management.applyDefaults(keys)
	if len(s.Ranking.Weights) == 0 {
		s.Ranking.Weights = map[string]float64{
			"momentum":  0.4,
			"trend":     0.4,
			"liquidity": 0.2,
		}
	}
}

func (u *UniverseConfig) applyDefaults(keys keySet) {
	if u == nil {
		return
	}
	applyFieldDefaults(keys,
		floatFieldDefault("strategy.universe.min_price", &u.MinPrice, defaultUniverseMinPrice),
		floatFieldDefault("strategy.universe.max_price", &u.MaxPrice, defaultUniverseMaxPrice),
		floatFieldDefault("strategy.universe.min_dollar_volume_m", &u.MinDollarVolumeM, defaultUniverseVolumeM),
		intFieldDefault("strategy.universe.trend_ema_fast", &u.TrendEmaFast, defaultUniverseEmaFast),
		intFieldDefault("strategy.universe.trend_ema_slow", &u.TrendEmaSlow, defaultUniverseEmaSlow),
		floatFieldDefault("strategy.universe.max_atr_pct", &u.MaxAtrPct, defaultUniverseMaxAtrPct),
	)
}

func (s *SignalConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		intFieldDefault("strategy.signal.breakout_lookback", &s.BreakoutLookback, defaultSignalLookback),
		intFieldDefault("strategy.signal.pullback_ema_period", &s.PullbackEmaPeriod, defaultSignalPullbackEma),
		floatFieldDefault("strategy.signal.min_volume_ratio", &s.MinVolumeRatio, defaultSignalVolumeRatio),
	)
}

func (r *RiskConfig) applyDefaults(keys keySet) {
	if r == nil {
		return
	}
	applyFieldDefaults(keys,
		floatFieldDefault("strategy.risk.account_size", &r.AccountSize, DefaultAccountSize),
		floatFieldDefault("strategy.risk.risk_pct", &r.RiskPct, defaultRiskPct),
		floatFieldDefault("strategy.risk.max_position_pct", &r.MaxPositionPct, defaultRiskMaxPositionPct),
		fieldDefault{
			key:   "strategy.risk.min_shares",
			need:  func() bool { return r.MinShares <= 0 },
			apply: func() { r.MinShares = defaultRiskMinShares },
		},
		floatFieldDefault("strategy.risk.stop_multiple", &r.StopMultiple, defaultRiskStopMultiple),
		floatFieldDefault("strategy.risk.min_reward_risk", &r.MinRewardRisk, defaultRiskMinRewardRisk),
		floatFieldDefault("strategy.risk.max_fee_risk_pct", &r.MaxFeeRiskPct, defaultRiskMaxFeePct),
	)
}

func (m *ManagementConfig) applyDefaults(keys keySet) {
	if m == nil {
		return
	}
	applyFieldDefaults(keys,
		floatFieldDefault("strategy.management.breakeven_at_r", &m.BreakevenAtR, defaultMgmtBreakevenAtR),
		floatFieldDefault("strategy.management.trail_at_r", &m.TrailAtR, defaultMgmtTrailAtR),
		floatFieldDefault("strategy.management.trail_atr_multiple", &m.TrailAtrMultiple, defaultMgmtTrailAtrMult),
		intFieldDefault("strategy.management.time_stop_days", &m.TimeStopDays, defaultMgmtTimeStopDays),
	)
}

func (b *BacktestConfig) applyDefaults(keys keySet) {
	if b == nil {
		return
	}
	applyFieldDefaults(keys,
		floatFieldDefault("backtest.lookback_years", &b.LookbackYears, defaultBacktestYears),
		floatFieldDefault("backtest.commission_pct", &b.CommissionPct, defaultBacktestCommission),
		floatFieldDefault("backtest.slippage_bps", &b.SlippageBps, defaultBacktestSlippage),
		floatFieldDefault("backtest.fx_pct", &b.FxPct, defaultBacktestFxPct),
	)
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func floatFieldDefault(key string, target *float64, def float64) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target == 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target == 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
