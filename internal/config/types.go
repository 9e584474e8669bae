package config

import "strings"

// Config 是 swingdesk 的主配置载体。
type Config struct {
	App      AppConfig      `toml:"app"`
	Store    StoreConfig    `toml:"store"`
	Strategy StrategyConfig `toml:"strategy"`
	Backtest BacktestConfig `toml:"backtest"`
	Profile  ProfileConfig  `toml:"profile"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
}

// StoreConfig 描述两套落盘位置：持仓/订单走 gorm，回测结果走原生 sqlite。
type StoreConfig struct {
	PositionsPath string `toml:"positions_path"`
	BacktestDir   string `toml:"backtest_dir"`
}

// ProfileConfig 指向可热更新的策略档位文件。
type ProfileConfig struct {
	Path   string `toml:"path"`
	Active string `toml:"active"`
}

// StrategyConfig 是策略参数的完整快照，作为不可变值传入各计算模块。
//
// 单位约定（逐字段固定，调用方不得换算）：
//   - 以 _pct 结尾且注明 ratio 的字段取 0~1（0.01 即 1%）；
//   - 注明 percent 的字段取 0~100（15 即 15%）；
//   - 两套约定绝不混用，安全规则表按字段声明的单位设阈值。
type StrategyConfig struct {
	Universe   UniverseConfig   `toml:"universe"`
	Ranking    RankingConfig    `toml:"ranking"`
	Signal     SignalConfig     `toml:"signal"`
	Risk       RiskConfig       `toml:"risk"`
	Management ManagementConfig `toml:"management"`
}

// UniverseConfig 是候选池过滤参数。
type UniverseConfig struct {
	MinPrice         float64 `toml:"min_price"`           // 美元
	MaxPrice         float64 `toml:"max_price"`           // 美元，0 表示不设上限
	MinDollarVolumeM float64 `toml:"min_dollar_volume_m"` // 日均成交额，百万美元
	TrendEmaFast     int     `toml:"trend_ema_fast"`
	TrendEmaSlow     int     `toml:"trend_ema_slow"`
	MaxAtrPct        float64 `toml:"max_atr_pct"` // percent 0~100
}

// RankingConfig 是候选排序权重。
type RankingConfig struct {
	Weights map[string]float64 `toml:"weights"`
}

// SignalConfig 是入场信号参数。
type SignalConfig struct {
	BreakoutLookback  int     `toml:"breakout_lookback"`
	PullbackEmaPeriod int     `toml:"pullback_ema_period"`
	MinVolumeRatio    float64 `toml:"min_volume_ratio"`
}

// RiskConfig 是资金与风险预算参数。
type RiskConfig struct {
	AccountSize    float64 `toml:"account_size"`     // 美元
	RiskPct        float64 `toml:"risk_pct"`         // ratio 0~1
	MaxPositionPct float64 `toml:"max_position_pct"` // ratio 0~1
	MinShares      int64   `toml:"min_shares"`
	StopMultiple   float64 `toml:"stop_multiple"`    // ATR 倍数
	MinRewardRisk  float64 `toml:"min_reward_risk"`  // 比值，如 2 表示 2:1
	MaxFeeRiskPct  float64 `toml:"max_fee_risk_pct"` // percent 0~100

	// 市况覆盖乘数：nil 表示无覆盖（=1）。显式 0 是合法的"全停"。
	RegimeRiskMultiplier        *float64 `toml:"regime_risk_multiplier"`
	RegimeMaxPositionMultiplier *float64 `toml:"regime_max_position_multiplier"`
}

// ManagementConfig 是持仓管理规则。
type ManagementConfig struct {
	BreakevenAtR     float64 `toml:"breakeven_at_r"`
	TrailAtR         float64 `toml:"trail_at_r"`
	TrailAtrMultiple float64 `toml:"trail_atr_multiple"`
	TimeStopDays     int     `toml:"time_stop_days"`
}

// BacktestConfig 是回测运行的缺省参数。
type BacktestConfig struct {
	LookbackYears float64 `toml:"lookback_years"`
	CommissionPct float64 `toml:"commission_pct"` // percent，按成交额
	SlippageBps   float64 `toml:"slippage_bps"`   // 基点
	FxPct         float64 `toml:"fx_pct"`         // percent，跨币种成本
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
