// Package profile 管理策略档位（profile）：同一套基础策略配置上的命名覆盖集，
// 例如 conservative/aggressive/earnings-window。档位文件支持热更新，
// 覆盖文档先过 JSON Schema 再合并，避免手滑把 ratio 写成 percent。
package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"swingdesk/internal/config"
	"swingdesk/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// overrideSchema 约束档位覆盖文档的形状与取值范围。
// ratio 字段上限 1，percent 字段上限 100，写错单位直接拒载。
const overrideSchema = `{
	"type": "object",
	"additionalProperties": false,
	"properties": {
		"universe": {
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"min_price":           {"type": "number", "minimum": 0},
				"max_price":           {"type": "number", "minimum": 0},
				"min_dollar_volume_m": {"type": "number", "minimum": 0},
				"trend_ema_fast":      {"type": "integer", "minimum": 1},
				"trend_ema_slow":      {"type": "integer", "minimum": 1},
				"max_atr_pct":         {"type": "number", "exclusiveMinimum": 0, "maximum": 100}
			}
		},
		"signal": {
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"breakout_lookback":   {"type": "integer", "minimum": 1},
				"pullback_ema_period": {"type": "integer", "minimum": 1},
				"min_volume_ratio":    {"type": "number", "minimum": 0}
			}
		},
		"risk": {
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"risk_pct":                       {"type": "number", "exclusiveMinimum": 0, "maximum": 1},
				"max_position_pct":               {"type": "number", "exclusiveMinimum": 0, "maximum": 1},
				"min_shares":                     {"type": "integer", "minimum": 0},
				"stop_multiple":                  {"type": "number", "exclusiveMinimum": 0},
				"min_reward_risk":                {"type": "number", "exclusiveMinimum": 0},
				"max_fee_risk_pct":               {"type": "number", "minimum": 0, "maximum": 100},
				"regime_risk_multiplier":         {"type": "number", "minimum": 0},
				"regime_max_position_multiplier": {"type": "number", "minimum": 0}
			}
		},
		"management": {
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"breakeven_at_r":     {"type": "number", "minimum": 0},
				"trail_at_r":         {"type": "number", "minimum": 0},
				"trail_atr_multiple": {"type": "number", "minimum": 0},
				"time_stop_days":     {"type": "integer", "minimum": 0}
			}
		}
	}
}`

// Profile 是一个命名档位：描述 + 对基础策略配置的稀疏覆盖。
type Profile struct {
	ID          string
	Description string
	overlay     overrideDoc
}

// fileConfig 映射档位文件顶层结构。
type fileConfig struct {
	Profiles map[string]fileProfile `yaml:"profiles"`
}

type fileProfile struct {
	Description string         `yaml:"description"`
	Overrides   map[string]any `yaml:"overrides"`
}

// overrideDoc 的字段全部是指针：nil 表示沿用基础配置。
type overrideDoc struct {
	Universe   *universeOverride   `mapstructure:"universe"`
	Signal     *signalOverride     `mapstructure:"signal"`
	Risk       *riskOverride       `mapstructure:"risk"`
	Management *managementOverride `mapstructure:"management"`
}

type universeOverride struct {
	MinPrice         *float64 `mapstructure:"min_price"`
	MaxPrice         *float64 `mapstructure:"max_price"`
	MinDollarVolumeM *float64 `mapstructure:"min_dollar_volume_m"`
	TrendEmaFast     *int     `mapstructure:"trend_ema_fast"`
	TrendEmaSlow     *int     `mapstructure:"trend_ema_slow"`
	MaxAtrPct        *float64 `mapstructure:"max_atr_pct"`
}

type signalOverride struct {
	BreakoutLookback  *int     `mapstructure:"breakout_lookback"`
	PullbackEmaPeriod *int     `mapstructure:"pullback_ema_period"`
	MinVolumeRatio    *float64 `mapstructure:"min_volume_ratio"`
}

type riskOverride struct {
	RiskPct                     *float64 `mapstructure:"risk_pct"`
	MaxPositionPct              *float64 `mapstructure:"max_position_pct"`
	MinShares                   *int64   `mapstructure:"min_shares"`
	StopMultiple                *float64 `mapstructure:"stop_multiple"`
	MinRewardRisk               *float64 `mapstructure:"min_reward_risk"`
	MaxFeeRiskPct               *float64 `mapstructure:"max_fee_risk_pct"`
	RegimeRiskMultiplier        *float64 `mapstructure:"regime_risk_multiplier"`
	RegimeMaxPositionMultiplier *float64 `mapstructure:"regime_max_position_multiplier"`
}

type managementOverride struct {
	BreakevenAtR     *float64 `mapstructure:"breakeven_at_r"`
	TrailAtR         *float64 `mapstructure:"trail_at_r"`
	TrailAtrMultiple *float64 `mapstructure:"trail_atr_multiple"`
	TimeStopDays     *int     `mapstructure:"time_stop_days"`
}

// Apply 把档位覆盖合并到基础配置上，返回新的快照，不修改入参。
func (p Profile) Apply(base config.StrategyConfig) config.StrategyConfig {
	out := base
	if u := p.overlay.Universe; u != nil {
		setF(&out.Universe.MinPrice, u.MinPrice)
		setF(&out.Universe.MaxPrice, u.MaxPrice)
		setF(&out.Universe.MinDollarVolumeM, u.MinDollarVolumeM)
		setI(&out.Universe.TrendEmaFast, u.TrendEmaFast)
		setI(&out.Universe.TrendEmaSlow, u.TrendEmaSlow)
		setF(&out.Universe.MaxAtrPct, u.MaxAtrPct)
	}
	if s := p.overlay.Signal; s != nil {
		setI(&out.Signal.BreakoutLookback, s.BreakoutLookback)
		setI(&out.Signal.PullbackEmaPeriod, s.PullbackEmaPeriod)
		setF(&out.Signal.MinVolumeRatio, s.MinVolumeRatio)
	}
	if r := p.overlay.Risk; r != nil {
		setF(&out.Risk.RiskPct, r.RiskPct)
		setF(&out.Risk.MaxPositionPct, r.MaxPositionPct)
		setI64(&out.Risk.MinShares, r.MinShares)
		setF(&out.Risk.StopMultiple, r.StopMultiple)
		setF(&out.Risk.MinRewardRisk, r.MinRewardRisk)
		setF(&out.Risk.MaxFeeRiskPct, r.MaxFeeRiskPct)
		if r.RegimeRiskMultiplier != nil {
			v := *r.RegimeRiskMultiplier
			out.Risk.RegimeRiskMultiplier = &v
		}
		if r.RegimeMaxPositionMultiplier != nil {
			v := *r.RegimeMaxPositionMultiplier
			out.Risk.RegimeMaxPositionMultiplier = &v
		}
	}
	if m := p.overlay.Management; m != nil {
		setF(&out.Management.BreakevenAtR, m.BreakevenAtR)
		setF(&out.Management.TrailAtR, m.TrailAtR)
		setF(&out.Management.TrailAtrMultiple, m.TrailAtrMultiple)
		setI(&out.Management.TimeStopDays, m.TimeStopDays)
	}
	return out
}

func setF(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

func setI(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setI64(dst *int64, src *int64) {
	if src != nil {
		*dst = *src
	}
}

// Snapshot 是某一时刻完整的档位集合。
type Snapshot struct {
	Version  int64
	LoadedAt time.Time
	Profiles map[string]Profile
}

// ChangeListener 在档位文件重载成功后触发。
type ChangeListener func(Snapshot)

// Registry 持有档位文件并监听热更新。重载失败保留旧快照。
type Registry struct {
	path   string
	v      *viper.Viper
	schema *jsonschema.Schema

	mu        sync.RWMutex
	snapshot  Snapshot
	listeners []ChangeListener
}

// NewRegistry 读取档位文件并开始监听。
func NewRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("profile registry 需要文件路径")
	}
	schema, err := compileOverrideSchema()
	if err != nil {
		return nil, fmt.Errorf("覆盖 schema 编译失败: %w", err)
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取档位文件失败: %w", err)
	}
	r := &Registry{path: path, v: v, schema: schema}
	if err := r.reload(); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := r.reload(); err != nil {
			logger.Errorf("档位文件重载失败，沿用旧快照: %v", err)
			return
		}
		r.notifyListeners()
	})
	v.WatchConfig()
	return r, nil
}

// Snapshot 返回当前档位集合的拷贝。
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneSnapshot(r.snapshot)
}

// Profile 返回指定 ID 的档位。
func (r *Registry) Profile(id string) (Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.snapshot.Profiles[strings.TrimSpace(id)]
	return p, ok
}

// IDs 返回全部档位 ID，字典序。
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.snapshot.Profiles))
	for id := range r.snapshot.Profiles {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Resolve 在基础配置上套用指定档位。id 为空返回基础配置本身。
func (r *Registry) Resolve(id string, base config.StrategyConfig) (config.StrategyConfig, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return base, nil
	}
	p, ok := r.Profile(id)
	if !ok {
		return config.StrategyConfig{}, fmt.Errorf("未知档位: %s", id)
	}
	return p.Apply(base), nil
}

// OnChange 注册重载回调。
func (r *Registry) OnChange(fn ChangeListener) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

func (r *Registry) reload() error {
	cfg, err := readProfileFile(r.path)
	if err != nil {
		return err
	}
	profiles := make(map[string]Profile, len(cfg.Profiles))
	for name, fp := range cfg.Profiles {
		p, err := r.buildProfile(name, fp)
		if err != nil {
			return fmt.Errorf("档位 %s: %w", name, err)
		}
		profiles[p.ID] = p
	}
	r.mu.Lock()
	r.snapshot = Snapshot{
		Version:  r.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Profiles: profiles,
	}
	r.mu.Unlock()
	logger.Infof("profile registry 从 %s 加载 %d 个档位", filepath.Base(r.path), len(profiles))
	return nil
}

func (r *Registry) buildProfile(name string, fp fileProfile) (Profile, error) {
	id := strings.TrimSpace(name)
	if id == "" {
		return Profile{}, fmt.Errorf("档位名不能为空")
	}
	if err := r.validateOverrides(fp.Overrides); err != nil {
		return Profile{}, err
	}
	var doc overrideDoc
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &doc,
		TagName:     "mapstructure",
		ErrorUnused: true,
	})
	if err != nil {
		return Profile{}, err
	}
	if fp.Overrides != nil {
		if err := dec.Decode(fp.Overrides); err != nil {
			return Profile{}, fmt.Errorf("覆盖解码失败: %w", err)
		}
	}
	return Profile{
		ID:          id,
		Description: strings.TrimSpace(fp.Description),
		overlay:     doc,
	}, nil
}

func (r *Registry) validateOverrides(overrides map[string]any) error {
	if len(overrides) == 0 {
		return nil
	}
	// jsonschema 只认 JSON 原生类型，yaml 解出的 map 先过一遍 JSON 往返。
	raw, err := json.Marshal(overrides)
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	return r.schema.Validate(doc)
}

func (r *Registry) notifyListeners() {
	r.mu.RLock()
	snap := cloneSnapshot(r.snapshot)
	listeners := append([]ChangeListener(nil), r.listeners...)
	r.mu.RUnlock()
	for _, fn := range listeners {
		go func(cb ChangeListener) {
			defer func() {
				if p := recover(); p != nil {
					logger.Errorf("profile listener panic: %v", p)
				}
			}()
			cb(snap)
		}(fn)
	}
}

func cloneSnapshot(src Snapshot) Snapshot {
	dst := Snapshot{
		Version:  src.Version,
		LoadedAt: src.LoadedAt,
		Profiles: make(map[string]Profile, len(src.Profiles)),
	}
	for id, p := range src.Profiles {
		dst.Profiles[id] = p
	}
	return dst
}

func compileOverrideSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("overrides.json", strings.NewReader(overrideSchema)); err != nil {
		return nil, err
	}
	return compiler.Compile("overrides.json")
}

func readProfileFile(path string) (fileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, fmt.Errorf("读取档位文件失败: %w", err)
	}
	var cfg fileConfig
	dec := yaml.NewDecoder(strings.NewReader(string(raw)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return fileConfig{}, fmt.Errorf("解析档位文件失败: %w", err)
	}
	return cfg, nil
}
