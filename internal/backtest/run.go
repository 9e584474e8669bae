package backtest

import (
	"encoding/json"
	"time"
)

const (
	RunStatusPending = "pending"
	RunStatusRunning = "running"
	RunStatusDone    = "done"
	RunStatusFailed  = "failed"
)

// RunConfig 记录本次聚合的参数快照，便于重放与审计。
type RunConfig struct {
	Name          string  `json:"name"`
	Profile       string  `json:"profile"`
	StartTS       int64   `json:"start_ts"`
	EndTS         int64   `json:"end_ts"`
	CommissionPct float64 `json:"commission_pct"`
	SlippageBps   float64 `json:"slippage_bps"`
	FxPct         float64 `json:"fx_pct"`
	Notes         string  `json:"notes,omitempty"`
}

// Window 返回配置快照对应的回测区间。
func (c RunConfig) Window() Window {
	return Window{
		Start: time.UnixMilli(c.StartTS).UTC(),
		End:   time.UnixMilli(c.EndTS).UTC(),
	}
}

// Costs 返回配置快照对应的成本参数。
func (c RunConfig) Costs() CostParams {
	return CostParams{
		CommissionPct: c.CommissionPct,
		SlippageBps:   c.SlippageBps,
		FxPct:         c.FxPct,
	}
}

// Run 表示一次回测聚合任务。
type Run struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Profile     string    `json:"profile"`
	Status      string    `json:"status"`
	StartTS     int64     `json:"start_ts"`
	EndTS       int64     `json:"end_ts"`
	Trades      int       `json:"trades"`
	Message     string    `json:"message,omitempty"`
	Config      RunConfig `json:"config"`
	Report      Report    `json:"report"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// MarshalReport 返回 report JSON。
func (r Run) MarshalReport() ([]byte, error) {
	return json.Marshal(r.Report)
}

// MarshalConfig 返回 config JSON。
func (r Run) MarshalConfig() ([]byte, error) {
	return json.Marshal(r.Config)
}
