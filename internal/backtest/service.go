package backtest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"swingdesk/internal/logger"

	"github.com/google/uuid"
)

// Service 把"提交交易快照→聚合→落库"串起来，是 HTTP 层的唯一入口。
type Service struct {
	store *ResultStore
}

func NewService(store *ResultStore) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("store 不能为空")
	}
	return &Service{store: store}, nil
}

// SubmitParams 是一次聚合请求。
type SubmitParams struct {
	Name    string
	Profile string
	Window  Window
	Costs   CostParams
	Trades  []Trade
	Notes   string
}

// Submit 聚合一份交易快照并持久化。交易集合被当作不可变输入，
// 失败的 run 也会留档（status=failed），便于前端排查。
func (s *Service) Submit(ctx context.Context, params SubmitParams) (Run, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return Run{}, fmt.Errorf("run name 不能为空")
	}
	if !params.Window.End.After(params.Window.Start) {
		return Run{}, fmt.Errorf("window start 与 end 需要构成区间")
	}

	run := Run{
		ID:      uuid.NewString(),
		Name:    name,
		Profile: params.Profile,
		Status:  RunStatusPending,
		StartTS: params.Window.Start.UnixMilli(),
		EndTS:   params.Window.End.UnixMilli(),
		Trades:  len(params.Trades),
		Config: RunConfig{
			Name:          name,
			Profile:       params.Profile,
			StartTS:       params.Window.Start.UnixMilli(),
			EndTS:         params.Window.End.UnixMilli(),
			CommissionPct: params.Costs.CommissionPct,
			SlippageBps:   params.Costs.SlippageBps,
			FxPct:         params.Costs.FxPct,
			Notes:         params.Notes,
		},
	}
	if err := s.store.InsertRun(ctx, run); err != nil {
		return Run{}, fmt.Errorf("写入 run 失败: %w", err)
	}
	if err := s.store.InsertTrades(ctx, run.ID, params.Trades); err != nil {
		if failErr := s.store.FailRun(ctx, run.ID, err.Error()); failErr != nil {
			logger.Errorf("标记 run %s 失败时出错: %v", run.ID, failErr)
		}
		return Run{}, fmt.Errorf("写入交易失败: %w", err)
	}

	report := Aggregate(params.Trades, params.Window, params.Costs)
	if err := s.store.CompleteRun(ctx, run.ID, report); err != nil {
		return Run{}, fmt.Errorf("写入聚合结果失败: %w", err)
	}
	run.Status = RunStatusDone
	run.Report = report
	run.CompletedAt = time.Now().UTC()
	logger.Infof("backtest run %s 聚合完成（%d 笔交易）", run.ID, report.Trades)
	return run, nil
}

// Get 返回指定 run。
func (s *Service) Get(ctx context.Context, runID string) (Run, error) {
	return s.store.GetRun(ctx, runID)
}

// List 返回最近的 run 列表。
func (s *Service) List(ctx context.Context, limit int) ([]Run, error) {
	return s.store.ListRuns(ctx, limit)
}

// Trades 返回一次 run 的交易快照。
func (s *Service) Trades(ctx context.Context, runID string) ([]Trade, error) {
	return s.store.TradesForRun(ctx, runID)
}
