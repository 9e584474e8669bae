package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"swingdesk/internal/analysis/indicator"
	"swingdesk/internal/backtest"
	"swingdesk/internal/feed"
	"swingdesk/internal/report"
	"swingdesk/internal/riskmath"
	"swingdesk/internal/safety"
	"swingdesk/internal/sizing"
	"swingdesk/internal/store/gormstore"
	"swingdesk/internal/types"

	"github.com/gin-gonic/gin"
)

// positionView 是持仓的接口输出形态：原始字段 + 派生指标。
// pnl_pct 在入场价为 0 时无定义，输出 null。
type positionView struct {
	types.Position
	PnL    float64  `json:"pnl"`
	PnLPct *float64 `json:"pnl_pct"`
	RNow   float64  `json:"r_now"`
}

func toPositionView(p types.Position) positionView {
	view := positionView{
		Position: p,
		PnL:      riskmath.PnL(p, nil),
	}
	if pct := riskmath.PnLPercent(p, nil); !math.IsNaN(pct) && !math.IsInf(pct, 0) {
		view.PnLPct = &pct
	}
	switch {
	case p.ExitPrice != nil:
		view.RNow = riskmath.RNow(p, *p.ExitPrice)
	case p.CurrentPrice != nil:
		view.RNow = riskmath.RNow(p, *p.CurrentPrice)
	}
	return view
}

func (s *Server) handlePositionList(c *gin.Context) {
	positions, err := s.positions.ListPositions(c.Request.Context(), c.Query("status"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	views := make([]positionView, 0, len(positions))
	for _, p := range positions {
		views = append(views, toPositionView(p))
	}
	c.JSON(http.StatusOK, gin.H{"positions": views})
}

func (s *Server) handlePositionDetail(c *gin.Context) {
	p, err := s.positions.GetPosition(c.Request.Context(), c.Param("id"))
	if errors.Is(err, gormstore.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "position not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"position": toPositionView(p)})
}

func (s *Server) handlePositionSummary(c *gin.Context) {
	positions, err := s.positions.ListPositions(c.Request.Context(), types.PositionStatusOpen)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": riskmath.Summarize(positions)})
}

// handlePositionSync 接收后端推送的持仓快照（数组），归一化后整体覆盖。
func (s *Server) handlePositionSync(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	positions, err := feed.ParsePositions(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.positions.UpsertPositions(c.Request.Context(), positions); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"synced": len(positions)})
}

func (s *Server) handleOrderList(c *gin.Context) {
	orders, err := s.positions.ListOrders(c.Request.Context(), c.Query("position_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// handleOrderSync 接收订单快照，先校验挂单链接不变式再落库。
func (s *Server) handleOrderSync(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	orders, err := feed.ParseOrders(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := feed.ValidateOrderLinks(orders); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.positions.UpsertOrders(c.Request.Context(), orders); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"synced": len(orders)})
}

// sizingPreviewRequest 的 stop_price/atr 二选一：给了 stop_price 直接用，
// 否则由 ATR 与档位的 stop_multiple 推导。
type sizingPreviewRequest struct {
	Profile     string   `json:"profile"`
	EntryPrice  float64  `json:"entry_price" binding:"required"`
	StopPrice   *float64 `json:"stop_price"`
	ATR         *float64 `json:"atr"`
	AccountSize *float64 `json:"account_size"` // 临时覆盖，不落配置
}

func (s *Server) handleSizingPreview(c *gin.Context) {
	var req sizingPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	strat, err := s.resolveStrategy(req.Profile)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var stopPrice float64
	switch {
	case req.StopPrice != nil:
		stopPrice = *req.StopPrice
	case req.ATR != nil:
		stopPrice = sizing.StopFromATR(req.EntryPrice, *req.ATR, strat.Risk.StopMultiple)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "stop_price 或 atr 必须提供其一"})
		return
	}

	accountSize := strat.Risk.AccountSize
	if req.AccountSize != nil {
		accountSize = *req.AccountSize
	}
	result, err := sizing.Size(sizing.Input{
		AccountSize:                 accountSize,
		RiskPct:                     strat.Risk.RiskPct,
		EntryPrice:                  req.EntryPrice,
		StopPrice:                   stopPrice,
		MinShares:                   strat.Risk.MinShares,
		MaxPositionPct:              strat.Risk.MaxPositionPct,
		RegimeRiskMultiplier:        strat.Risk.RegimeRiskMultiplier,
		RegimeMaxPositionMultiplier: strat.Risk.RegimeMaxPositionMultiplier,
	})
	if errors.Is(err, sizing.ErrInvalidSetup) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stop_price": stopPrice, "result": result})
}

func (s *Server) handleStrategyEvaluate(c *gin.Context) {
	strat, err := s.resolveStrategy(c.Query("profile"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	warnings := safety.Evaluate(strat)
	c.JSON(http.StatusOK, gin.H{"warnings": warnings})
}

func (s *Server) handleReadiness(c *gin.Context) {
	// readiness 只看基础配置：档位覆盖不改变"是否配置过"的判定。
	c.JSON(http.StatusOK, safety.GetReadiness(s.cfg.Strategy))
}

func (s *Server) handleProfileList(c *gin.Context) {
	if s.profiles == nil {
		c.JSON(http.StatusOK, gin.H{"profiles": []string{}, "active": ""})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"profiles": s.profiles.IDs(),
		"active":   s.cfg.Profile.Active,
	})
}

type universeCheckRequest struct {
	Profile string          `json:"profile"`
	Bars    []indicator.Bar `json:"bars" binding:"required"`
}

func (s *Server) handleUniverseCheck(c *gin.Context) {
	var req universeCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	strat, err := s.resolveStrategy(req.Profile)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	snap, err := indicator.Compute(req.Bars, strat.Universe)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	reasons := indicator.CheckUniverse(snap, strat.Universe)
	c.JSON(http.StatusOK, gin.H{
		"snapshot": snap,
		"eligible": len(reasons) == 0,
		"reasons":  reasons,
	})
}

// runSubmitRequest 的 trades 保留原始 JSON，交给 feed 做 null/零值归一化。
// 成本参数缺省取主配置里的回测默认值。
type runSubmitRequest struct {
	Name    string          `json:"name" binding:"required"`
	Profile string          `json:"profile"`
	Start   string          `json:"start" binding:"required"`
	End     string          `json:"end" binding:"required"`
	Costs   *costOverride   `json:"costs"`
	Trades  json.RawMessage `json:"trades"`
	Notes   string          `json:"notes"`
}

type costOverride struct {
	CommissionPct float64 `json:"commission_pct"`
	SlippageBps   float64 `json:"slippage_bps"`
	FxPct         float64 `json:"fx_pct"`
}

func parseDay(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.UTC(), nil
	}
	return time.Parse("2006-01-02", s)
}

func (s *Server) handleRunSubmit(c *gin.Context) {
	var req runSubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	start, err := parseDay(req.Start)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start: " + err.Error()})
		return
	}
	end, err := parseDay(req.End)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end: " + err.Error()})
		return
	}
	var trades []backtest.Trade
	if len(req.Trades) > 0 {
		trades, err = feed.ParseTrades(req.Trades)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	costs := backtest.CostParams{
		CommissionPct: s.cfg.Backtest.CommissionPct,
		SlippageBps:   s.cfg.Backtest.SlippageBps,
		FxPct:         s.cfg.Backtest.FxPct,
	}
	if req.Costs != nil {
		costs = backtest.CostParams{
			CommissionPct: req.Costs.CommissionPct,
			SlippageBps:   req.Costs.SlippageBps,
			FxPct:         req.Costs.FxPct,
		}
	}
	run, err := s.backtests.Submit(c.Request.Context(), backtest.SubmitParams{
		Name:    req.Name,
		Profile: req.Profile,
		Window:  backtest.Window{Start: start, End: end},
		Costs:   costs,
		Trades:  trades,
		Notes:   req.Notes,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"run": run})
}

func (s *Server) handleRunList(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	runs, err := s.backtests.List(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) handleRunDetail(c *gin.Context) {
	run, err := s.backtests.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": run})
}

func (s *Server) handleRunTrades(c *gin.Context) {
	trades, err := s.backtests.Trades(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

func (s *Server) handleRunReport(c *gin.Context) {
	ctx := c.Request.Context()
	run, err := s.backtests.Get(ctx, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	trades, err := s.backtests.Trades(ctx, run.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	html, err := report.RenderRun(run, trades)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}
