// Package httpapi 提供 swingdesk 的 HTTP API：持仓视图、仓位预览、
// 策略预警、回测 run 的提交与查询。
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"swingdesk/internal/backtest"
	"swingdesk/internal/config"
	"swingdesk/internal/logger"
	"swingdesk/internal/profile"
	"swingdesk/internal/store/gormstore"

	"github.com/gin-gonic/gin"
)

// Server 承载全部 API 路由。
type Server struct {
	addr      string
	cfg       config.Config
	positions *gormstore.GormStore
	backtests *backtest.Service
	profiles  *profile.Registry
	router    *gin.Engine
}

// ServerConfig 描述 HTTP 服务依赖。Profiles 可以为 nil（不启用档位）。
type ServerConfig struct {
	Addr      string
	Cfg       config.Config
	Positions *gormstore.GormStore
	Backtests *backtest.Service
	Profiles  *profile.Registry
}

// NewServer 构建 HTTP server。
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Positions == nil {
		return nil, errors.New("http server 需要 position store")
	}
	if cfg.Backtests == nil {
		return nil, errors.New("http server 需要 backtest service")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9980"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	s := &Server{
		addr:      cfg.Addr,
		cfg:       cfg.Cfg,
		positions: cfg.Positions,
		backtests: cfg.Backtests,
		profiles:  cfg.Profiles,
		router:    router,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.router.Group("/api")

	api.GET("/positions", s.handlePositionList)
	api.GET("/positions/summary", s.handlePositionSummary)
	api.GET("/positions/:id", s.handlePositionDetail)
	api.POST("/positions/sync", s.handlePositionSync)
	api.GET("/orders", s.handleOrderList)
	api.POST("/orders/sync", s.handleOrderSync)

	api.POST("/sizing/preview", s.handleSizingPreview)

	api.GET("/strategy/evaluate", s.handleStrategyEvaluate)
	api.GET("/strategy/readiness", s.handleReadiness)
	api.GET("/strategy/profiles", s.handleProfileList)

	api.POST("/universe/check", s.handleUniverseCheck)

	api.POST("/backtest/runs", s.handleRunSubmit)
	api.GET("/backtest/runs", s.handleRunList)
	api.GET("/backtest/runs/:id", s.handleRunDetail)
	api.GET("/backtest/runs/:id/trades", s.handleRunTrades)
	api.GET("/backtest/runs/:id/report", s.handleRunReport)
}

// requestLogger 记录接口调用，便于排查人工操作。
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		client := c.ClientIP()
		c.Next()
		dur := time.Since(start)
		status := c.Writer.Status()
		fullPath := path
		if query != "" {
			fullPath = path + "?" + query
		}
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s", method, fullPath, status, client, dur)
	}
}

// Addr 返回监听地址。
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Handler 暴露底层 handler，供测试直接驱动。
func (s *Server) Handler() http.Handler {
	if s == nil {
		return nil
	}
	return s.router
}

// Start 启动 HTTP 服务，直到 ctx 取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

// resolveStrategy 解析 profile 参数后的策略配置。空 profile 用配置里的
// active 档位；registry 未启用时直接用基础配置。
func (s *Server) resolveStrategy(profileID string) (config.StrategyConfig, error) {
	base := s.cfg.Strategy
	if s.profiles == nil {
		return base, nil
	}
	if profileID == "" {
		profileID = s.cfg.Profile.Active
	}
	return s.profiles.Resolve(profileID, base)
}
