// Package app 负责应用级编排：加载配置→初始化依赖→启动 HTTP 服务。
package app

import (
	"context"
	"fmt"

	"swingdesk/internal/backtest"
	sdcfg "swingdesk/internal/config"
	"swingdesk/internal/logger"
	"swingdesk/internal/profile"
	"swingdesk/internal/store/gormstore"
	httpapi "swingdesk/internal/transport/http"

	"golang.org/x/sync/errgroup"
)

// App 持有全部长生命周期组件。
type App struct {
	cfg       *sdcfg.Config
	positions *gormstore.GormStore
	results   *backtest.ResultStore
	backtests *backtest.Service
	profiles  *profile.Registry
	httpSrv   *httpapi.Server
	Summary   *StartupSummary
}

// NewApp 根据配置构建应用对象（不启动）。
func NewApp(cfg *sdcfg.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run 启动 HTTP 服务，直到 ctx 取消。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.Summary != nil {
		a.Summary.Print()
	}
	if a.httpSrv == nil {
		return fmt.Errorf("http server not initialized")
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := a.httpSrv.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	err := group.Wait()
	a.Close()
	return err
}

// Close 释放落库连接。
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.positions != nil {
		if err := a.positions.Close(); err != nil {
			logger.Errorf("关闭 position store 失败: %v", err)
		}
	}
	if a.results != nil {
		if err := a.results.Close(); err != nil {
			logger.Errorf("关闭 backtest store 失败: %v", err)
		}
	}
}

// HTTPServer 暴露底层 HTTP server（测试用）。
func (a *App) HTTPServer() *httpapi.Server {
	if a == nil {
		return nil
	}
	return a.httpSrv
}
