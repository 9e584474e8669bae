package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"swingdesk/internal/backtest"
	sdcfg "swingdesk/internal/config"
	"swingdesk/internal/logger"
	"swingdesk/internal/profile"
	"swingdesk/internal/store/gormstore"
	httpapi "swingdesk/internal/transport/http"
)

// AppBuilder 把各组件的构建函数收在一处，测试可以逐项替换。
type AppBuilder struct {
	cfg *sdcfg.Config

	positionStoreFn func(string) (*gormstore.GormStore, error)
	resultStoreFn   func(string) (*backtest.ResultStore, error)
	registryFn      func(string) (*profile.Registry, error)
	httpServerFn    func(httpapi.ServerConfig) (*httpapi.Server, error)
}

type AppBuilderOption func(*AppBuilder)

func NewAppBuilder(cfg *sdcfg.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:             cfg,
		positionStoreFn: gormstore.NewGormStore,
		resultStoreFn:   backtest.NewResultStore,
		registryFn:      profile.NewRegistry,
		httpServerFn:    httpapi.NewServer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Build 按依赖顺序组装 App。profile 文件缺失不视为错误：
// 单机部署允许不配档位，直接用基础策略配置。
func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	logger.SetLevel(cfg.App.LogLevel)

	positions, err := b.positionStoreFn(cfg.Store.PositionsPath)
	if err != nil {
		return nil, fmt.Errorf("初始化 position store 失败: %w", err)
	}
	logger.Infof("✓ position store: %s", cfg.Store.PositionsPath)

	results, err := b.resultStoreFn(cfg.Store.BacktestDir)
	if err != nil {
		positions.Close()
		return nil, fmt.Errorf("初始化 backtest store 失败: %w", err)
	}
	svc, err := backtest.NewService(results)
	if err != nil {
		positions.Close()
		results.Close()
		return nil, err
	}
	logger.Infof("✓ backtest store: %s", cfg.Store.BacktestDir)

	var registry *profile.Registry
	profilePath := strings.TrimSpace(cfg.Profile.Path)
	if profilePath != "" {
		if _, statErr := os.Stat(profilePath); statErr == nil {
			registry, err = b.registryFn(profilePath)
			if err != nil {
				positions.Close()
				results.Close()
				return nil, fmt.Errorf("加载 profile 文件失败: %w", err)
			}
		} else {
			logger.Warnf("profile 文件 %s 不存在，跳过档位加载", profilePath)
		}
	}

	httpSrv, err := b.httpServerFn(httpapi.ServerConfig{
		Addr:      cfg.App.HTTPAddr,
		Cfg:       *cfg,
		Positions: positions,
		Backtests: svc,
		Profiles:  registry,
	})
	if err != nil {
		positions.Close()
		results.Close()
		return nil, fmt.Errorf("初始化 http server 失败: %w", err)
	}

	return &App{
		cfg:       cfg,
		positions: positions,
		results:   results,
		backtests: svc,
		profiles:  registry,
		httpSrv:   httpSrv,
		Summary:   buildStartupSummary(cfg, registry),
	}, nil
}
