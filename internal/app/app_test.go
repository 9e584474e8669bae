package app

import (
	"context"
	"path/filepath"
	"testing"

	sdcfg "swingdesk/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *sdcfg.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := sdcfg.Default()
	cfg.Store.PositionsPath = filepath.Join(dir, "positions.db")
	cfg.Store.BacktestDir = filepath.Join(dir, "backtest")
	cfg.Profile.Path = filepath.Join(dir, "profiles.yaml") // 不存在，应跳过而不是报错
	return cfg
}

func TestBuilderBuildsWithoutProfileFile(t *testing.T) {
	application, err := NewAppBuilder(testConfig(t)).Build(context.Background())
	require.NoError(t, err)
	defer application.Close()

	assert.NotNil(t, application.HTTPServer())
	require.NotNil(t, application.Summary)
	assert.Empty(t, application.Summary.Profiles)
	assert.False(t, application.Summary.Readiness.IsReady, "出厂默认配置不算已配置")
}

func TestNewAppRejectsNilConfig(t *testing.T) {
	_, err := NewApp(nil)
	assert.Error(t, err)
}
