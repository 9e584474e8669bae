package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load 读取 YAML 配置，应用默认值并校验。顶层 include 列出的文件先合并，
// 本文件的值覆盖被包含文件的值。
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	v := viper.New()
	if err := mergeConfigFile(v, path, make(map[string]bool)); err != nil {
		return nil, err
	}
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "toml"
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	setKeys := make(keySet)
	markSetKeys("", v.AllSettings(), setKeys)
	cfg.applyDefaults(setKeys)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default 返回出厂默认配置，未加载配置文件时（以及 readiness 判定）使用。
func Default() *Config {
	var cfg Config
	cfg.applyDefaults(make(keySet))
	return &cfg
}

// mergeConfigFile 深度优先合并 include 链。每个文件只允许出现一次，
// 重复引用按环处理直接报错。
func mergeConfigFile(v *viper.Viper, path string, visited map[string]bool) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)
	if visited[abs] {
		return fmt.Errorf("include cycle detected: %s", abs)
	}
	visited[abs] = true

	src := viper.New()
	src.SetConfigFile(abs)
	if err := src.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config file failed (%s): %w", abs, err)
	}
	dir := filepath.Dir(abs)
	for _, inc := range src.GetStringSlice("include") {
		inc = strings.TrimSpace(inc)
		if inc == "" {
			continue
		}
		if !filepath.IsAbs(inc) {
			inc = filepath.Join(dir, inc)
		}
		if err := mergeConfigFile(v, inc, visited); err != nil {
			return err
		}
	}
	settings := src.AllSettings()
	delete(settings, "include")
	return v.MergeConfigMap(settings)
}

// markSetKeys 记录配置文件里显式出现的键路径，applyDefaults 据此区分
// "没写"与"写了零值"。
func markSetKeys(prefix string, node any, dest keySet) {
	m, ok := node.(map[string]any)
	if !ok {
		if prefix != "" {
			dest.mark(prefix)
		}
		return
	}
	for k, val := range m {
		key := strings.ToLower(strings.TrimSpace(k))
		if key == "" {
			continue
		}
		if prefix != "" {
			key = prefix + "." + key
		}
		markSetKeys(key, val, dest)
	}
}
