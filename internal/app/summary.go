package app

import (
	"fmt"
	"strings"

	sdcfg "swingdesk/internal/config"
	"swingdesk/internal/profile"
	"swingdesk/internal/safety"
)

// StartupSummary 是启动时打印的一次性配置摘要。
type StartupSummary struct {
	Env       string
	HTTPAddr  string
	Profiles  []string
	Active    string
	Readiness safety.Readiness
	Warnings  []safety.Warning
}

func buildStartupSummary(cfg *sdcfg.Config, registry *profile.Registry) *StartupSummary {
	s := &StartupSummary{
		Env:       cfg.App.Env,
		HTTPAddr:  cfg.App.HTTPAddr,
		Active:    cfg.Profile.Active,
		Readiness: safety.GetReadiness(cfg.Strategy),
		Warnings:  safety.Evaluate(cfg.Strategy),
	}
	if registry != nil {
		s.Profiles = registry.IDs()
	}
	return s
}

func (s *StartupSummary) Print() {
	fmt.Println(strings.Repeat("=", 72))
	fmt.Println("启动配置摘要 (STARTUP SUMMARY)")
	fmt.Println(strings.Repeat("=", 72))

	fmt.Printf("  环境: %s\n", s.Env)
	fmt.Printf("  HTTP: %s\n", s.HTTPAddr)
	fmt.Printf("  档位: %s (active=%s)\n", formatList(s.Profiles), s.Active)
	fmt.Println()

	fmt.Println("[配置就绪 (READINESS)]")
	if s.Readiness.IsReady {
		fmt.Println("  已配置")
	} else {
		fmt.Printf("  %s\n", s.Readiness.Message)
		for _, item := range s.Readiness.ActionItems {
			fmt.Printf("    - %s\n", item)
		}
	}
	fmt.Println()

	fmt.Println("[参数预警 (SAFETY)]")
	if len(s.Warnings) == 0 {
		fmt.Println("  (无)")
	} else {
		for _, w := range s.Warnings {
			fmt.Printf("  [%s] %s\n", w.Severity, w.Message)
		}
	}
	fmt.Println(strings.Repeat("=", 72))
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
