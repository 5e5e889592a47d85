package cli

import (
	"fmt"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"

	"stockbot-api/internal/config"
	"stockbot-api/pkg/confkit"
)

// ConfigSummaryLines returns human readable lines describing the loaded app config.
func ConfigSummaryLines(cfg *config.Config) []string {
	if cfg == nil {
		return []string{"Configuration: <nil>"}
	}

	return []string{
		fmt.Sprintf("Environment: %s", cfg.Env),
		fmt.Sprintf("Data dir: %s", cfg.DataDir),
		fmt.Sprintf("Snapshot dir: %s", orUnset(cfg.SnapshotDir)),
		fmt.Sprintf("Symbols file: %s", cfg.SymbolsFile),
		fmt.Sprintf("Lookup policy: %s", cfg.LookupPolicy),
		fmt.Sprintf("Max reply runes: %d", cfg.MaxReplyRunes),
		fmt.Sprintf("Postgres: %s", presence(cfg.Postgres.DSN != "")),
		sectionLine("LLM config", cfg.LLM),
		sectionLine("Line config", cfg.Line),
	}
}

// LogConfigSummary emits the configuration summary using logx.
func LogConfigSummary(cfg *config.Config) {
	lines := ConfigSummaryLines(cfg)
	if len(lines) == 0 {
		return
	}
	logx.Info("configuration summary")
	for _, line := range lines {
		logx.Infof("config • %s", line)
	}
}

func presence(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func orUnset(v string) string {
	if strings.TrimSpace(v) == "" {
		return "not configured"
	}
	return v
}

func sectionLine[T any](name string, section confkit.Section[T]) string {
	switch {
	case strings.TrimSpace(section.File) != "":
		return fmt.Sprintf("%s: %s", name, section.File)
	case section.Value != nil:
		return fmt.Sprintf("%s: inline", name)
	default:
		return fmt.Sprintf("%s: not configured", name)
	}
}
