package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/telecare/oncall/core/dispatch"
	"github.com/telecare/oncall/core/metrics"
	"github.com/telecare/oncall/infra/notify"
	"github.com/telecare/oncall/infra/session"
)

type Config struct {
	HTTP      HTTPConfig      `json:"http"`
	Dispatch  dispatch.Config `json:"dispatch"`
	Directory DirectoryConfig `json:"directory"`
	Notifier  notify.Config   `json:"notifier"`
	Session   session.Config  `json:"session"`
	Metrics   metrics.Config  `json:"metrics"`
	Audit     AuditConfig     `json:"audit"`
}

// HTTPConfig defines the public API listener.
type HTTPConfig struct {
	Addr string `json:"addr"`
}

// SetDefaults applies sane defaults.
func (c *HTTPConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("ONCALL_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "oncall_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.HTTP.SetDefaults()
	cfg.Dispatch.SetDefaults()
	cfg.Directory.SetDefaults()
	cfg.Notifier.SetDefaults()
	cfg.Session.SetDefaults()
	cfg.Metrics.SetDefaults()
	cfg.Audit.SetDefaults()
	if err := cfg.Dispatch.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Directory.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Notifier.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Session.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Audit.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
