package notify

import (
	"fmt"

	"github.com/telecare/oncall/core/logger"
	corenotify "github.com/telecare/oncall/core/notify"
)

const (
	KindMQTT    = "mqtt"
	KindWebPush = "webpush"
)

// Config selects and configures the push delivery backend.
type Config struct {
	Kind    string        `json:"kind"`
	MQTT    MQTTConfig    `json:"mqtt"`
	WebPush WebPushConfig `json:"webpush"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Kind == "" {
		c.Kind = KindWebPush
	}
}

// Validate checks the selected backend.
func (c Config) Validate() error {
	switch c.Kind {
	case KindMQTT, KindWebPush:
		return nil
	default:
		return fmt.Errorf("unknown notifier kind %s", c.Kind)
	}
}

// NewSender constructs the configured sender.
func NewSender(cfg Config, log logger.Logger) (corenotify.Sender, error) {
	switch cfg.Kind {
	case KindMQTT:
		return NewMQTTSender(cfg.MQTT, log)
	case KindWebPush:
		return NewWebPushSender(cfg.WebPush, log)
	default:
		return nil, fmt.Errorf("unknown notifier kind %s", cfg.Kind)
	}
}
