package config

import (
	"context"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, an optional file, and env
// vars, then validates the result. Precedence (low -> high):
//  1. defaults (New)
//  2. file (YAML) if CRIBSENSE_CONFIG is set
//  3. env (prefix CRIBSENSE_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("CRIBSENSE_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, WrapKind("config.load", ErrLoadConfig, err)
		}
	}

	// CRIBSENSE_QUEUE_SIZE -> queue_size; threshold keys nest under the
	// thresholds block: CRIBSENSE_THRESHOLDS_FEEDING_INTERVAL_HOURS ->
	// thresholds.feeding_interval_hours.
	envProvider := env.Provider("CRIBSENSE_", ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, "CRIBSENSE_"))
		if rest, ok := strings.CutPrefix(s, "thresholds_"); ok {
			return "thresholds." + rest
		}
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, WrapKind("config.load", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, WrapKind("config.load", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
