package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// Parse reads JSONC configuration content on top of base.
func Parse(content string, base Config) (Config, []Warning, error) {
	if strings.TrimSpace(content) == "" {
		return finish(base, nil)
	}
	return parseJSONC(content, base)
}

// ParseTOML reads TOML configuration content on top of base. Unknown keys are
// reported as warnings rather than errors.
func ParseTOML(content string, base Config) (Config, []Warning, error) {
	var payload fileConfig
	meta, err := toml.Decode(content, &payload)
	if err != nil {
		return Config{}, nil, fmt.Errorf("decode toml: %w", err)
	}

	var warnings []Warning
	for _, key := range meta.Undecoded() {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("unknown key %q ignored", key.String())})
	}

	cfg := base
	if err := payload.applyTo(&cfg); err != nil {
		return Config{}, nil, err
	}
	return finish(cfg, warnings)
}

func finish(cfg Config, warnings []Warning) (Config, []Warning, error) {
	validated, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, append(warnings, validated...), nil
}
