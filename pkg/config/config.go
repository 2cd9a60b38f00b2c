// Package config loads thinking-loop configuration from YAML files.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/XiaoConstantine/ruminate/pkg/errors"
	"github.com/XiaoConstantine/ruminate/pkg/thinking"
)

// Load reads a YAML configuration file, fills in defaults for unset fields,
// and validates the result.
func Load(path string) (*thinking.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.ResourceNotFound, "failed to read config file"),
			errors.Fields{"path": path},
		)
	}
	return Parse(data)
}

// Parse decodes YAML configuration bytes, applying defaults and validating.
func Parse(data []byte) (*thinking.Config, error) {
	var cfg thinking.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, errors.InvalidInput, "failed to parse config")
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ValidationFailed, "invalid configuration")
	}
	return &cfg, nil
}
