package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ParseConfig attempts to read and parse configuration from the given file path.
// An error is returned if reading or parsing the config fails. An empty path
// yields the defaults with environment overrides.
func ParseConfig(configPath string) (Config, error) {
	var cfg Config

	v := viper.New()
	v.AutomaticEnv()
	// Allow nested env vars to be read with underscore separators.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.setDefaults()

	return cfg, cfg.Validate()
}
