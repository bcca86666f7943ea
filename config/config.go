// Package config loads the tool configuration from file and environment
// variables. Everything has a working default; a config file is optional.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config represents the tool configuration.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Offsets OffsetsConfig `mapstructure:"offsets"`

	// DroppableTablesFile names a file listing, one per line, the tables
	// a merge may evict when the type-ID space runs out.
	DroppableTablesFile string `mapstructure:"droppable_tables_file"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// OffsetsConfig holds the spike-detection thresholds for automatic time
// shift detection.
type OffsetsConfig struct {
	BGUCurrent   float64 `mapstructure:"bgu_current"`   // BGU1.CurrAll launch threshold
	CraftCurrent float64 `mapstructure:"craft_current"` // BAT.Curr launch threshold
	RCOUChannel  float64 `mapstructure:"rcou_channel"`  // RCOU.C1 fallback threshold
	IPSCurrent   float64 `mapstructure:"ips_current"`   // IPS.mA fallback threshold
}

// Load loads configuration from the given file (optional) and DFLOG_*
// environment variables, falling back to defaults.
func Load(configFile string) (*Config, error) {
	setDefaults()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("dflogtool")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("DFLOG")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// No config file is fine, defaults apply.
		} else if os.IsNotExist(err) {
			// Same for an explicitly named but absent file.
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("offsets.bgu_current", 18.0)
	viper.SetDefault("offsets.craft_current", 18.0)
	viper.SetDefault("offsets.rcou_channel", 1500.0)
	viper.SetDefault("offsets.ips_current", 600.0)
	viper.SetDefault("droppable_tables_file", "")
}

func validate(cfg *Config) error {
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid logging level %q", cfg.Logging.Level)
	}

	if cfg.Offsets.BGUCurrent <= 0 || cfg.Offsets.CraftCurrent <= 0 ||
		cfg.Offsets.RCOUChannel <= 0 || cfg.Offsets.IPSCurrent <= 0 {
		return fmt.Errorf("offset thresholds must be positive")
	}

	return nil
}
