package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the daemon configuration for the serve command.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Stores StoresConfig `mapstructure:"stores"`
}

type ServerConfig struct {
	Listen string `mapstructure:"listen"`
}

type StoresConfig struct {
	Log        string `mapstructure:"log"`
	Staging    string `mapstructure:"staging"`
	Production string `mapstructure:"production"`
}

// Load reads the configuration file at path, applying STAGESYNC_* environment
// overrides and defaults, and validates the result.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("stagesync")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listen", ":8080")
}

func (c Config) Validate() error {
	if c.Stores.Log == "" {
		return fmt.Errorf("stores.log is required")
	}
	if c.Stores.Staging == "" {
		return fmt.Errorf("stores.staging is required")
	}
	if c.Stores.Production == "" {
		return fmt.Errorf("stores.production is required")
	}
	if c.Stores.Staging == c.Stores.Production {
		return fmt.Errorf("stores.staging and stores.production must differ")
	}
	return nil
}
