package config

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load 读取 YAML 配置并应用默认值。path 为空时返回全默认配置。
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
		}
		v := viper.New()
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
		}
		if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
			dc.WeaklyTypedInput = true
		}); err != nil {
			return nil, fmt.Errorf("parsing config failed: %w", err)
		}
	}
	cfg.applyDefaults()
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default 返回全默认配置（测试与回测使用）。
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}
