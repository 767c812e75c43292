package config

import "fmt"

type MetricsConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

const defaultMetricsPort = 2112

func (cfg *MetricsConfig) Validate() error {
	if cfg.Port == 0 {
		cfg.Port = defaultMetricsPort
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return fmt.Errorf("metrics port %d is out of range", cfg.Port)
	}
	return nil
}

func (cfg *MetricsConfig) GetMetricsPort() int {
	return cfg.Port
}
