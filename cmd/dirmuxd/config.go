// File: cmd/dirmuxd/config.go
// Daemon configuration loading.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/momentics/dirmux/logging"
)

// daemonConfig is the full file configuration of dirmuxd.
type daemonConfig struct {
	Listen struct {
		Stream   string `mapstructure:"stream"`
		Datagram string `mapstructure:"datagram"`
	} `mapstructure:"listen"`
	Reactor struct {
		ReadBufferSize int `mapstructure:"read_buffer_size"`
		PoolPerClass   int `mapstructure:"pool_per_class"`
	} `mapstructure:"reactor"`
	Log logging.Config `mapstructure:"log"`
}

// loadConfig reads the YAML config file, layering environment
// variables with the DIRMUX_ prefix on top.
func loadConfig(path string) (daemonConfig, *viper.Viper, error) {
	v := viper.New()
	v.SetDefault("listen.stream", ":10389")
	v.SetDefault("listen.datagram", "")
	v.SetDefault("reactor.read_buffer_size", 64*1024)
	v.SetDefault("reactor.pool_per_class", 64)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetEnvPrefix("DIRMUX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return daemonConfig{}, nil, errors.Wrap(err, "read config")
		}
	}

	var cfg daemonConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return daemonConfig{}, nil, errors.Wrap(err, "unmarshal config")
	}
	return cfg, v, nil
}
