package config

import (
	"github.com/jcooky/go-din"
)

type ServerConfig struct {
	Host string `env:"HOST"`
	Port int    `env:"PORT"`

	// DatabaseUrl selects the backing store: a postgres:// URL, or a
	// sqlite file path for anything else.
	DatabaseUrl         string `env:"DATABASE_URL"`
	DatabaseAutoMigrate bool   `env:"DATABASE_AUTO_MIGRATE"`

	MaxBodyBytes int64 `env:"MAX_BODY_BYTES"`
}

func init() {
	din.RegisterT(func(c *din.Container) (*ServerConfig, error) {
		conf := &ServerConfig{
			Host:                "0.0.0.0",
			Port:                3001,
			DatabaseUrl:         "chatrelay.db",
			DatabaseAutoMigrate: true,
			MaxBodyBytes:        10 << 20,
		}
		return conf, resolveConfig(conf, c.Env == din.EnvTest)
	})
}
