package main

import (
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/pkg/errors"
)

// config is the CLI configuration. Values are layered: built-in defaults,
// then the optional yaml file, then REDISQ_* environment variables.
type config struct {
	// RedisURL is the connection URL of the backing store. When left
	// empty, the backend falls back to the REDIS_URL environment variable.
	RedisURL string `koanf:"redis_url"`
	// Queues are the queue names the info, flush and watch commands
	// operate on by default.
	Queues []string `koanf:"queues"`
	// WatchIntervalSecond is how often the watch command samples queue
	// lengths.
	WatchIntervalSecond int `koanf:"watch_interval_second"`
}

func loadConfig(path string) (*config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"redis_url":             "",
		"queues":                []string{"default"},
		"watch_interval_second": 5,
	}
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, errors.Wrap(err, "load default config")
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "load config file %s", path)
		}
	}
	err := k.Load(env.Provider("REDISQ_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "REDISQ_")), "__", ".")
	}), nil)
	if err != nil {
		return nil, errors.Wrap(err, "load config from environment")
	}

	var cfg config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	return &cfg, nil
}
