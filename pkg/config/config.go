// Package config holds default tunables for the five cores and a thin YAML
// loader for an application that wants to override them, in the teacher's
// pkg/config style. The cores themselves never read a file; a Config value
// is just a bag of constructor arguments an application can source from
// YAML, flags, or literal Go code.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// AppendLogDefaults configures the chunk size used when a caller doesn't
// pass one explicitly.
type AppendLogDefaults struct {
	ChunkSize int `yaml:"chunkSize"`
}

// PoolDefaults configures a generic Pool's warm-set and ceiling.
type PoolDefaults struct {
	MinCapacity int `yaml:"minCapacity"`
	MaxCapacity int `yaml:"maxCapacity"`
}

// CacheDefaults configures a Cache's capacity.
type CacheDefaults struct {
	Capacity int `yaml:"capacity"`
}

// PubSubDefaults configures how many partitions a new topic is created
// with.
type PubSubDefaults struct {
	Partitions int `yaml:"partitions"`
}

// ActorSystemDefaults configures the fixed worker pool and mailbox sizing.
type ActorSystemDefaults struct {
	Workers         int           `yaml:"workers"`
	MailboxCapacity int           `yaml:"mailboxCapacity"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// Config is the top-level set of tunables loadable from YAML.
type Config struct {
	AppendLog   AppendLogDefaults   `yaml:"appendLog"`
	Pool        PoolDefaults        `yaml:"pool"`
	Cache       CacheDefaults       `yaml:"cache"`
	PubSub      PubSubDefaults      `yaml:"pubSub"`
	ActorSystem ActorSystemDefaults `yaml:"actorSystem"`
}

// Default returns the built-in defaults, matching the values spec.md names
// explicitly (1024-element chunks) and sane values for everything else.
func Default() Config {
	return Config{
		AppendLog: AppendLogDefaults{ChunkSize: 1024},
		Pool:      PoolDefaults{MinCapacity: 0, MaxCapacity: 8},
		Cache:     CacheDefaults{Capacity: 1024},
		PubSub:    PubSubDefaults{Partitions: 1},
		ActorSystem: ActorSystemDefaults{
			Workers:         4,
			MailboxCapacity: 256,
			ShutdownTimeout: 5 * time.Second,
		},
	}
}

// Load reads a YAML document at path and overlays it onto Default().
func Load(path string) (Config, error) {
	cfg := Default()
	// #nosec G304 -- path is supplied by the embedding application.
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}
