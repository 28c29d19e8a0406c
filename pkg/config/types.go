package config

import (
	"fmt"
	"strings"
	"time"
)

// Config represents the persistent agentchat configuration stored as
// config.toml in the .agentchat/ directory.
type Config struct {
	Version     int               `toml:"version"`
	Client      ClientConfig      `toml:"client"`
	Storage     StorageConfig     `toml:"storage"`
	Relay       RelayConfig       `toml:"relay"`
	EventStream EventStreamConfig `toml:"eventstream"`
}

// ClientConfig holds settings for commands that talk to the agent service
// (agentchat chat, ask, tui, info, history, feedback, status).
type ClientConfig struct {
	// BaseURL is the agent service URL (scheme + host + port).
	BaseURL string `toml:"base_url,omitempty"`

	// Agent selects the agent. Empty means the service default agent and
	// requests go to /invoke and /stream instead of /{agent}/....
	Agent string `toml:"agent,omitempty"`

	// Model is forwarded as the request "model" field when set.
	Model string `toml:"model,omitempty"`

	// UserID is forwarded as the request "user_id" field when set, so the
	// agent service can attribute threads across clients.
	UserID string `toml:"user_id,omitempty"`

	// Mode is "stream" or "invoke".
	Mode string `toml:"mode,omitempty"`

	// Timeout is the per-request timeout as a Go duration string.
	Timeout string `toml:"timeout,omitempty"`
}

// StorageConfig holds local transcript storage settings.
type StorageConfig struct {
	// Driver is one of "sqlite", "postgres" or "memory".
	Driver      string `toml:"driver,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// RelayConfig holds settings for "agentchat serve".
type RelayConfig struct {
	Listen string `toml:"listen,omitempty"`

	// Upstream is the agent service URL the relay forwards to. Falls back to
	// client.base_url when empty.
	Upstream string `toml:"upstream,omitempty"`
}

// EventStreamConfig holds exchange event publishing settings.
type EventStreamConfig struct {
	// Provider is "nop" or "kafka".
	Provider string `toml:"provider,omitempty"`

	// Brokers is a comma separated list of Kafka broker addresses.
	Brokers string `toml:"brokers,omitempty"`
	Topic   string `toml:"topic,omitempty"`
}

// TimeoutDuration parses Client.Timeout, falling back to the default.
func (c ClientConfig) TimeoutDuration() (time.Duration, error) {
	if c.Timeout == "" {
		return defaultClientTimeout, nil
	}

	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid client.timeout %q: %w", c.Timeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid client.timeout %q: must be positive", c.Timeout)
	}

	return d, nil
}

// Streaming reports whether the client should use the streaming endpoint.
func (c ClientConfig) Streaming() bool {
	return c.Mode != ModeInvoke
}

// BrokerList splits EventStream.Brokers into trimmed, non-empty addresses.
func (e EventStreamConfig) BrokerList() []string {
	var out []string
	for _, b := range strings.Split(e.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"client.base_url": {
		get: func(c *Config) string { return c.Client.BaseURL },
		set: func(c *Config, v string) error { c.Client.BaseURL = strings.TrimRight(v, "/"); return nil },
	},
	"client.agent": {
		get: func(c *Config) string { return c.Client.Agent },
		set: func(c *Config, v string) error { c.Client.Agent = v; return nil },
	},
	"client.model": {
		get: func(c *Config) string { return c.Client.Model },
		set: func(c *Config, v string) error { c.Client.Model = v; return nil },
	},
	"client.user_id": {
		get: func(c *Config) string { return c.Client.UserID },
		set: func(c *Config, v string) error { c.Client.UserID = v; return nil },
	},
	"client.mode": {
		get: func(c *Config) string { return c.Client.Mode },
		set: func(c *Config, v string) error {
			if v != ModeStream && v != ModeInvoke {
				return fmt.Errorf("invalid value for client.mode: %q (expected %q or %q)", v, ModeStream, ModeInvoke)
			}
			c.Client.Mode = v
			return nil
		},
	},
	"client.timeout": {
		get: func(c *Config) string { return c.Client.Timeout },
		set: func(c *Config, v string) error {
			candidate := ClientConfig{Timeout: v}
			if _, err := candidate.TimeoutDuration(); err != nil {
				return err
			}
			c.Client.Timeout = v
			return nil
		},
	},
	"storage.driver": {
		get: func(c *Config) string { return c.Storage.Driver },
		set: func(c *Config, v string) error {
			switch v {
			case StorageSQLite, StoragePostgres, StorageMemory:
				c.Storage.Driver = v
				return nil
			default:
				return fmt.Errorf("invalid value for storage.driver: %q", v)
			}
		},
	},
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"storage.postgres_dsn": {
		get: func(c *Config) string { return c.Storage.PostgresDSN },
		set: func(c *Config, v string) error { c.Storage.PostgresDSN = v; return nil },
	},
	"relay.listen": {
		get: func(c *Config) string { return c.Relay.Listen },
		set: func(c *Config, v string) error { c.Relay.Listen = v; return nil },
	},
	"relay.upstream": {
		get: func(c *Config) string { return c.Relay.Upstream },
		set: func(c *Config, v string) error { c.Relay.Upstream = strings.TrimRight(v, "/"); return nil },
	},
	"eventstream.provider": {
		get: func(c *Config) string { return c.EventStream.Provider },
		set: func(c *Config, v string) error {
			if v != EventStreamNop && v != EventStreamKafka {
				return fmt.Errorf("invalid value for eventstream.provider: %q", v)
			}
			c.EventStream.Provider = v
			return nil
		},
	},
	"eventstream.brokers": {
		get: func(c *Config) string { return c.EventStream.Brokers },
		set: func(c *Config, v string) error { c.EventStream.Brokers = v; return nil },
	},
	"eventstream.topic": {
		get: func(c *Config) string { return c.EventStream.Topic },
		set: func(c *Config, v string) error { c.EventStream.Topic = v; return nil },
	},
}
