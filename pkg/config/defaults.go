package config

import "time"

// Client modes.
const (
	ModeStream = "stream"
	ModeInvoke = "invoke"
)

// Storage drivers.
const (
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Event stream providers.
const (
	EventStreamNop   = "nop"
	EventStreamKafka = "kafka"
)

const (
	defaultBaseURL       = "http://localhost:8080"
	defaultClientMode    = ModeStream
	defaultClientTimeout = 5 * time.Minute

	defaultStorageDriver = StorageSQLite

	defaultRelayListen = ":8090"

	defaultEventStreamProvider = EventStreamNop
	defaultEventStreamTopic    = "agentchat.exchanges"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Client: ClientConfig{
			BaseURL: defaultBaseURL,
			Mode:    defaultClientMode,
			Timeout: defaultClientTimeout.String(),
		},
		Storage: StorageConfig{
			Driver: defaultStorageDriver,
		},
		Relay: RelayConfig{
			Listen: defaultRelayListen,
		},
		EventStream: EventStreamConfig{
			Provider: defaultEventStreamProvider,
			Topic:    defaultEventStreamTopic,
		},
	}
}
