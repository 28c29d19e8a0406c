// Package provider opens the eventstream publisher selected by configuration.
package provider

import (
	"fmt"
	"log/slog"

	"github.com/papercomputeco/agentchat/pkg/config"
	"github.com/papercomputeco/agentchat/pkg/eventstream"
	"github.com/papercomputeco/agentchat/pkg/eventstream/kafka"
	"github.com/papercomputeco/agentchat/pkg/eventstream/nop"
)

// Open returns the publisher named by cfg.Provider. An empty provider
// disables publishing.
func Open(cfg config.EventStreamConfig, log *slog.Logger) (eventstream.Publisher, error) {
	switch cfg.Provider {
	case config.EventStreamNop, "":
		return nop.NewPublisher(), nil
	case config.EventStreamKafka:
		return kafka.NewPublisher(kafka.Config{
			Brokers: cfg.BrokerList(),
			Topic:   cfg.Topic,
			Logger:  log,
		})
	default:
		return nil, fmt.Errorf("unknown eventstream provider: %q", cfg.Provider)
	}
}
