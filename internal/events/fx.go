package events

import (
	"context"
	"strings"

	"github.com/smallbiznis/showcase/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("events",
	fx.Provide(NewPublisher),
)

// NewPublisher returns a Kafka publisher when brokers are configured and a no-op one otherwise.
func NewPublisher(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) Publisher {
	topic := strings.TrimSpace(cfg.KafkaClassificationTopic)
	if len(cfg.KafkaBrokers) == 0 || topic == "" {
		log.Info("classification events disabled")
		return NoopPublisher{}
	}

	publisher := NewKafkaPublisher(NewKafkaWriter(cfg.KafkaBrokers, topic))
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return publisher.Close()
		},
	})
	log.Info("classification events enabled",
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.String("topic", topic),
	)
	return publisher
}
