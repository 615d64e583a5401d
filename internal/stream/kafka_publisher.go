package stream

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/spec-kit/isp-routing-engine/internal/config"
	"github.com/spec-kit/isp-routing-engine/internal/events"
)

// KafkaPublisher mirrors dispatcher events onto a Kafka topic for audit and
// analytics consumers. It is optional: with no brokers configured the
// constructor returns nil and nothing subscribes.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewKafkaPublisher creates the publisher, or nil when no brokers are set.
func NewKafkaPublisher(cfg config.KafkaConfig, logger *zap.Logger) *KafkaPublisher {
	if len(cfg.Brokers) == 0 {
		return nil
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(cfg.Brokers...),
			Topic:    cfg.EventsTopic,
			Balancer: &kafka.LeastBytes{},
		},
		logger: logger,
	}
}

// RegisterHandlers subscribes the publisher to every event type.
func (p *KafkaPublisher) RegisterHandlers(dispatcher events.Dispatcher) {
	if p == nil || dispatcher == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketClaimed,
		events.EventTicketClosed,
		events.EventLeadQualified,
	} {
		dispatcher.Subscribe(eventType, p.publish)
	}
}

func (p *KafkaPublisher) publish(ctx context.Context, event events.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(event.TicketID),
		Value: data,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Warn("kafka publish failed", zap.String("event_type", string(event.Type)), zap.Error(err))
		return err
	}
	return nil
}

// Close closes the Kafka writer.
func (p *KafkaPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
