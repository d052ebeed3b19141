package repository

import (
	"context"

	"StockSense/internal/domain/models"
	drepo "StockSense/internal/domain/repository"
	pkgkafka "StockSense/pkg/kafka"
	applogger "StockSense/pkg/logger"
)

// KafkaPublisher publishes analysis events keyed by ticker, so one ticker's
// events stay ordered on one partition.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

// PublishAnalysis sends the event with the run id as trace id.
func (p *KafkaPublisher) PublishAnalysis(ctx context.Context, ev *models.AnalysisEvent) error {
	ctx = pkgkafka.WithTraceID(ctx, ev.RunID)
	return p.producer.Publish(ctx, p.topic, []byte(ev.Ticker), ev)
}

// PublishMessage lets the log collector ship aggregated logs through the same producer.
func (p *KafkaPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Publish(ctx, topic, nil, payload)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

var (
	_ drepo.EventPublisher = (*KafkaPublisher)(nil)
	_ applogger.Publisher  = (*KafkaPublisher)(nil)
)
