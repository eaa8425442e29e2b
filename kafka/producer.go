package kafka

import (
	"context"
	"encoding/json"
	"time"

	"order-service/models"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// StockProducer publishes stock-change notifications for the external
// real-time broadcaster. Delivery is at-most-once from this service's
// perspective; the transport owns retries.
type StockProducer struct {
	writer *kafka.Writer
	topic  string
	logger *zap.Logger
}

func NewStockProducer(brokers []string, topic string, logger *zap.Logger) *StockProducer {
	w := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
	logger.Info("kafka stock producer initialized",
		zap.String("topic", topic),
		zap.Strings("brokers", brokers),
	)
	return &StockProducer{writer: w, topic: topic, logger: logger}
}

// PublishStockChange sends the new stock levels of every product an order
// touched.
func (p *StockProducer) PublishStockChange(ctx context.Context, levels []models.StockLevel) error {
	event := models.StockChangedEvent{
		Products:  levels,
		Timestamp: time.Now().UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Value: data}); err != nil {
		p.logger.Error("failed to publish stock change",
			zap.String("topic", p.topic),
			zap.Int("products", len(levels)),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (p *StockProducer) Close() error {
	return p.writer.Close()
}
