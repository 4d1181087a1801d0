package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Producer interface {
	SendMessage(ctx context.Context, key, value []byte) error
	Close() error
}

// WriterProducer publishes order events through kafka-go.
type WriterProducer struct {
	writer *kafka.Writer
}

func NewWriterProducer(brokers []string, topic string) *WriterProducer {
	return &WriterProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (p *WriterProducer) SendMessage(ctx context.Context, key, value []byte) error {
	return p.writer.WriteMessages(ctx, kafka.Message{Key: key, Value: value})
}

func (p *WriterProducer) Close() error {
	return p.writer.Close()
}

// LogProducer is the fallback when no broker is configured: events go to the
// log instead of a topic.
type LogProducer struct {
	log *zap.Logger
}

func NewLogProducer(log *zap.Logger) *LogProducer {
	return &LogProducer{log: log}
}

func (p *LogProducer) SendMessage(ctx context.Context, key, value []byte) error {
	p.log.Info("order event",
		zap.ByteString("key", key),
		zap.ByteString("value", value))
	return nil
}

func (p *LogProducer) Close() error { return nil }
