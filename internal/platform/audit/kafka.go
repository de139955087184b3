package audit

import (
	"context"
	"encoding/json"
	"time"

	skafka "github.com/segmentio/kafka-go"
)

// Writer is the part of kafka.Writer the sink uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...skafka.Message) error
	Close() error
}

// KafkaSink streams audit entries keyed by organisation so one tenant's
// entries share a partition.
type KafkaSink struct {
	writer Writer
}

// One audit entry per write: flush quickly instead of waiting for a batch.
const batchTimeout = 10 * time.Millisecond

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{writer: &skafka.Writer{
		Addr:         skafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &skafka.Hash{},
		BatchTimeout: batchTimeout,
		WriteTimeout: 5 * time.Second,
		MaxAttempts:  3,
	}}
}

func NewKafkaSinkWithWriter(w Writer) *KafkaSink {
	return &KafkaSink{writer: w}
}

func (s *KafkaSink) Publish(ctx context.Context, key string, value interface{}) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.writer.WriteMessages(ctx, skafka.Message{Key: []byte(key), Value: b})
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
