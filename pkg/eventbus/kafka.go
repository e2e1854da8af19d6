// Package eventbus publishes activity events to Kafka.
package eventbus

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// Message 一条待发布的事件
type Message struct {
	Key   string
	Type  string
	Value []byte
}

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}}
}

// Publish 批量写入；按 key 分区保证同一接收者的事件有序
func (p *KafkaPublisher) Publish(ctx context.Context, msgs []Message) error {
	if len(msgs) == 0 {
		return nil
	}
	out := make([]kafka.Message, len(msgs))
	for i, m := range msgs {
		out[i] = kafka.Message{
			Key:     []byte(m.Key),
			Value:   m.Value,
			Headers: []kafka.Header{{Key: "event_type", Value: []byte(m.Type)}},
		}
	}
	return p.writer.WriteMessages(ctx, out...)
}

func (p *KafkaPublisher) Close() error { return p.writer.Close() }
