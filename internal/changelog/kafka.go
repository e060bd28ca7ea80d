package changelog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// KafkaLog publishes committed change-log entries to a Kafka topic, one
// message per entry, keyed by row id so partial updates for the same row stay
// ordered within a partition.
type KafkaLog struct {
	writer *kafka.Writer
}

func NewKafkaLog(brokers []string, topic string) *KafkaLog {
	return &KafkaLog{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (l *KafkaLog) Close() error { return l.writer.Close() }

func (l *KafkaLog) Begin(country string) Session {
	return &kafkaSession{log: l, country: country}
}

type kafkaSession struct {
	log     *KafkaLog
	country string
	pending []Entry
}

func (s *kafkaSession) Add(table, rowID, op string) {
	s.pending = append(s.pending, Entry{
		ID:      uuid.New().String(),
		Country: s.country,
		Table:   table,
		RowID:   rowID,
		Op:      op,
		At:      time.Now().UTC(),
	})
}

func (s *kafkaSession) Commit(ctx context.Context) error {
	if len(s.pending) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(s.pending))
	for _, e := range s.pending {
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		msgs = append(msgs, kafka.Message{Key: []byte(e.RowID), Value: data})
	}
	if err := s.log.writer.WriteMessages(ctx, msgs...); err != nil {
		return err
	}
	s.pending = nil
	return nil
}
