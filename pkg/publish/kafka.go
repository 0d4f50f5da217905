// Package publish envoie sur Kafka un événement de segment par client noté.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"retail-rfm/pkg/models"
)

// SegmentEvent est la valeur du message publié pour chaque client.
type SegmentEvent struct {
	DatasetID   string         `json:"dataset_id"`
	CustomerID  string         `json:"customer_id"`
	Segment     models.Segment `json:"segment"`
	RFMScore    string         `json:"rfm_score"`
	Recency     int            `json:"recency"`
	Frequency   int            `json:"frequency"`
	Monetary    float64        `json:"monetary"`
	GeneratedAt time.Time      `json:"generated_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publie les événements, clé = identifiant client.
type KafkaSink struct {
	writer messageWriter
	topic  string
}

// NewKafkaSink crée le producteur du topic.
func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
		topic: topic,
	}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Deliver(ctx context.Context, d models.Delivery) error {
	msgs, err := buildMessages(d)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}
	if err := s.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %s: %w", s.topic, err)
	}
	slog.Debug("segment events published", "topic", s.topic, "messages", len(msgs))
	return nil
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}

func buildMessages(d models.Delivery) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(d.Customers))
	for _, c := range d.Customers {
		data, err := json.Marshal(SegmentEvent{
			DatasetID:   d.DatasetID,
			CustomerID:  c.CustomerID,
			Segment:     c.Segment,
			RFMScore:    c.RFMScore,
			Recency:     c.Recency,
			Frequency:   c.Frequency,
			Monetary:    c.Monetary,
			GeneratedAt: d.GeneratedAt,
		})
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(c.CustomerID),
			Value: data,
		})
	}
	return msgs, nil
}
