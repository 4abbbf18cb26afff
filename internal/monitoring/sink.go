package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/segmentio/kafka-go"

	"github.com/i474232898/energy-price-forecast/internal/common"
	"github.com/i474232898/energy-price-forecast/internal/featurestore"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes monitoring rows to a topic, one message per day keyed
// by date. Writes are synchronous and acknowledged by all in-sync replicas.
type KafkaSink struct {
	writer messageWriter
	topic  string
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}
	return &KafkaSink{writer: writer, topic: topic}
}

type monitoringEvent struct {
	Date   string             `json:"date"`
	Values map[string]float64 `json:"values"`
}

func (s *KafkaSink) Insert(ctx context.Context, rows []featurestore.FeatureRow, _ featurestore.WriteOptions) error {
	if len(rows) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(rows))
	for _, r := range rows {
		date := common.CalendarDate(r.Date).Format(common.DateLayout)
		data, err := json.Marshal(monitoringEvent{Date: date, Values: r.Values})
		if err != nil {
			return fmt.Errorf("failed to marshal monitoring row %s: %w", date, err)
		}
		msgs = append(msgs, kafka.Message{Key: []byte(date), Value: data})
	}
	if err := s.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to write %d messages to kafka topic %s: %w", len(msgs), s.topic, err)
	}
	return nil
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}

// MultiSink writes to every sink in order. The first sink is the system of
// record; a failure there stops the write.
type MultiSink []featurestore.FeatureWriter

func (m MultiSink) Insert(ctx context.Context, rows []featurestore.FeatureRow, opts featurestore.WriteOptions) error {
	if len(m) == 0 {
		return nil
	}
	if err := m[0].Insert(ctx, rows, opts); err != nil {
		return err
	}
	var result *multierror.Error
	for _, s := range m[1:] {
		if err := s.Insert(ctx, rows, opts); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
