package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

const requestIDHeader = "request-id"

// ProofUploaded публикуется после того, как нода вернула CID
type ProofUploaded struct {
	CID               string    `json:"cid"`
	GatewayURL        string    `json:"gatewayUrl"`
	Filename          string    `json:"filename"`
	Size              int64     `json:"size"`
	Description       string    `json:"description,omitempty"`
	Amount            string    `json:"amount,omitempty"`
	ContractorAddress string    `json:"contractorAddress,omitempty"`
	RequestID         string    `json:"requestId,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

type Publisher interface {
	PublishProofUploaded(ctx context.Context, event ProofUploaded) error
	Close() error
}

type kafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) Publisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return &kafkaPublisher{writer: writer}
}

// PublishProofUploaded пишет событие синхронно, ключ сообщения = CID
func (p *kafkaPublisher) PublishProofUploaded(ctx context.Context, event ProofUploaded) error {
	msg, err := newMessage(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write proof event: %w", err)
	}
	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}

func newMessage(event ProofUploaded) (kafka.Message, error) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal proof event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.CID),
		Value: payload,
		Time:  event.Timestamp,
	}
	if event.RequestID != "" {
		msg.Headers = []kafka.Header{{Key: requestIDHeader, Value: []byte(event.RequestID)}}
	}
	return msg, nil
}

// NopPublisher используется, когда KAFKA_BROKERS не задан
type NopPublisher struct{}

func (NopPublisher) PublishProofUploaded(context.Context, ProofUploaded) error { return nil }
func (NopPublisher) Close() error                                             { return nil }
