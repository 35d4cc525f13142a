// Package kafka publishes security events as CloudEvents v1.0 for downstream
// consumers (SIEM ingestion, alerting).
package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Shopify/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CloudEvent defines the structure for CloudEvents v1.0.
type CloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	Type            string      `json:"type"`
	Source          string      `json:"source"`
	Subject         *string     `json:"subject,omitempty"`
	ID              string      `json:"id"`
	Time            time.Time   `json:"time"`
	DataContentType *string     `json:"datacontenttype,omitempty"`
	Data            interface{} `json:"data,omitempty"`
}

// EventType is a string alias for event types.
type EventType string

// Event types emitted by the login and trust flows.
const (
	EventTypeLoginBlocked     EventType = "com.trustengine.login.blocked"
	EventTypeAccountLocked    EventType = "com.trustengine.account.locked"
	EventTypeChallengeIssued  EventType = "com.trustengine.challenge.issued"
	EventTypeChallengePassed  EventType = "com.trustengine.challenge.passed"
	EventTypeChallengeFailed  EventType = "com.trustengine.challenge.failed"
	EventTypeAdminNewOrigin   EventType = "com.trustengine.admin.new_origin"
	EventTypeDeviceTrusted    EventType = "com.trustengine.device.trusted"
	EventTypeDeviceRevoked    EventType = "com.trustengine.device.revoked"
)

const (
	cloudEventSpecVersion     = "1.0"
	cloudEventDataContentType = "application/json"
)

// Producer sends CloudEvents to Kafka through a synchronous idempotent
// producer.
type Producer struct {
	producer sarama.SyncProducer
	logger   *zap.Logger
	source   string
	topic    string
}

// NewProducer creates a Kafka producer. cloudEventSource identifies the
// service, e.g. "/trust-engine".
func NewProducer(brokers []string, topic string, logger *zap.Logger, cloudEventSource string) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Flush.Frequency = 500 * time.Millisecond
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return &Producer{
		producer: producer,
		logger:   logger,
		source:   cloudEventSource,
		topic:    topic,
	}, nil
}

// PublishSecurityEvent constructs a CloudEvent and sends it to the configured
// topic. The subject (when set) keys the message, so events for one identity
// land on one partition in order.
func (p *Producer) PublishSecurityEvent(eventType EventType, subject *string, dataPayload interface{}) error {
	eventID, err := uuid.NewRandom()
	if err != nil {
		return fmt.Errorf("failed to generate event ID: %w", err)
	}

	contentType := cloudEventDataContentType
	event := CloudEvent{
		SpecVersion:     cloudEventSpecVersion,
		ID:              eventID.String(),
		Source:          p.source,
		Type:            string(eventType),
		DataContentType: &contentType,
		Subject:         subject,
		Time:            time.Now().UTC(),
		Data:            dataPayload,
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event to JSON: %w", err)
	}

	var messageKey sarama.Encoder
	if subject != nil && *subject != "" {
		messageKey = sarama.StringEncoder(*subject)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Value: sarama.ByteEncoder(eventJSON),
		Key:   messageKey,
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send event to Kafka: %w", err)
	}

	p.logger.Debug("security event published",
		zap.String("topic", p.topic),
		zap.String("event_type", string(eventType)),
		zap.String("event_id", event.ID),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
	return nil
}

// Close closes the underlying Kafka producer.
func (p *Producer) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka producer: %w", err)
	}
	return nil
}
