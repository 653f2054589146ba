package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stockguardian/guardian-bot/internal/models"
)

// Event types
const (
	TypeAlertFired         = "ALERT_FIRED"
	TypeDailyReportCreated = "DAILY_REPORT_CREATED"
	TypeNotification       = "NOTIFICATION"
)

// Event is the envelope written to the topic
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// AlertPayload is the body of an ALERT_FIRED event
type AlertPayload struct {
	Symbol string             `json:"symbol"`
	Alert  *models.AlertEvent `json:"alert"`
}

// ReportPayload is the body of a DAILY_REPORT_CREATED event
type ReportPayload struct {
	Email  string              `json:"email"`
	Report *models.DailyReport `json:"report"`
}

// messageWriter is satisfied by *kafka.Writer
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer handles publishing events to Kafka
type Producer struct {
	writer messageWriter
	topic  string
	now    func() time.Time
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
		now:    time.Now,
	}
}

// PublishAlert publishes an alert fired event keyed by symbol
func (p *Producer) PublishAlert(ctx context.Context, symbol string, alert *models.AlertEvent) error {
	return p.publish(ctx, symbol, TypeAlertFired, AlertPayload{Symbol: symbol, Alert: alert})
}

// PublishDailyReport publishes a report created event keyed by user
func (p *Producer) PublishDailyReport(ctx context.Context, email string, report *models.DailyReport) error {
	key := strconv.FormatInt(report.UserID, 10)
	return p.publish(ctx, key, TypeDailyReportCreated, ReportPayload{Email: email, Report: report})
}

// Name returns the notification channel name
func (p *Producer) Name() string {
	return "kafka"
}

// Send publishes text as a notification event, so the producer can sit
// alongside the other notification channels.
func (p *Producer) Send(ctx context.Context, text string) error {
	return p.publish(ctx, "notification", TypeNotification, map[string]string{"text": text})
}

func (p *Producer) publish(ctx context.Context, key, eventType string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	event := Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: p.now().UTC(),
		Payload:   body,
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
