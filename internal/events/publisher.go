// Package events publishes booking lifecycle events to Kafka for downstream
// consumers (analytics, CRM sync). Publishing is best effort and never fails
// the booking flow.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/vic-it/epm-booking/internal/model"
	"github.com/vic-it/epm-booking/libs/kafkax"
)

const TypeBookingCreated = "booking.created.v1"

type Publisher struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewPublisher builds a publisher for the given broker list and topic. With
// no brokers configured the publisher is disabled and every publish is a
// no-op.
func NewPublisher(brokers, topic string, logger *slog.Logger) *Publisher {
	list := kafkax.SplitBrokers(brokers)
	if len(list) == 0 || topic == "" {
		return &Publisher{logger: logger}
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(list...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		},
		logger: logger,
	}
}

func (p *Publisher) Enabled() bool {
	return p.writer != nil
}

// BookingCreated publishes the committed booking. Failures are logged only;
// the event stream is not the source of truth. A detached timeout context
// keeps a dropped client connection from suppressing the publish.
func (p *Publisher) BookingCreated(ctx context.Context, b *model.Booking) {
	if p.writer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	payload, err := json.Marshal(bookingCreatedPayload(b))
	if err != nil {
		p.logger.Error("failed to build booking event payload", "err", err)
		return
	}

	headers := []kafka.Header{
		{Key: "event_id", Value: []byte(uuid.NewString())},
		{Key: "event_type", Value: []byte(TypeBookingCreated)},
	}
	headers = kafkax.InjectTraceHeaders(ctx, headers)

	msg := kafka.Message{
		Key:     []byte(b.ID),
		Value:   payload,
		Headers: headers,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("booking event publish failed", "booking_id", b.ID, "err", err)
	}
}

func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

func bookingCreatedPayload(b *model.Booking) map[string]any {
	return map[string]any{
		"booking_id":     b.ID,
		"service":        b.Service,
		"location":       b.Location,
		"date":           b.Date,
		"time":           b.Time,
		"quantity":       b.Quantity,
		"payment_type":   b.PaymentType,
		"service_fee":    b.ServiceFee,
		"early_late_fee": b.EarlyLateFee,
		"total":          b.Total,
		"created_at":     b.CreatedAt.UTC().Format(time.RFC3339),
	}
}
