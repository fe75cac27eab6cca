// Package notify dispatches the booking confirmation emails: one to the
// customer, one to the operator. Sends are best effort and never fail a
// committed booking.
package notify

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/vic-it/epm-booking/internal/model"
)

// Message is one templated email: a template id plus a flat key/value payload.
// To is used by transports that address recipients themselves (SMTP); the
// template-API transport resolves recipients inside the template.
type Message struct {
	TemplateID string
	To         string
	Payload    map[string]string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type Service struct {
	sender           Sender
	logger           *slog.Logger
	customerTemplate string
	operatorTemplate string
	operatorEmail    string
}

func NewService(sender Sender, logger *slog.Logger, customerTemplate, operatorTemplate, operatorEmail string) *Service {
	return &Service{
		sender:           sender,
		logger:           logger,
		customerTemplate: customerTemplate,
		operatorTemplate: operatorTemplate,
		operatorEmail:    operatorEmail,
	}
}

// BookingConfirmed sends the customer and operator messages for a committed
// booking, sequentially, both always attempted. Failures are logged and
// swallowed: the persisted record is the source of truth, not the email. The
// send runs on a detached timeout context so a dropped client connection
// cannot suppress it.
func (s *Service) BookingConfirmed(ctx context.Context, b *model.Booking) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	payload := templatePayload(b)
	messages := []Message{
		{TemplateID: s.customerTemplate, To: b.Email, Payload: payload},
		{TemplateID: s.operatorTemplate, To: s.operatorEmail, Payload: payload},
	}
	for _, msg := range messages {
		if err := s.sender.Send(ctx, msg); err != nil {
			s.logger.Error("notification send failed",
				"template", msg.TemplateID,
				"booking_id", b.ID,
				"err", err,
			)
		}
	}
}

func templatePayload(b *model.Booking) map[string]string {
	return map[string]string{
		"names":        b.Names(),
		"email":        b.Email,
		"mobile":       b.Mobile,
		"service":      b.Service,
		"location":     b.Location,
		"date":         b.Date,
		"time":         b.Time,
		"earlyLateFee": strconv.Itoa(b.EarlyLateFee),
		"total":        strconv.Itoa(b.Total),
		"paymentType":  b.PaymentType,
		"bookingId":    b.ID,
	}
}
