package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"sort"
	"strings"
)

// SMTPSender renders messages as plain text and delivers them via
// unauthenticated SMTP (Mailpit-compatible). The fallback transport for
// self-hosted deployments without a template API account.
type SMTPSender struct {
	addr string
	from string
}

func NewSMTPSender(host, port, from string) *SMTPSender {
	host = strings.TrimSpace(host)
	port = strings.TrimSpace(port)
	from = strings.TrimSpace(from)
	if from == "" {
		from = "no-reply@epm-booking.local"
	}
	return &SMTPSender{
		addr: fmt.Sprintf("%s:%s", host, port),
		from: from,
	}
}

func (s *SMTPSender) Send(_ context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("message %s has no recipient", msg.TemplateID)
	}
	raw := buildMessage(s.from, msg.To, subjectFor(msg), renderBody(msg.Payload))
	return smtp.SendMail(s.addr, nil, s.from, []string{msg.To}, []byte(raw))
}

func subjectFor(msg Message) string {
	return fmt.Sprintf("Booking request %s %s (%s)",
		msg.Payload["date"], msg.Payload["time"], msg.Payload["service"])
}

// renderBody lists the template parameters as key: value lines in stable
// order.
func renderBody(payload map[string]string) string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(payload[k])
		b.WriteString("\r\n")
	}
	return b.String()
}

func buildMessage(from, to, subject, body string) string {
	// Minimal RFC 5322 message; enough for Mailpit and most SMTP relays.
	return fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		from,
		to,
		subject,
		body,
	)
}
