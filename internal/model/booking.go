package model

import "time"

// Service offerings and payment options shown on the booking form.
const (
	ServiceSoftGlam = "Soft Glam"
	ServiceFullGlam = "Full Glam"

	PaymentDeposit = "Deposit"
	PaymentFull    = "Full"
)

// Booking is the persisted appointment record. It is created exactly once per
// successful submission and never updated or deleted by this service.
type Booking struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	Mobile       string
	Service      string
	Location     string
	Date         string // YYYY-MM-DD
	Time         string // HH:MM slot start
	Quantity     int
	PaymentType  string
	ServiceFee   int // whole euros
	EarlyLateFee int
	Total        int
	CreatedAt    time.Time
}

// Names joins first and last name the way the notification templates expect.
func (b *Booking) Names() string {
	if b.LastName == "" {
		return b.FirstName
	}
	return b.FirstName + " " + b.LastName
}
