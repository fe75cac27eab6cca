package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/vic-it/epm-booking/internal/availability"
	"github.com/vic-it/epm-booking/internal/model"
	"github.com/vic-it/epm-booking/internal/pricing"
	"github.com/vic-it/epm-booking/internal/storage"
)

type BookingStore interface {
	Create(ctx context.Context, b *model.Booking) (string, time.Time, error)
}

type Notifier interface {
	BookingConfirmed(ctx context.Context, b *model.Booking)
}

type EventPublisher interface {
	BookingCreated(ctx context.Context, b *model.Booking)
}

type BookingHandler struct {
	store    BookingStore
	resolver *availability.Resolver
	notifier Notifier
	events   EventPublisher
	logger   *slog.Logger
	slots    map[string]struct{}
}

func NewBookingHandler(store BookingStore, resolver *availability.Resolver, notifier Notifier, events EventPublisher, logger *slog.Logger) *BookingHandler {
	slots := make(map[string]struct{})
	for _, s := range availability.Slots() {
		slots[s] = struct{}{}
	}
	return &BookingHandler{
		store:    store,
		resolver: resolver,
		notifier: notifier,
		events:   events,
		logger:   logger,
		slots:    slots,
	}
}

type createBookingRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Mobile      string `json:"mobile"`
	Service     string `json:"service"`
	Location    string `json:"location"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Quantity    int    `json:"quantity"`
	PaymentType string `json:"payment_type"`
	Honeypot    string `json:"honeypot"`
}

type createBookingResponse struct {
	BookingID    string `json:"booking_id"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	Service      string `json:"service"`
	ServiceFee   int    `json:"service_fee"`
	EarlyLateFee int    `json:"early_late_fee"`
	Total        int    `json:"total"`
	PaymentType  string `json:"payment_type"`
	CreatedAt    string `json:"created_at"`
}

type slotItem struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

var (
	mobilePattern = regexp.MustCompile(`^\+?[0-9 ]+$`)
	emailPattern  = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// Create runs the strictly ordered submission sequence: honeypot drop, field
// validation, live conflict check, insert, best-effort notifications and
// event publish.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.trim()

	// Bots fill every field; real clients submit the hidden field empty.
	// Dropped before any store or notification traffic, with a response
	// indistinguishable from a success acknowledgment.
	if req.Honeypot != "" {
		h.logger.Warn("honeypot field set; dropping submission")
		writeJSON(w, http.StatusOK, map[string]string{"status": "received"})
		return
	}

	if req.Date == "" || req.Time == "" {
		http.Error(w, "date and time are required", http.StatusBadRequest)
		return
	}
	if msg := h.validate(&req); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	// Authoritative gate: re-check against live data, not the slot listing
	// the client saw. Two clients can still race past this; the store's
	// uniqueness constraint backstops that below.
	conflict, err := h.resolver.CheckConflict(ctx, req.Date, req.Time)
	if err != nil {
		h.logger.Error("conflict check failed", "date", req.Date, "err", err)
		http.Error(w, "availability check failed", http.StatusInternalServerError)
		return
	}
	if conflict {
		http.Error(w, "time slot already booked", http.StatusConflict)
		return
	}

	quote := pricing.QuoteFor(req.Service, req.Time)
	b := &model.Booking{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Mobile:       req.Mobile,
		Service:      req.Service,
		Location:     req.Location,
		Date:         req.Date,
		Time:         req.Time,
		Quantity:     req.Quantity,
		PaymentType:  req.PaymentType,
		ServiceFee:   quote.ServiceFee,
		EarlyLateFee: quote.EarlyLateFee,
		Total:        quote.Total,
	}

	id, createdAt, err := h.store.Create(ctx, b)
	if err != nil {
		switch {
		case storage.IsPolicyDenied(err):
			http.Error(w, "permission denied", http.StatusForbidden)
		case storage.IsUniqueViolation(err):
			http.Error(w, "time slot already booked", http.StatusConflict)
		default:
			h.logger.Error("booking insert failed", "date", req.Date, "err", err)
			http.Error(w, "failed to create booking", http.StatusInternalServerError)
		}
		return
	}
	b.ID = id
	b.CreatedAt = createdAt

	// The booking is committed; everything below is best effort and must not
	// affect the response.
	h.notifier.BookingConfirmed(ctx, b)
	h.events.BookingCreated(ctx, b)

	writeJSON(w, http.StatusCreated, createBookingResponse{
		BookingID:    b.ID,
		Date:         b.Date,
		Time:         b.Time,
		Service:      b.Service,
		ServiceFee:   b.ServiceFee,
		EarlyLateFee: b.EarlyLateFee,
		Total:        b.Total,
		PaymentType:  b.PaymentType,
		CreatedAt:    b.CreatedAt.UTC().Format(time.RFC3339),
	})
}

// Slots lists all generated start times for a date with availability derived
// from the blocked set and the closing-boundary rule.
func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		http.Error(w, "date is required", http.StatusBadRequest)
		return
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	blocked := h.resolver.BlockedSlots(r.Context(), date)

	all := availability.Slots()
	items := make([]slotItem, 0, len(all))
	for _, s := range all {
		_, isBlocked := blocked[s]
		items = append(items, slotItem{
			Time:      s,
			Available: !isBlocked && availability.WithinHours(s),
		})
	}
	writeJSON(w, http.StatusOK, items)
}

// Quote derives the fee breakdown for the current selection. Pure
// recomputation; unknown selections price at zero exactly like the engine.
func (h *BookingHandler) Quote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, pricing.QuoteFor(
		strings.TrimSpace(q.Get("service")),
		strings.TrimSpace(q.Get("time")),
	))
}

func (req *createBookingRequest) trim() {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.TrimSpace(req.Email)
	req.Mobile = strings.TrimSpace(req.Mobile)
	req.Service = strings.TrimSpace(req.Service)
	req.Location = strings.TrimSpace(req.Location)
	req.Date = strings.TrimSpace(req.Date)
	req.Time = strings.TrimSpace(req.Time)
	req.PaymentType = strings.TrimSpace(req.PaymentType)
	req.Honeypot = strings.TrimSpace(req.Honeypot)
}

func (h *BookingHandler) validate(req *createBookingRequest) string {
	if req.FirstName == "" {
		return "first_name is required"
	}
	if req.Email == "" {
		return "email is required"
	}
	if !emailPattern.MatchString(req.Email) {
		return "email is not valid"
	}
	if req.Mobile == "" {
		return "mobile is required"
	}
	if !mobilePattern.MatchString(req.Mobile) {
		return "mobile may contain digits, spaces, and an optional leading +"
	}
	if req.Service != model.ServiceSoftGlam && req.Service != model.ServiceFullGlam {
		return "unknown service selection"
	}
	if req.Location == "" {
		return "location is required"
	}
	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		return "date must be YYYY-MM-DD"
	}
	if _, ok := h.slots[req.Time]; !ok {
		return "time is not a bookable slot"
	}
	if !availability.WithinHours(req.Time) {
		return "appointment would run past closing"
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 1 || req.Quantity > 6 {
		return "quantity must be between 1 and 6"
	}
	if req.PaymentType != model.PaymentDeposit && req.PaymentType != model.PaymentFull {
		return "payment_type must be Deposit or Full"
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
