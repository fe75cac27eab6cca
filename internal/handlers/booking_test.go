package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vic-it/epm-booking/internal/availability"
	"github.com/vic-it/epm-booking/internal/model"
)

// fakeRepo backs both the availability store and the booking store so the
// tests can assert call ordering across the whole submission sequence.
type fakeRepo struct {
	times     map[string][]string
	queryErr  error
	createErr error
	created   []*model.Booking
	calls     *[]string
}

func (f *fakeRepo) record(name string) {
	if f.calls != nil {
		*f.calls = append(*f.calls, name)
	}
}

func (f *fakeRepo) TimesOnDate(_ context.Context, date string) ([]string, error) {
	f.record("times")
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.times[date], nil
}

func (f *fakeRepo) AnyOnDateTimes(_ context.Context, date string, times []string) (bool, error) {
	f.record("any")
	if f.queryErr != nil {
		return false, f.queryErr
	}
	for _, existing := range f.times[date] {
		for _, t := range times {
			if availability.TruncateToSlot(existing) == t {
				return true, nil
			}
		}
	}
	return false, nil
}

func (f *fakeRepo) Create(_ context.Context, b *model.Booking) (string, time.Time, error) {
	f.record("create")
	if f.createErr != nil {
		return "", time.Time{}, f.createErr
	}
	f.created = append(f.created, b)
	return "b-1", time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC), nil
}

type recordingNotifier struct {
	bookings []*model.Booking
	calls    *[]string
}

func (n *recordingNotifier) BookingConfirmed(_ context.Context, b *model.Booking) {
	if n.calls != nil {
		*n.calls = append(*n.calls, "notify")
	}
	n.bookings = append(n.bookings, b)
}

type recordingPublisher struct {
	bookings []*model.Booking
	calls    *[]string
}

func (p *recordingPublisher) BookingCreated(_ context.Context, b *model.Booking) {
	if p.calls != nil {
		*p.calls = append(*p.calls, "publish")
	}
	p.bookings = append(p.bookings, b)
}

type fixture struct {
	handler   *BookingHandler
	repo      *fakeRepo
	notifier  *recordingNotifier
	publisher *recordingPublisher
	calls     []string
}

func newFixture(repo *fakeRepo) *fixture {
	f := &fixture{repo: repo}
	repo.calls = &f.calls
	f.notifier = &recordingNotifier{calls: &f.calls}
	f.publisher = &recordingPublisher{calls: &f.calls}
	logger := slog.New(slog.DiscardHandler)
	resolver := availability.NewResolver(repo, logger)
	f.handler = NewBookingHandler(repo, resolver, f.notifier, f.publisher, logger)
	return f
}

func validRequest() map[string]any {
	return map[string]any{
		"first_name":   "Ana",
		"last_name":    "Costa",
		"email":        "ana@example.com",
		"mobile":       "+353 87 123 4567",
		"service":      "Soft Glam",
		"location":     "Dublin 2",
		"date":         "2026-09-12",
		"time":         "10:00",
		"quantity":     1,
		"payment_type": "Deposit",
	}
}

func postBooking(t *testing.T, h *BookingHandler, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	h.Create(rec, req)
	return rec
}

func TestCreateBooking(t *testing.T) {
	f := newFixture(&fakeRepo{times: map[string][]string{}})

	rec := postBooking(t, f.handler, validRequest())
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp createBookingResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.BookingID != "b-1" {
		t.Fatalf("booking_id = %q", resp.BookingID)
	}
	if resp.ServiceFee != 50 || resp.EarlyLateFee != 0 || resp.Total != 50 {
		t.Fatalf("unexpected fees: %+v", resp)
	}

	if len(f.repo.created) != 1 {
		t.Fatalf("expected 1 insert, got %d", len(f.repo.created))
	}
	b := f.repo.created[0]
	if b.Total != 50 || b.Quantity != 1 {
		t.Fatalf("stored booking = %+v", b)
	}

	// Insert commits before any notification or event goes out.
	want := []string{"any", "create", "notify", "publish"}
	if fmt.Sprint(f.calls) != fmt.Sprint(want) {
		t.Fatalf("call order = %v, want %v", f.calls, want)
	}
	if len(f.notifier.bookings) != 1 || f.notifier.bookings[0].ID != "b-1" {
		t.Fatalf("notifier bookings = %+v", f.notifier.bookings)
	}
	if len(f.publisher.bookings) != 1 {
		t.Fatalf("publisher bookings = %+v", f.publisher.bookings)
	}
}

func TestCreateDerivesFeesServerSide(t *testing.T) {
	f := newFixture(&fakeRepo{})

	body := validRequest()
	body["service"] = "Full Glam"
	body["time"] = "17:30"
	// Client-supplied totals are ignored.
	body["total"] = 1
	body["service_fee"] = 1

	rec := postBooking(t, f.handler, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	b := f.repo.created[0]
	if b.ServiceFee != 60 || b.EarlyLateFee != 15 || b.Total != 75 {
		t.Fatalf("fees = %d/%d/%d, want 60/15/75", b.ServiceFee, b.EarlyLateFee, b.Total)
	}
}

func TestCreateHoneypot(t *testing.T) {
	f := newFixture(&fakeRepo{})

	body := validRequest()
	body["honeypot"] = "http://spam.example"

	rec := postBooking(t, f.handler, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["status"] != "received" {
		t.Fatalf("response = %v", resp)
	}
	// No store, notification, or event traffic for dropped spam.
	if len(f.calls) != 0 {
		t.Fatalf("calls = %v, want none", f.calls)
	}
}

func TestCreateMissingDateTime(t *testing.T) {
	for _, missing := range []string{"date", "time"} {
		f := newFixture(&fakeRepo{})
		body := validRequest()
		delete(body, missing)

		rec := postBooking(t, f.handler, body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("missing %s: status = %d", missing, rec.Code)
		}
		if len(f.calls) != 0 {
			t.Fatalf("missing %s: calls = %v, want none", missing, f.calls)
		}
	}
}

func TestCreateValidation(t *testing.T) {
	cases := []struct {
		name  string
		field string
		value any
	}{
		{"empty first name", "first_name", ""},
		{"bad email", "email", "not-an-email"},
		{"bad mobile", "mobile", "call-me"},
		{"unknown service", "service", "Mega Glam"},
		{"empty location", "location", ""},
		{"bad date", "date", "12/09/2026"},
		{"off-grid time", "time", "10:15"},
		{"past closing", "time", "20:00"},
		{"quantity too high", "quantity", 7},
		{"bad payment type", "payment_type", "IOU"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(&fakeRepo{})
			body := validRequest()
			body[tc.field] = tc.value

			rec := postBooking(t, f.handler, body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
			}
			if len(f.repo.created) != 0 {
				t.Fatal("invalid submission must not reach the store")
			}
		})
	}
}

func TestCreateQuantityDefaultsToOne(t *testing.T) {
	f := newFixture(&fakeRepo{})
	body := validRequest()
	delete(body, "quantity")

	rec := postBooking(t, f.handler, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if f.repo.created[0].Quantity != 1 {
		t.Fatalf("quantity = %d, want 1", f.repo.created[0].Quantity)
	}
}

func TestCreateConflict(t *testing.T) {
	// An existing 10:00 booking occupies 10:00 through 11:30.
	f := newFixture(&fakeRepo{times: map[string][]string{
		"2026-09-12": {"10:00:00"},
	}})

	for _, slot := range []string{"10:00", "10:30", "11:30", "09:00"} {
		body := validRequest()
		body["time"] = slot
		rec := postBooking(t, f.handler, body)
		if rec.Code != http.StatusConflict {
			t.Fatalf("time %s: status = %d, want 409", slot, rec.Code)
		}
	}
	if len(f.repo.created) != 0 {
		t.Fatal("conflicting submissions must not insert")
	}
	if len(f.notifier.bookings) != 0 {
		t.Fatal("conflicting submissions must not notify")
	}

	// Outside the occupied window the same date books fine.
	body := validRequest()
	body["time"] = "12:00"
	rec := postBooking(t, f.handler, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("time 12:00: status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestCreateConflictCheckError(t *testing.T) {
	f := newFixture(&fakeRepo{queryErr: errors.New("connection refused")})

	rec := postBooking(t, f.handler, validRequest())
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if len(f.repo.created) != 0 {
		t.Fatal("failed conflict check must not insert")
	}
}

func TestCreateInsertErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"policy denied", &pgconn.PgError{Code: "42501"}, http.StatusForbidden},
		{"unique violation", &pgconn.PgError{Code: "23505"}, http.StatusConflict},
		{"other failure", errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(&fakeRepo{createErr: tc.err})

			rec := postBooking(t, f.handler, validRequest())
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
			// A failed insert sends nothing downstream.
			if len(f.notifier.bookings) != 0 || len(f.publisher.bookings) != 0 {
				t.Fatal("failed insert must not notify or publish")
			}
		})
	}
}

func TestSlots(t *testing.T) {
	f := newFixture(&fakeRepo{times: map[string][]string{
		"2026-09-12": {"10:00:00"},
	}})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/slots?date=2026-09-12", nil)
	rec := httptest.NewRecorder()
	f.handler.Slots(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var items []slotItem
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(items) != 31 {
		t.Fatalf("expected 31 slots, got %d", len(items))
	}

	available := make(map[string]bool, len(items))
	for _, it := range items {
		available[it.Time] = it.Available
	}
	for _, s := range []string{"10:00", "10:30", "11:00", "11:30"} {
		if available[s] {
			t.Fatalf("slot %s should be blocked by the existing booking", s)
		}
	}
	// The last bookable start is 19:30; later starts would run past closing.
	for _, s := range []string{"20:00", "20:30", "21:00"} {
		if available[s] {
			t.Fatalf("slot %s should be unavailable past the closing boundary", s)
		}
	}
	for _, s := range []string{"06:00", "09:30", "12:00", "19:30"} {
		if !available[s] {
			t.Fatalf("slot %s should be available", s)
		}
	}
}

func TestSlotsFailOpen(t *testing.T) {
	f := newFixture(&fakeRepo{queryErr: errors.New("connection refused")})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/slots?date=2026-09-12", nil)
	rec := httptest.NewRecorder()
	f.handler.Slots(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var items []slotItem
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	// Display fails open: every in-hours slot shows available.
	for _, it := range items {
		if availability.WithinHours(it.Time) && !it.Available {
			t.Fatalf("slot %s should fail open as available", it.Time)
		}
	}
}

func TestSlotsBadDate(t *testing.T) {
	f := newFixture(&fakeRepo{})

	for _, url := range []string{"/api/v1/slots", "/api/v1/slots?date=tomorrow"} {
		req := httptest.NewRequest(http.MethodGet, url, nil)
		rec := httptest.NewRecorder()
		f.handler.Slots(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", url, rec.Code)
		}
	}
}

func TestQuote(t *testing.T) {
	f := newFixture(&fakeRepo{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/quote?service=Full+Glam&time=17:30", nil)
	rec := httptest.NewRecorder()
	f.handler.Quote(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var q struct {
		ServiceFee   int `json:"service_fee"`
		EarlyLateFee int `json:"early_late_fee"`
		Total        int `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &q); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if q.ServiceFee != 60 || q.EarlyLateFee != 15 || q.Total != 75 {
		t.Fatalf("quote = %+v, want 60/15/75", q)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	f := newFixture(&fakeRepo{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil)
	rec := httptest.NewRecorder()
	f.handler.Create(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}
