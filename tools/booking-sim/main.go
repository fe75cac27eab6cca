// booking-sim posts a sample booking to a running booking-service, for local
// smoke testing. With -spam it fills the honeypot field to exercise the spam
// drop path.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

func main() {
	var (
		baseURL = flag.String("base-url", getenv("BASE_URL", "http://localhost:8080"), "booking service base url")
		date    = flag.String("date", time.Now().AddDate(0, 0, 7).Format("2006-01-02"), "booking date (YYYY-MM-DD)")
		slot    = flag.String("time", "10:00", "booking start time (HH:MM)")
		service = flag.String("service", "Soft Glam", "service selection")
		email   = flag.String("email", "smoke-test@example.com", "customer email")
		spam    = flag.Bool("spam", false, "fill the honeypot field")
	)
	flag.Parse()

	body := map[string]any{
		"first_name":   "Smoke",
		"last_name":    "Test",
		"email":        *email,
		"mobile":       "+353 87 000 0000",
		"service":      *service,
		"location":     "Dublin 2",
		"date":         *date,
		"time":         *slot,
		"quantity":     1,
		"payment_type": "Deposit",
	}
	if *spam {
		body["honeypot"] = "http://spam.example"
	}

	payload, err := json.Marshal(body)
	if err != nil {
		fatal(err.Error())
	}

	url := strings.TrimRight(*baseURL, "/") + "/api/v1/bookings"
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		fatal(err.Error())
	}
	defer resp.Body.Close()

	out, _ := io.ReadAll(resp.Body)
	fmt.Printf("%s %s\n%s\n", resp.Status, url, strings.TrimSpace(string(out)))
	if resp.StatusCode >= 400 {
		os.Exit(1)
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, "error:", msg)
	os.Exit(1)
}
