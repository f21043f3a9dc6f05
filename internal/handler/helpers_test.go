package handler

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestParseDateRange(t *testing.T) {
	r := httptest.NewRequest("GET", "/v1/reports/summary?start=2025-01-01&end=2025-01-31", nil)

	start, end, err := parseDateRange(r)
	if err != nil {
		t.Fatalf("expected parse, got %v", err)
	}
	if start == nil || end == nil {
		t.Fatal("expected both bounds set")
	}

	wantStart := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if !start.Equal(wantStart) {
		t.Errorf("expected start %s, got %s", wantStart, start)
	}

	// A date-only end is widened to the end of that day.
	if !end.After(time.Date(2025, 1, 31, 23, 59, 59, 0, time.UTC)) {
		t.Errorf("expected end widened to end of day, got %s", end)
	}
	if !end.Before(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("expected end within january, got %s", end)
	}
}

func TestParseDateRange_RFC3339(t *testing.T) {
	r := httptest.NewRequest("GET", "/v1/reports/summary?end=2025-06-15T10:30:00Z", nil)

	start, end, err := parseDateRange(r)
	if err != nil {
		t.Fatalf("expected parse, got %v", err)
	}
	if start != nil {
		t.Error("expected absent start to stay unbounded")
	}
	if end == nil || !end.Equal(time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)) {
		t.Errorf("expected exact RFC 3339 end, got %v", end)
	}
}

func TestParseDateRange_Unbounded(t *testing.T) {
	r := httptest.NewRequest("GET", "/v1/reports/summary", nil)

	start, end, err := parseDateRange(r)
	if err != nil {
		t.Fatalf("expected parse, got %v", err)
	}
	if start != nil || end != nil {
		t.Error("expected both bounds unbounded")
	}
}

func TestParseDateRange_Invalid(t *testing.T) {
	r := httptest.NewRequest("GET", "/v1/reports/summary?start=yesterday", nil)

	if _, _, err := parseDateRange(r); err == nil {
		t.Fatal("expected error for invalid date")
	}
}
