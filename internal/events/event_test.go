package events

import (
	"strings"
	"testing"
	"time"
)

func TestNormalize_FillsDefaults(t *testing.T) {
	raw := []byte(`{"call":{"call_id":"call-1","call_status":"completed"}}`)

	e, err := Normalize(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.CallID != "call-1" {
		t.Errorf("expected call-1, got %q", e.CallID)
	}
	if e.EventID == "" {
		t.Error("expected generated event_id")
	}
	if e.ReceivedAt.IsZero() {
		t.Error("expected received_at to be filled")
	}
}

func TestNormalize_MissingStatus(t *testing.T) {
	e, err := Normalize([]byte(`{"call":{"call_id":"call-1"}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.CallStatus != NA {
		t.Errorf("expected NA status, got %q", e.CallStatus)
	}
}

func TestNormalize_InvalidJSON(t *testing.T) {
	if _, err := Normalize([]byte(`{not json`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestFinished(t *testing.T) {
	cases := map[string]bool{
		"completed":   true,
		"ended":       true,
		"finished":    true,
		"COMPLETED":   true,
		" Ended ":     true,
		"in-progress": false,
		"ringing":     false,
		"":            false,
		"NA":          false,
	}
	for status, want := range cases {
		e := CallEvent{CallStatus: status}
		if got := e.Finished(); got != want {
			t.Errorf("Finished(%q) = %v, want %v", status, got, want)
		}
	}
}

func TestSummaryReady(t *testing.T) {
	pending := CallEvent{CallAnalysis: CallAnalysis{CallSummary: "Not Yet Available"}}
	if pending.SummaryReady() {
		t.Error("pending sentinel should not be ready")
	}

	ready := CallEvent{CallAnalysis: CallAnalysis{CallSummary: "Guest booked a room."}}
	if !ready.SummaryReady() {
		t.Error("populated summary should be ready")
	}

	empty := CallEvent{}
	if !empty.SummaryReady() {
		t.Error("empty summary is not the pending sentinel")
	}
}

func TestLogRecord_RowColumnOrder(t *testing.T) {
	rec := LogRecord{
		LoggedAt:     time.Date(2025, time.March, 10, 9, 30, 0, 0, time.UTC),
		CallID:       "call-1",
		PhoneNumber:  "9876543210",
		CustomerName: "John Smith",
		RoomName:     "Deluxe Room",
		CheckInDate:  "2025-03-05",
		CheckOutDate: "2025-03-09",
		GuestCount:   "3",
		CallOutcome:  "completed",
		CallSummary:  "Booked.",
		Transcript:   "hello",
	}

	row := rec.Row(false)
	want := []string{
		"2025-03-10 09:30:00", "call-1", "9876543210", "John Smith", "Deluxe Room",
		"2025-03-05", "2025-03-09", "3", "completed", "Booked.",
	}
	if len(row) != len(want) {
		t.Fatalf("expected %d columns, got %d", len(want), len(row))
	}
	for i := range want {
		if row[i] != want[i] {
			t.Errorf("column %d: expected %q, got %q", i, want[i], row[i])
		}
	}

	withTranscript := rec.Row(true)
	if len(withTranscript) != len(want)+1 {
		t.Fatalf("expected trailing transcript column, got %d columns", len(withTranscript))
	}
	if withTranscript[len(withTranscript)-1] != "hello" {
		t.Errorf("expected transcript as last column, got %q", withTranscript[len(withTranscript)-1])
	}
}

func TestVariable(t *testing.T) {
	e := CallEvent{Variables: map[string]string{"room_name": " Family Suite "}}
	if got := e.Variable("room_name"); got != "Family Suite" {
		t.Errorf("expected trimmed variable, got %q", got)
	}
	if got := e.Variable("missing"); got != "" {
		t.Errorf("expected empty for missing key, got %q", got)
	}

	var none CallEvent
	if got := none.Variable("room_name"); got != "" {
		t.Errorf("expected empty for nil map, got %q", got)
	}
}

func TestSummarySentinelSpelling(t *testing.T) {
	if !strings.EqualFold(SummaryPending, "not yet available") {
		t.Errorf("sentinel drifted: %q", SummaryPending)
	}
}
