package events

import (
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SummaryPending is the sentinel the voice platform sends while its post-call
// analysis is still running. Analysis can lag call termination by a few
// seconds, so a "completed" event may still carry this value.
const SummaryPending = "not yet available"

// NA marks a field that could not be derived from the event or transcript.
const NA = "NA"

// finishedStatuses are the call_status values that mean the call is over and
// eligible for logging. Matched case-insensitively.
var finishedStatuses = map[string]bool{
	"completed": true,
	"ended":     true,
	"finished":  true,
}

// CallEvent is one end-of-call delivery from the voice platform. The same
// call may be delivered more than once (in-progress, then completed, then
// redeliveries) — the gate makes processing idempotent.
type CallEvent struct {
	EventID       string            `json:"event_id,omitempty"`
	CallID        string            `json:"call_id"`
	CallStatus    string            `json:"call_status"`
	CallStartTime string            `json:"call_start_time,omitempty"`
	PhoneNumber   string            `json:"phone_number,omitempty"`
	AgentName     string            `json:"agent_name,omitempty"`
	Transcript    string            `json:"transcript,omitempty"`
	CallAnalysis  CallAnalysis      `json:"call_analysis"`
	Variables     map[string]string `json:"variables,omitempty"`
	ReceivedAt    time.Time         `json:"received_at,omitempty"`
}

type CallAnalysis struct {
	CallSummary string `json:"call_summary,omitempty"`
}

// WebhookPayload is the POST /webhook body: the platform wraps the event in
// a "call" envelope.
type WebhookPayload struct {
	Call CallEvent `json:"call"`
}

// Normalize fills in missing bookkeeping fields with sensible defaults.
// It never drops an event — always returns a usable CallEvent.
func Normalize(raw []byte) (CallEvent, error) {
	var p WebhookPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return CallEvent{}, err
	}
	e := p.Call

	if e.EventID == "" {
		e.EventID = uuid.New().String()
	}

	if e.ReceivedAt.IsZero() {
		e.ReceivedAt = time.Now().UTC()
	}

	if e.CallStatus == "" {
		slog.Warn("event missing call_status", "event_id", e.EventID, "call_id", e.CallID)
		e.CallStatus = NA
	}

	return e, nil
}

// Finished reports whether the event's status means the call is over.
func (e *CallEvent) Finished() bool {
	return finishedStatuses[strings.ToLower(strings.TrimSpace(e.CallStatus))]
}

// SummaryReady reports whether the platform's post-call summary has been
// populated. A finished call with a pending summary should not be logged yet.
func (e *CallEvent) SummaryReady() bool {
	s := strings.ToLower(strings.TrimSpace(e.CallAnalysis.CallSummary))
	return s != SummaryPending
}

// Variable returns a caller-supplied structured variable, or "" if absent.
// Caller variables take precedence over transcript extraction.
func (e *CallEvent) Variable(key string) string {
	if e.Variables == nil {
		return ""
	}
	return strings.TrimSpace(e.Variables[key])
}

// LogRecord is one row of the call log. Column order is fixed by Row and
// must match the sheet schema exactly.
type LogRecord struct {
	LoggedAt     time.Time `json:"logged_at"`
	CallID       string    `json:"call_id"`
	PhoneNumber  string    `json:"phone_number"`
	CustomerName string    `json:"customer_name"`
	RoomName     string    `json:"room_name"`
	CheckInDate  string    `json:"check_in_date"`
	CheckOutDate string    `json:"check_out_date"`
	GuestCount   string    `json:"guest_count"`
	CallOutcome  string    `json:"call_outcome"`
	CallSummary  string    `json:"call_summary"`
	Transcript   string    `json:"transcript,omitempty"`
}

// Row returns the record as sheet columns: timestamp, call_id, phone_number,
// customer_name, room_name, check_in_date, check_out_date, guest_count,
// call_outcome, call_summary and, when includeTranscript is set, the raw
// transcript as a trailing column.
func (r *LogRecord) Row(includeTranscript bool) []string {
	row := []string{
		r.LoggedAt.Format("2006-01-02 15:04:05"),
		r.CallID,
		r.PhoneNumber,
		r.CustomerName,
		r.RoomName,
		r.CheckInDate,
		r.CheckOutDate,
		r.GuestCount,
		r.CallOutcome,
		r.CallSummary,
	}
	if includeTranscript {
		row = append(row, r.Transcript)
	}
	return row
}
