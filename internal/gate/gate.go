// Package gate decides, for each incoming call event, whether to
// extract-and-log, skip, or reject. It owns the idempotency invariant: a call
// identifier is never logged twice, and never marked logged without a durable
// append.
package gate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/PiyushTiwari01/Formi-Ai-Voice-Agent/internal/events"
	"github.com/PiyushTiwari01/Formi-Ai-Voice-Agent/internal/extract"
	"github.com/PiyushTiwari01/Formi-Ai-Voice-Agent/internal/sheets"
	"github.com/PiyushTiwari01/Formi-Ai-Voice-Agent/internal/store"
)

// Decision is the gate's verdict for one event.
type Decision int

const (
	Processed Decision = iota
	SkipNotFinished
	SkipSummaryPending
	SkipAlreadyLogged
	RejectMissingCallID
)

func (d Decision) String() string {
	switch d {
	case Processed:
		return "processed"
	case SkipNotFinished:
		return "skip_not_finished"
	case SkipSummaryPending:
		return "skip_summary_pending"
	case SkipAlreadyLogged:
		return "skip_already_logged"
	case RejectMissingCallID:
		return "reject_missing_call_id"
	}
	return "unknown"
}

// AlertFunc is called when the sink keeps failing.
type AlertFunc func(ctx context.Context, callID string, err error)

type Gate struct {
	registry  store.Registry
	sink      sheets.Sink
	extractor *extract.Extractor

	mu              sync.Mutex
	consecutiveFail int
	alert           AlertFunc
}

func New(reg store.Registry, sink sheets.Sink, x *extract.Extractor) *Gate {
	return &Gate{
		registry:  reg,
		sink:      sink,
		extractor: x,
	}
}

// SetAlertFunc wires a notifier for repeated sink failures.
func (g *Gate) SetAlertFunc(fn AlertFunc) {
	g.alert = fn
}

// Handle admits one event. Rules apply in order, first match wins:
// missing id rejects; an unfinished call skips; a pending summary skips
// (the platform's analysis may lag call termination, and waiting beats
// logging an incomplete record); a known id skips. Only a fully eligible
// event reaches dedup, so skipped events stay safely retryable upstream.
//
// The check-extract-append-record sequence runs under one process-wide lock:
// two concurrent deliveries of the same id must not both pass the membership
// check before either persists. The sink append completes, or definitively
// fails, before the dedup entry is written; on failure the id stays
// unrecorded and the event remains retryable.
func (g *Gate) Handle(ctx context.Context, e events.CallEvent) (Decision, error) {
	if e.CallID == "" {
		return RejectMissingCallID, nil
	}
	if !e.Finished() {
		slog.Info("skipping call, not completed yet", "call_id", e.CallID, "status", e.CallStatus)
		return SkipNotFinished, nil
	}
	if !e.SummaryReady() {
		slog.Info("skipping call, summary pending", "call_id", e.CallID)
		return SkipSummaryPending, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	logged, err := g.registry.Contains(ctx, e.CallID)
	if err != nil {
		return Processed, fmt.Errorf("dedup check: %w", err)
	}
	if logged {
		slog.Info("skipping call, already logged", "call_id", e.CallID)
		return SkipAlreadyLogged, nil
	}

	rec := g.buildRecord(e)

	if err := g.sink.Append(ctx, rec); err != nil {
		g.handleSinkFailure(ctx, e.CallID, err)
		return Processed, fmt.Errorf("log append: %w", err)
	}
	g.consecutiveFail = 0

	if err := g.registry.Record(ctx, rec); err != nil {
		// The row made it to the sink but the dedup entry did not. Surface
		// the error; a retry will re-append, which is the accepted residual
		// risk of the non-transactional sink.
		return Processed, fmt.Errorf("record call: %w", err)
	}

	slog.Info("call logged", "call_id", e.CallID, "room", rec.RoomName, "outcome", rec.CallOutcome)
	return Processed, nil
}

// buildRecord merges caller-supplied variables over transcript extraction.
// Variables win field-by-field; extraction only fills the holes.
func (g *Gate) buildRecord(e events.CallEvent) events.LogRecord {
	f := g.extractor.Extract(e.Transcript)

	name := f.CustomerName
	if name == events.NA && e.AgentName != "" {
		name = e.AgentName
	}
	phone := e.PhoneNumber
	if phone == "" {
		phone = f.PhoneNumber
	}
	summary := e.CallAnalysis.CallSummary
	if summary == "" {
		summary = events.NA
	}

	return events.LogRecord{
		LoggedAt:     time.Now().UTC(),
		CallID:       e.CallID,
		PhoneNumber:  phone,
		CustomerName: firstOf(e.Variable("customer_name"), name),
		RoomName:     firstOf(e.Variable("room_name"), f.RoomName),
		CheckInDate:  firstOf(e.Variable("check_in_date"), f.CheckInDate),
		CheckOutDate: firstOf(e.Variable("check_out_date"), f.CheckOutDate),
		GuestCount:   firstOf(e.Variable("number_of_guests"), f.GuestCount),
		CallOutcome:  e.CallStatus,
		CallSummary:  summary,
		Transcript:   e.Transcript,
	}
}

func (g *Gate) handleSinkFailure(ctx context.Context, callID string, err error) {
	g.consecutiveFail++
	slog.Error("log sink append failed", "call_id", callID, "error", err, "consecutive", g.consecutiveFail)

	if g.consecutiveFail >= 3 && g.alert != nil {
		g.alert(ctx, callID, err)
	}
}

func firstOf(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return events.NA
}
