package ingester

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/PiyushTiwari01/Formi-Ai-Voice-Agent/internal/extract"
	"github.com/PiyushTiwari01/Formi-Ai-Voice-Agent/internal/gate"
	"github.com/PiyushTiwari01/Formi-Ai-Voice-Agent/internal/testutil"
)

const completedPayload = `{"call":{"call_id":"nats-call-1","call_status":"completed","transcript":"my name is jane doe","call_analysis":{"call_summary":"Asked about rates."}}}`

func newTestIngester(reg *testutil.MockRegistry, sink *testutil.MockSink) *Ingester {
	return &Ingester{gate: gate.New(reg, sink, extract.New())}
}

func TestHandleMessage_CompletedCallAcked(t *testing.T) {
	reg := testutil.NewMockRegistry()
	sink := testutil.NewMockSink()
	ing := newTestIngester(reg, sink)

	msg := &fakeMsg{subject: "voice.call.ended", data: []byte(completedPayload)}
	ing.handleMessage(msg)

	if !msg.acked {
		t.Error("expected message acked after processing")
	}
	if msg.naked {
		t.Error("message should not be naked on success")
	}
	if sink.RowCount() != 1 {
		t.Errorf("expected 1 row appended, got %d", sink.RowCount())
	}
}

func TestHandleMessage_DuplicateAckedWithoutAppend(t *testing.T) {
	reg := testutil.NewMockRegistry()
	reg.Seed("nats-call-1")
	sink := testutil.NewMockSink()
	ing := newTestIngester(reg, sink)

	msg := &fakeMsg{subject: "voice.call.ended", data: []byte(completedPayload)}
	ing.handleMessage(msg)

	if !msg.acked {
		t.Error("duplicate delivery should be acked")
	}
	if sink.RowCount() != 0 {
		t.Errorf("expected no append for a logged call, got %d", sink.RowCount())
	}
}

func TestHandleMessage_MalformedAckedAndSkipped(t *testing.T) {
	sink := testutil.NewMockSink()
	ing := newTestIngester(testutil.NewMockRegistry(), sink)

	msg := &fakeMsg{subject: "voice.call.ended", data: []byte(`{broken`)}
	ing.handleMessage(msg)

	if !msg.acked {
		t.Error("malformed message should be acked to stop redelivery")
	}
	if sink.RowCount() != 0 {
		t.Errorf("expected no append, got %d", sink.RowCount())
	}
}

func TestHandleMessage_SinkFailureNaked(t *testing.T) {
	reg := testutil.NewMockRegistry()
	sink := testutil.NewMockSink()
	sink.SetAppendErr(errors.New("sheets returned 503"))
	ing := newTestIngester(reg, sink)

	msg := &fakeMsg{subject: "voice.call.ended", data: []byte(completedPayload)}
	ing.handleMessage(msg)

	if msg.acked {
		t.Error("failed append should not ack")
	}
	if !msg.naked {
		t.Error("expected nak for redelivery")
	}
	if len(reg.Logged) != 0 {
		t.Error("call must stay unlogged so redelivery can succeed")
	}

	// Redelivery after the sink recovers.
	sink.SetAppendErr(nil)
	retry := &fakeMsg{subject: "voice.call.ended", data: []byte(completedPayload)}
	ing.handleMessage(retry)

	if !retry.acked {
		t.Error("expected ack on redelivery")
	}
	if sink.RowCount() != 1 {
		t.Errorf("expected exactly 1 row after redelivery, got %d", sink.RowCount())
	}
}

// fakeMsg implements jetstream.Msg for unit testing without a real NATS
// connection.
type fakeMsg struct {
	subject string
	data    []byte
	acked   bool
	naked   bool
}

func (m *fakeMsg) Data() []byte                       { return m.data }
func (m *fakeMsg) Subject() string                    { return m.subject }
func (m *fakeMsg) Ack() error                         { m.acked = true; return nil }
func (m *fakeMsg) Nak() error                         { m.naked = true; return nil }
func (m *fakeMsg) NakWithDelay(d time.Duration) error { m.naked = true; return nil }
func (m *fakeMsg) InProgress() error                  { return nil }
func (m *fakeMsg) Term() error                        { return nil }
func (m *fakeMsg) TermWithReason(reason string) error { return nil }
func (m *fakeMsg) Metadata() (*jetstream.MsgMetadata, error) {
	return nil, nil
}
func (m *fakeMsg) Headers() nats.Header                { return nil }
func (m *fakeMsg) Reply() string                       { return "" }
func (m *fakeMsg) DoubleAck(ctx context.Context) error { return nil }
