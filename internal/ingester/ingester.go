// Package ingester consumes end-of-call events delivered over NATS
// JetStream, for platforms configured to publish to the broker instead of
// (or in addition to) the HTTP webhook. Every message goes through the same
// gate as a webhook POST, so duplicate delivery across both paths is safe.
package ingester

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/PiyushTiwari01/Formi-Ai-Voice-Agent/internal/events"
	"github.com/PiyushTiwari01/Formi-Ai-Voice-Agent/internal/gate"
)

const (
	streamName   = "CALL_EVENTS"
	consumerName = "voice-agent-calls"
)

var streamSubjects = []string{"voice.call.>"}

type Ingester struct {
	nc   *nats.Conn
	js   jetstream.JetStream
	gate *gate.Gate
	subs []jetstream.ConsumeContext
}

func New(natsURL string, g *gate.Gate) (*Ingester, error) {
	nc, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			slog.Info("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	return &Ingester{nc: nc, js: js, gate: g}, nil
}

// Start binds to a durable consumer on the call-events stream and begins
// consuming.
func (ing *Ingester) Start() error {
	ctx := context.Background()

	if err := ing.ensureStream(ctx); err != nil {
		return err
	}

	consumer, err := ing.js.CreateOrUpdateConsumer(ctx, streamName, jetstream.ConsumerConfig{
		Name:          consumerName,
		Durable:       consumerName,
		DeliverPolicy: jetstream.DeliverAllPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    3,
		AckWait:       30 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("create consumer %s: %w", consumerName, err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		ing.handleMessage(msg)
	})
	if err != nil {
		return fmt.Errorf("consume %s: %w", consumerName, err)
	}

	ing.subs = append(ing.subs, cc)
	slog.Info("subscribed to stream", "stream", streamName, "consumer", consumerName)
	return nil
}

func (ing *Ingester) ensureStream(ctx context.Context) error {
	_, err := ing.js.Stream(ctx, streamName)
	if err == nil {
		return nil
	}

	_, err = ing.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:      streamName,
		Subjects:  streamSubjects,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    7 * 24 * time.Hour,
		Storage:   jetstream.FileStorage,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("create stream %s: %w", streamName, err)
	}

	slog.Info("created stream", "name", streamName, "subjects", streamSubjects)
	return nil
}

func (ing *Ingester) handleMessage(msg jetstream.Msg) {
	e, err := events.Normalize(msg.Data())
	if err != nil {
		slog.Warn("malformed call event, skipping",
			"subject", msg.Subject(),
			"error", err,
		)
		// Ack to avoid redelivery of permanently broken messages.
		_ = msg.Ack()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	decision, err := ing.gate.Handle(ctx, e)
	if err != nil {
		// Sink or store failure: the call is not marked logged, so a
		// redelivery can succeed. Nak for retry up to MaxDeliver.
		slog.Error("broker event processing failed", "call_id", e.CallID, "error", err)
		_ = msg.Nak()
		return
	}

	slog.Info("broker event handled", "call_id", e.CallID, "decision", decision.String())
	if err := msg.Ack(); err != nil {
		slog.Warn("failed to ack message", "subject", msg.Subject(), "error", err)
	}
}

// Publish sends a message to NATS (used for announcing the service's own
// lifecycle).
func (ing *Ingester) Publish(subject string, data []byte) error {
	return ing.nc.Publish(subject, data)
}

// Close drains subscriptions and closes the NATS connection.
func (ing *Ingester) Close() {
	for _, cc := range ing.subs {
		cc.Stop()
	}
	ing.nc.Drain()
}
