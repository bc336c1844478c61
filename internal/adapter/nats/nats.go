// Package nats implements the message queue port using NATS JetStream.
package nats

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/agentcoord/agentcoord/internal/logger"
	"github.com/agentcoord/agentcoord/internal/port/messagequeue"
)

const streamName = "AGENTCOORD"

const (
	headerRequestID  = "X-Request-ID"
	headerRetryCount = "Retry-Count"
	maxRetries       = 3
)

// Queue implements messagequeue.Queue using NATS JetStream. Messages that
// fail validation or exhaust their retries move to a per-subject DLQ
// ("<subject>.dlq") instead of blocking the consumer.
type Queue struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// Connect establishes a connection to NATS and ensures the JetStream stream exists.
func Connect(ctx context.Context, url string) (*Queue, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	// Ensure the stream exists with subjects matching our topic patterns.
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{"tasks.>", "requests.>"},
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream stream create: %w", err)
	}

	slog.Info("nats connected", "url", url, "stream", streamName)
	return &Queue{nc: nc, js: js}, nil
}

// Publish sends a message to the given subject. The request ID from the
// context, if any, travels as a header so consumers can correlate logs.
func (q *Queue) Publish(ctx context.Context, subject string, data []byte) error {
	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header:  nats.Header{},
	}
	if reqID := logger.RequestID(ctx); reqID != "" {
		msg.Header.Set(headerRequestID, reqID)
	}

	if _, err := q.js.PublishMsg(ctx, msg); err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	return nil
}

// Subscribe registers a handler for messages on the given subject. Payloads
// are validated against the subject schema before the handler runs; invalid
// payloads go straight to the DLQ.
func (q *Queue) Subscribe(ctx context.Context, subject string, handler messagequeue.Handler) (func(), error) {
	consumer, err := q.js.CreateOrUpdateConsumer(ctx, streamName, jetstream.ConsumerConfig{
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("nats consumer create: %w", err)
	}

	cons, err := consumer.Consume(func(msg jetstream.Msg) {
		msgCtx := context.Background()
		if reqID := msg.Headers().Get(headerRequestID); reqID != "" {
			msgCtx = logger.WithRequestID(msgCtx, reqID)
		}

		if err := messagequeue.Validate(msg.Subject(), msg.Data()); err != nil {
			slog.Error("message validation failed", "subject", msg.Subject(), "error", err)
			q.moveToDLQ(msgCtx, msg)
			return
		}

		if err := handler(msgCtx, msg.Subject(), msg.Data()); err != nil {
			slog.Error("message handler failed", "subject", msg.Subject(), "error", err)
			if retryCount(msg.Headers()) >= maxRetries {
				q.moveToDLQ(msgCtx, msg)
				return
			}
			if nakErr := msg.Nak(); nakErr != nil {
				slog.Error("nats nak failed", "error", nakErr)
			}
			return
		}
		if ackErr := msg.Ack(); ackErr != nil {
			slog.Error("nats ack failed", "error", ackErr)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("nats consume: %w", err)
	}

	return cons.Stop, nil
}

// moveToDLQ republishes the message on "<subject>.dlq" and acks the original
// so it is not redelivered.
func (q *Queue) moveToDLQ(ctx context.Context, msg jetstream.Msg) {
	dlq := &nats.Msg{
		Subject: msg.Subject() + ".dlq",
		Data:    msg.Data(),
		Header:  msg.Headers(),
	}
	if dlq.Header == nil {
		dlq.Header = nats.Header{}
	}
	if _, err := q.js.PublishMsg(ctx, dlq); err != nil {
		slog.Error("nats dlq publish failed", "subject", dlq.Subject, "error", err)
		// Leave the message unacked so it is redelivered rather than lost.
		return
	}
	if err := msg.Ack(); err != nil {
		slog.Error("nats ack failed after dlq", "error", err)
	}
}

func retryCount(hdrs nats.Header) int {
	if hdrs == nil {
		return 0
	}
	n, err := strconv.Atoi(hdrs.Get(headerRetryCount))
	if err != nil {
		return 0
	}
	return n
}

// Drain gracefully drains all subscriptions before closing.
func (q *Queue) Drain() error {
	if err := q.nc.Drain(); err != nil {
		return fmt.Errorf("nats drain: %w", err)
	}
	return nil
}

// Close shuts down the NATS connection.
func (q *Queue) Close() error {
	q.nc.Close()
	return nil
}

// IsConnected reports whether the underlying connection is up.
func (q *Queue) IsConnected() bool {
	return q.nc != nil && q.nc.IsConnected()
}
