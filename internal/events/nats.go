// Package events provides external sinks for cache lifecycle events.
package events

import (
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/southerncoder/tradecache/internal/types"
)

// NATSSink publishes cache events onto a NATS subject tree so downstream
// pipeline stages can react to invalidations and metrics without polling.
// Publishes are fire-and-forget; the client buffers and a broken connection
// drops events rather than blocking cache operations.
type NATSSink struct {
	conn          *nats.Conn
	subjectPrefix string
	logger        *slog.Logger
	dropped       atomic.Int64
	closed        atomic.Bool
}

// NewNATSSink dials the server and returns a sink publishing under
// subjectPrefix (for example "tradecache.events").
func NewNATSSink(url, subjectPrefix string, logger *slog.Logger) (*NATSSink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if subjectPrefix == "" {
		subjectPrefix = "tradecache.events"
	}

	conn, err := nats.Connect(url,
		nats.Name("tradecache-events"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, err
	}

	return &NATSSink{
		conn:          conn,
		subjectPrefix: subjectPrefix,
		logger:        logger.With("component", "nats-sink"),
	}, nil
}

// NewNATSSinkWithConn wraps an existing connection, used by tests and
// processes that already hold one.
func NewNATSSinkWithConn(conn *nats.Conn, subjectPrefix string, logger *slog.Logger) *NATSSink {
	if logger == nil {
		logger = slog.Default()
	}
	if subjectPrefix == "" {
		subjectPrefix = "tradecache.events"
	}
	return &NATSSink{
		conn:          conn,
		subjectPrefix: subjectPrefix,
		logger:        logger.With("component", "nats-sink"),
	}
}

// Publish sends the event as JSON on <prefix>.<cache>.<type>.
func (s *NATSSink) Publish(event types.Event) {
	if s.closed.Load() {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Warn("Failed to encode event", "type", event.Type, "error", err)
		return
	}

	subject := s.subjectPrefix + "." + event.Cache + "." + string(event.Type)
	if err := s.conn.Publish(subject, data); err != nil {
		if s.dropped.Add(1)%100 == 1 {
			s.logger.Warn("Dropping events, NATS publish failing",
				"subject", subject,
				"dropped_total", s.dropped.Load(),
				"error", err,
			)
		}
	}
}

// Dropped reports how many events failed to publish.
func (s *NATSSink) Dropped() int64 {
	return s.dropped.Load()
}

// Close flushes and drains the connection.
func (s *NATSSink) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.conn.Drain()
}

var _ types.EventSink = (*NATSSink)(nil)
