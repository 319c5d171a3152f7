// Package telemetry publishes widget activity to NATS so other services can
// follow what visitors do on the site. Publishing never blocks a widget and
// never changes its behaviour.
package telemetry

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// Event kinds.
const (
	KindSessionOpened      = "session.opened"
	KindSessionClosed      = "session.closed"
	KindSearchPerformed    = "search.performed"
	KindEligibilityChecked = "eligibility.checked"
	KindPaymentValidated   = "payment.validated"
	KindStatusRefreshed    = "status.refreshed"
)

// Event is one published fact.
type Event struct {
	Kind    string         `json:"kind"`
	Session string         `json:"session,omitempty"`
	Page    string         `json:"page,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	At      time.Time      `json:"at"`
}

// Publisher accepts events.
type Publisher interface {
	Publish(ev Event)
}

// Nop drops every event. It is used when no NATS URL is configured.
type Nop struct{}

func (Nop) Publish(Event) {}

// Conn is the part of a NATS connection the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
}

// NATS publishes events as JSON on "<prefix>.<kind>".
type NATS struct {
	conn   Conn
	nc     *nats.Conn
	prefix string
	log    *slog.Logger
}

// Connect dials NATS and returns a publisher on it.
func Connect(url, prefix string, log *slog.Logger) (*NATS, error) {
	nc, err := nats.Connect(url,
		nats.Name("cotisation-live"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	log.Info("connected to nats", "url", url)
	p := NewPublisher(nc, prefix, log)
	p.nc = nc
	return p, nil
}

// NewPublisher wraps an existing connection.
func NewPublisher(conn Conn, prefix string, log *slog.Logger) *NATS {
	return &NATS{conn: conn, prefix: strings.TrimSuffix(prefix, "."), log: log}
}

// Subject returns the subject an event kind is published on.
func (n *NATS) Subject(kind string) string {
	if n.prefix == "" {
		return kind
	}
	return n.prefix + "." + kind
}

func (n *NATS) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		n.log.Warn("telemetry event not encodable", "kind", ev.Kind, "error", err)
		return
	}
	if err := n.conn.Publish(n.Subject(ev.Kind), data); err != nil {
		n.log.Warn("telemetry publish failed", "kind", ev.Kind, "error", err)
	}
}

// Close flushes pending messages and closes the connection.
func (n *NATS) Close() {
	if n.nc != nil {
		if err := n.nc.Drain(); err != nil {
			n.nc.Close()
		}
	}
}
