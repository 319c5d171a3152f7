package telemetry

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
)

type captureConn struct {
	subject string
	data    []byte
	err     error
}

func (c *captureConn) Publish(subject string, data []byte) error {
	c.subject = subject
	c.data = data
	return c.err
}

func TestPublishEncodesEvent(t *testing.T) {
	conn := &captureConn{}
	p := NewPublisher(conn, "cotisation.widgets.", slog.New(slog.NewTextHandler(io.Discard, nil)))

	p.Publish(Event{Kind: KindSearchPerformed, Session: "s1", Attrs: map[string]any{"results": 3}})

	if conn.subject != "cotisation.widgets.search.performed" {
		t.Errorf("subject = %q", conn.subject)
	}
	var got Event
	if err := json.Unmarshal(conn.data, &got); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if got.Session != "s1" || got.At.IsZero() || got.Attrs["results"] != float64(3) {
		t.Errorf("payload = %+v", got)
	}
}

func TestPublishSwallowsErrors(t *testing.T) {
	conn := &captureConn{err: errors.New("nats: connection closed")}
	p := NewPublisher(conn, "", slog.New(slog.NewTextHandler(io.Discard, nil)))
	p.Publish(Event{Kind: KindSessionOpened})
	if conn.subject != KindSessionOpened {
		t.Errorf("subject = %q", conn.subject)
	}
}
