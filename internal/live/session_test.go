package live

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/cotisation-live/internal/model"
)

type fakeWidget struct {
	page Page

	mu      sync.Mutex
	started bool
	stopped bool
	events  []model.Event
}

func (w *fakeWidget) Start() {
	w.mu.Lock()
	w.started = true
	w.mu.Unlock()
	w.page.Apply(SetText(".status", "ready"))
}

func (w *fakeWidget) Handle(ev model.Event) {
	w.mu.Lock()
	w.events = append(w.events, ev)
	w.mu.Unlock()
}

func (w *fakeWidget) Stop() {
	w.mu.Lock()
	w.stopped = true
	w.mu.Unlock()
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestRegistryLifecycle(t *testing.T) {
	reg := NewRegistry(8, quietLogger())
	w := &fakeWidget{}
	s, err := reg.Open(func(id string, loop *Loop, page Page) (Widget, error) {
		w.page = page
		return w, nil
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	select {
	case p := <-s.Page.Patches():
		if p.Op != OpText || p.Text != "ready" {
			t.Errorf("first patch = %+v", p)
		}
	case <-time.After(time.Second):
		t.Fatal("Start never ran")
	}

	got, err := reg.Get(s.ID)
	if err != nil || got != s {
		t.Fatalf("Get: %v", err)
	}
	s.Dispatch(model.Event{Type: model.EventClick, Action: "x"})
	s.Loop.Flush()
	w.mu.Lock()
	n := len(w.events)
	w.mu.Unlock()
	if n != 1 {
		t.Errorf("widget saw %d events, want 1", n)
	}

	if err := reg.Close(s.ID); err != nil {
		t.Fatalf("Close: %v", err)
	}
	w.mu.Lock()
	stopped := w.stopped
	w.mu.Unlock()
	if !stopped {
		t.Error("widget not stopped")
	}
	if _, err := reg.Get(s.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get after close = %v", err)
	}
	if err := reg.Close(s.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("second Close = %v", err)
	}
}

func TestRegistryOpenMountFailure(t *testing.T) {
	reg := NewRegistry(8, quietLogger())
	boom := errors.New("boom")
	_, err := reg.Open(func(id string, loop *Loop, page Page) (Widget, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("Open() = %v", err)
	}
	if reg.Len() != 0 {
		t.Errorf("failed mount left %d sessions", reg.Len())
	}
}

func TestRegistrySweepSkipsStreamingSessions(t *testing.T) {
	reg := NewRegistry(8, quietLogger())
	mount := func(_ string, loop *Loop, page Page) (Widget, error) { return &fakeWidget{page: page}, nil }

	idle, err := reg.Open(mount)
	if err != nil {
		t.Fatal(err)
	}
	busy, err := reg.Open(mount)
	if err != nil {
		t.Fatal(err)
	}
	detach := busy.Attach()
	defer detach()

	closed := reg.Sweep(time.Now().Add(time.Hour), time.Minute)
	if closed != 1 {
		t.Fatalf("Sweep closed %d sessions, want 1", closed)
	}
	if _, err := reg.Get(idle.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Error("idle session survived the sweep")
	}
	if _, err := reg.Get(busy.ID); err != nil {
		t.Error("streaming session was swept")
	}
	reg.CloseAll()
	if reg.Len() != 0 {
		t.Errorf("CloseAll left %d sessions", reg.Len())
	}
}

func TestStreamPageDropsWhenFull(t *testing.T) {
	p := NewStreamPage(1, quietLogger())
	p.Apply(SetText("a", "1"))
	p.Apply(SetText("b", "2"))
	if got := len(p.Patches()); got != 1 {
		t.Fatalf("buffered %d patches, want 1", got)
	}
	if p.dropped.Load() != 1 {
		t.Errorf("dropped = %d, want 1", p.dropped.Load())
	}
}
