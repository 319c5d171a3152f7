// Package widget holds the controllers mounted on the website pages: the
// activity search, the activity detail page, the payment proof form and the
// member dashboard. Controllers run on a live.Loop and only touch the page
// through live.Page patches.
package widget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/cotisation-live/internal/live"
	"github.com/Shivanand-hulikatti/cotisation-live/internal/model"
	"github.com/Shivanand-hulikatti/cotisation-live/internal/render"
	"github.com/Shivanand-hulikatti/cotisation-live/internal/telemetry"
)

var (
	// ErrUnknownPage is returned by Mount for a page kind with no widget.
	ErrUnknownPage = errors.New("no widget for page")
	// ErrAlreadySubmitting is logged when a payment form is submitted twice.
	ErrAlreadySubmitting = errors.New("payment form already submitting")
)

// Backend is the website API the widgets call.
type Backend interface {
	Stats(ctx context.Context) (model.Stats, error)
	Search(ctx context.Context, q model.SearchQuery) ([]model.ActivitySummary, error)
	CheckEligibility(ctx context.Context, activityID int64) (model.EligibilityResult, error)
	CotisationStatus(ctx context.Context, cotisationID int64) (model.StatusResponse, error)
}

// Options are the tunables shared by every widget.
type Options struct {
	SearchDebounce time.Duration
	SearchLimit    int
	PollInterval   time.Duration
	NoticeTTL      time.Duration
	LoginURL       string
}

// DefaultOptions match the behaviour of the website widgets.
var DefaultOptions = Options{
	SearchDebounce: 500 * time.Millisecond,
	SearchLimit:    12,
	PollInterval:   30 * time.Second,
	NoticeTTL:      5 * time.Second,
	LoginURL:       "/web/login",
}

// Deps are injected into every widget.
type Deps struct {
	Backend   Backend
	Publisher telemetry.Publisher
	Log       *slog.Logger
	Options   Options
	// Now defaults to time.Now.
	Now func() time.Time
}

// Mount builds the widget for the page described by desc.
func Mount(id string, desc model.PageDescriptor, deps Deps, loop *live.Loop, page live.Page) (live.Widget, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Publisher == nil {
		deps.Publisher = telemetry.Nop{}
	}
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	b := base{
		id:     id,
		kind:   desc.Page,
		deps:   deps,
		loop:   loop,
		page:   page,
		log:    deps.Log.With("session", id, "page", desc.Page),
		viewer: model.Viewer{Authenticated: desc.Authenticated},
	}

	switch desc.Page {
	case model.PageActivityList:
		return newSearch(b), nil
	case model.PageActivityDetail:
		return newDetail(b, desc), nil
	case model.PageCotisationPayment:
		return newPayment(b, desc), nil
	case model.PageDashboard:
		return newDashboard(b, desc), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPage, desc.Page)
	}
}

// ─── Shared plumbing ──────────────────────────────────────────────────────────

// base carries what every controller needs. All fields are owned by the loop.
type base struct {
	id     string
	kind   string
	deps   Deps
	loop   *live.Loop
	page   live.Page
	log    *slog.Logger
	viewer model.Viewer

	notices map[string]*live.Timer
}

func (b *base) apply(patches ...live.Patch) {
	for _, p := range patches {
		b.page.Apply(p)
	}
}

// showError prepends a dismissible error banner to container and removes it
// once the notice TTL has passed.
func (b *base) showError(container, message string) {
	id := "notice-" + uuid.NewString()
	b.apply(live.Prepend(container, render.ErrorBanner(id, message)))
	b.expire(id)
}

// notify shows a floating toast.
func (b *base) notify(message, kind string) {
	id := "notice-" + uuid.NewString()
	b.apply(live.Append("body", render.Notification(id, message, kind)))
	b.expire(id)
}

func (b *base) expire(id string) {
	if b.notices == nil {
		b.notices = map[string]*live.Timer{}
	}
	b.notices[id] = b.loop.AfterFunc(b.deps.Options.NoticeTTL, func() {
		delete(b.notices, id)
		b.apply(live.Remove("#" + id))
	})
}

func (b *base) stopNotices() {
	for id, t := range b.notices {
		t.Stop()
		delete(b.notices, id)
	}
}

func (b *base) publish(kind string, attrs map[string]any) {
	b.deps.Publisher.Publish(telemetry.Event{
		Kind:    kind,
		Session: b.id,
		Page:    b.kind,
		Attrs:   attrs,
		At:      b.deps.Now().UTC(),
	})
}

// checkEligibility asks whether the viewer may register for an activity and
// opens the confirmation dialog when they may.
func (b *base) checkEligibility(activityID int64, container string) {
	live.Call(b.loop, func(ctx context.Context) (model.EligibilityResult, error) {
		return b.deps.Backend.CheckEligibility(ctx, activityID)
	}, func(res model.EligibilityResult, err error) {
		b.publish(telemetry.KindEligibilityChecked, map[string]any{
			"activity_id": activityID,
			"eligible":    err == nil && res.Success,
		})
		if err != nil {
			b.log.Error("eligibility check failed", "activity_id", activityID, "error", err)
			b.showError(container, "Erreur lors de la vérification de l'éligibilité")
			return
		}
		if !res.Success {
			b.showError(container, res.Message)
			return
		}
		var info model.ActivityInfo
		if res.ActivityInfo != nil {
			info = *res.ActivityInfo
		}
		b.apply(live.Dialog(render.ConfirmRegistration(activityID, info)))
	})
}
