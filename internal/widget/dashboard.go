package widget

import (
	"context"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/cotisation-live/internal/live"
	"github.com/Shivanand-hulikatti/cotisation-live/internal/model"
	"github.com/Shivanand-hulikatti/cotisation-live/internal/render"
	"github.com/Shivanand-hulikatti/cotisation-live/internal/telemetry"
)

const (
	refreshSelector = ".btn-refresh-status"
	spinnerDuration = 2 * time.Second
)

// cardSelector scopes patches to one cotisation card.
func cardSelector(id int64) string {
	return fmt.Sprintf(`.cotisation-card[data-cotisation-id="%d"]`, id)
}

// Dashboard polls the status of every visible cotisation and patches each
// card with its own answer.
//
// Fetch failures are logged and dropped at the per-card boundary. They are
// never shown, never retried and never stop the poller; the next cycle or a
// reload brings the card up to date.
type Dashboard struct {
	base
	ids     []int64
	ticker  *live.Ticker
	spinner *live.Timer
}

func newDashboard(b base, desc model.PageDescriptor) *Dashboard {
	return &Dashboard{base: b, ids: desc.CotisationIDs}
}

func (d *Dashboard) Start() {
	d.refreshAll()
	d.ticker = d.loop.Every(d.deps.Options.PollInterval, d.refreshAll)
}

func (d *Dashboard) Handle(ev model.Event) {
	if ev.Type != model.EventClick {
		return
	}
	switch ev.Action {
	case "refresh-status":
		d.refreshAll()
		d.spinner.Stop()
		d.apply(live.SetHTML(refreshSelector, render.Spinner()))
		d.spinner = d.loop.AfterFunc(spinnerDuration, func() {
			d.spinner = nil
			d.apply(live.SetHTML(refreshSelector, render.RefreshLabel()))
		})
	case "open-cotisation":
		if ev.CotisationID != 0 {
			d.apply(live.Navigate(model.CotisationPath(ev.CotisationID)))
		}
	}
}

func (d *Dashboard) Stop() {
	d.ticker.Stop()
	d.spinner.Stop()
	d.stopNotices()
}

// refreshAll issues one independent fetch per card. Slow answers from a
// previous cycle may land after newer ones; each patch only rewrites its own
// card, so the last answer simply wins.
func (d *Dashboard) refreshAll() {
	for _, id := range d.ids {
		d.refresh(id)
	}
	d.publish(telemetry.KindStatusRefreshed, map[string]any{"cotisations": len(d.ids)})
}

func (d *Dashboard) refresh(id int64) {
	live.Call(d.loop, func(ctx context.Context) (model.StatusResponse, error) {
		return d.deps.Backend.CotisationStatus(ctx, id)
	}, func(res model.StatusResponse, err error) {
		if err != nil {
			d.log.Warn("cotisation status fetch failed", "cotisation_id", id, "error", err)
			return
		}
		if !res.Success {
			d.log.Warn("cotisation status refused", "cotisation_id", id, "message", res.Message)
			return
		}
		d.updateCard(id, res)
	})
}

func (d *Dashboard) updateCard(id int64, res model.StatusResponse) {
	card := cardSelector(id)
	c := res.Cotisation
	symbol := c.CurrencySymbol.String()

	d.apply(
		live.SetAttr(card+" .badge-status", "class", render.CotisationBadgeClass(c.State)),
		live.SetText(card+" .badge-status", render.CotisationLabel(c.State)),
		live.SetText(card+" .amount-paid", render.Money(c.AmountPaid, symbol)),
		live.SetText(card+" .remaining-amount", render.Money(c.RemainingAmount, symbol)),
	)
	if proof, ok := res.LatestProof(); ok {
		d.apply(live.Replace(card+" .proof-status", card+" .card-body", render.ProofStatus(proof)))
	}
}
