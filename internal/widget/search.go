package widget

import (
	"context"
	"strconv"

	"github.com/Shivanand-hulikatti/cotisation-live/internal/live"
	"github.com/Shivanand-hulikatti/cotisation-live/internal/model"
	"github.com/Shivanand-hulikatti/cotisation-live/internal/render"
	"github.com/Shivanand-hulikatti/cotisation-live/internal/telemetry"
)

// Selectors of the activity listing page.
const (
	resultsSelector = ".activity-results-container"
	totalSelector   = ".total-activities-count"
	spotsSelector   = ".available-spots-count"
	bannerSelector  = ".container"
)

// Form field names of the search form.
const (
	fieldSearch  = "search"
	fieldGroupID = "group_id"
	fieldState   = "state"
)

// Search drives the activity listing: debounced free-text search, immediate
// filter searches, result rendering and quick registration.
//
// Only the response to the most recently issued request is applied. Each
// request takes the next sequence number and a response whose number is no
// longer current is dropped.
type Search struct {
	base
	query    model.SearchQuery
	seq      uint64
	debounce *live.Timer
}

func newSearch(b base) *Search {
	return &Search{base: b, query: model.SearchQuery{Limit: b.deps.Options.SearchLimit}}
}

func (s *Search) Start() {
	live.Call(s.loop, s.deps.Backend.Stats, func(st model.Stats, err error) {
		if err != nil {
			s.log.Warn("activity stats unavailable", "error", err)
			return
		}
		if st.TotalActivities == 0 {
			return
		}
		s.apply(
			live.SetText(totalSelector, strconv.Itoa(st.TotalActivities)),
			live.SetText(spotsSelector, strconv.Itoa(st.AvailableSpots)),
		)
	})
}

func (s *Search) Handle(ev model.Event) {
	switch ev.Type {
	case model.EventInput:
		if ev.Name == fieldSearch {
			s.query.Term = ev.Value
			s.schedule()
		}
	case model.EventKeyUp:
		if ev.Name == fieldSearch && ev.Key == "Enter" {
			s.query.Term = ev.Value
			s.searchNow()
		}
	case model.EventChange:
		if ev.Name == fieldGroupID || ev.Name == fieldState {
			s.setField(ev.Name, ev.Value)
			s.searchNow()
		}
	case model.EventSubmit:
		for name, value := range ev.Fields {
			s.setField(name, value)
		}
		s.searchNow()
	case model.EventClick:
		switch ev.Action {
		case "quick-register":
			s.checkEligibility(ev.ActivityID, bannerSelector)
		case "confirm-registration":
			s.apply(live.Navigate(model.RegisterPath(ev.ActivityID)))
		case "open-activity":
			s.apply(live.Navigate(model.ActivityPath(ev.ActivityID)))
		}
	}
}

func (s *Search) Stop() {
	s.debounce.Stop()
	s.debounce = nil
	s.stopNotices()
}

func (s *Search) setField(name, value string) {
	switch name {
	case fieldSearch:
		s.query.Term = value
	case fieldGroupID:
		s.query.GroupID = value
	case fieldState:
		s.query.State = value
	}
}

// schedule restarts the quiet period before a text search.
func (s *Search) schedule() {
	s.debounce.Stop()
	s.debounce = s.loop.AfterFunc(s.deps.Options.SearchDebounce, func() {
		s.debounce = nil
		s.search()
	})
}

// searchNow cancels a pending debounced search and searches immediately.
func (s *Search) searchNow() {
	s.debounce.Stop()
	s.debounce = nil
	s.search()
}

func (s *Search) search() {
	s.seq++
	seq := s.seq
	q := s.query

	s.apply(live.AddClass(resultsSelector, "loading"))
	live.Call(s.loop, func(ctx context.Context) ([]model.ActivitySummary, error) {
		return s.deps.Backend.Search(ctx, q)
	}, func(items []model.ActivitySummary, err error) {
		if seq != s.seq {
			s.log.Debug("superseded search response dropped", "seq", seq, "current", s.seq)
			return
		}
		s.apply(live.RemoveClass(resultsSelector, "loading"))
		if err != nil {
			s.log.Error("activity search failed", "term", q.Term, "error", err)
			s.showError(bannerSelector, "Erreur lors de la recherche")
			return
		}
		s.render(items)
		s.publish(telemetry.KindSearchPerformed, map[string]any{
			"term":     q.Term,
			"group_id": q.GroupID,
			"state":    q.State,
			"results":  len(items),
		})
	})
}

func (s *Search) render(items []model.ActivitySummary) {
	if len(items) == 0 {
		s.apply(
			live.SetHTML(resultsSelector, render.EmptyResults()),
			live.SetText(totalSelector, "0"),
		)
		return
	}
	s.apply(
		live.SetHTML(resultsSelector, render.SearchResults(items, s.viewer, s.deps.Options.LoginURL)),
		live.SetText(totalSelector, strconv.Itoa(len(items))),
	)
}
