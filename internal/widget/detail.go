package widget

import (
	"context"
	"net/url"
	"regexp"
	"strconv"

	"github.com/Shivanand-hulikatti/cotisation-live/internal/live"
	"github.com/Shivanand-hulikatti/cotisation-live/internal/model"
	"github.com/Shivanand-hulikatti/cotisation-live/internal/render"
)

const (
	alertSelector     = ".alert-registration"
	alertIconSelector = ".alert-registration i"
	alertTextSelector = ".alert-registration .alert-message"
)

var activityPathRe = regexp.MustCompile(`/activity/(\d+)`)

// Detail drives the activity page: registration status on load, sharing,
// calendar export and the register button.
type Detail struct {
	base
	activityID int64
	pageURL    string
	title      string
	date       string
	location   string
}

func newDetail(b base, desc model.PageDescriptor) *Detail {
	d := &Detail{
		base:       b,
		activityID: desc.ActivityID,
		pageURL:    desc.URL,
		title:      desc.Title,
		date:       desc.ActivityDate,
		location:   desc.Location,
	}
	if d.activityID == 0 {
		d.activityID = activityIDFromURL(desc.URL)
	}
	return d
}

// activityIDFromURL extracts the id from an /activity/{id} page URL, or 0.
func activityIDFromURL(raw string) int64 {
	path := raw
	if u, err := url.Parse(raw); err == nil {
		path = u.Path
	}
	m := activityPathRe.FindStringSubmatch(path)
	if m == nil {
		return 0
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func (d *Detail) Start() {
	d.apply(
		live.SetAttr(".btn-share-facebook", "href", render.FacebookShareURL(d.pageURL)),
		live.SetAttr(".btn-share-twitter", "href", render.TwitterShareURL(d.pageURL, d.title)),
	)
	if d.activityID == 0 || !d.viewer.Authenticated {
		return
	}
	id := d.activityID
	live.Call(d.loop, func(ctx context.Context) (model.EligibilityResult, error) {
		return d.deps.Backend.CheckEligibility(ctx, id)
	}, func(res model.EligibilityResult, err error) {
		if err != nil {
			d.log.Warn("registration status unavailable", "activity_id", id, "error", err)
			return
		}
		d.showRegistrationStatus(res)
	})
}

// showRegistrationStatus restyles the registration alert from an
// eligibility answer.
func (d *Detail) showRegistrationStatus(res model.EligibilityResult) {
	if res.Success {
		d.apply(
			live.RemoveClass(alertSelector, "alert-warning"),
			live.AddClass(alertSelector, "alert-success"),
			live.RemoveClass(alertIconSelector, "fa-exclamation-triangle"),
			live.AddClass(alertIconSelector, "fa-check-circle"),
		)
	} else {
		d.apply(
			live.RemoveClass(alertSelector, "alert-success"),
			live.AddClass(alertSelector, "alert-warning"),
			live.RemoveClass(alertIconSelector, "fa-check-circle"),
			live.AddClass(alertIconSelector, "fa-exclamation-triangle"),
		)
	}
	d.apply(live.SetText(alertTextSelector, res.Message))
}

func (d *Detail) Handle(ev model.Event) {
	if ev.Type != model.EventClick {
		return
	}
	switch ev.Action {
	case "register":
		if d.activityID != 0 {
			d.apply(live.Navigate(model.RegisterPath(d.activityID)))
		}
	case "share":
		d.apply(live.Copy(d.pageURL))
		d.notify("Lien copié dans le presse-papiers !", "success")
	case "add-calendar":
		start, err := model.ParseTimestamp(d.date)
		if err != nil || start.IsZero() {
			d.log.Debug("calendar export skipped, no activity date", "date", d.date)
			return
		}
		d.apply(live.Open(render.CalendarURL(d.title, start, d.location)))
	}
}

func (d *Detail) Stop() {
	d.stopNotices()
}
