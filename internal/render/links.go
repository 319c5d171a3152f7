package render

import (
	"net/url"
	"time"
)

// FacebookShareURL returns the Facebook sharer link for a page.
func FacebookShareURL(pageURL string) string {
	return "https://www.facebook.com/sharer/sharer.php?u=" + url.QueryEscape(pageURL)
}

// TwitterShareURL returns the tweet intent link for a page.
func TwitterShareURL(pageURL, title string) string {
	return "https://twitter.com/intent/tweet?url=" + url.QueryEscape(pageURL) + "&text=" + url.QueryEscape(title)
}

// CalendarDuration is assumed for activities with no end date.
const CalendarDuration = 2 * time.Hour

// CalendarURL returns a Google Calendar event template starting at start.
func CalendarURL(title string, start time.Time, location string) string {
	const layout = "20060102T150405Z"
	start = start.UTC()
	q := url.Values{}
	q.Set("action", "TEMPLATE")
	q.Set("text", title)
	q.Set("dates", start.Format(layout)+"/"+start.Add(CalendarDuration).Format(layout))
	q.Set("location", location)
	q.Set("details", "Inscription via notre site web")
	return "https://calendar.google.com/calendar/render?" + q.Encode()
}
