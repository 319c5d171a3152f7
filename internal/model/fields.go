package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Text is a string field the website may send as false or null when empty.
type Text string

// UnmarshalJSON accepts a JSON string, null or false.
func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) || bytes.Equal(b, []byte("false")) {
		*t = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("text field: %w", err)
	}
	*t = Text(s)
	return nil
}

func (t Text) String() string { return string(t) }

// timestampLayouts are tried in order. The website sends naive ISO values.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Timestamp is a nullable point in time. Naive values are read as UTC.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON accepts an ISO string, null or false.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) || bytes.Equal(b, []byte("false")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp field: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// MarshalJSON writes null for the zero value.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339))
}

// ParseTimestamp parses the timestamp formats the website and the page use.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if v, err := time.Parse(layout, s); err == nil {
			return v, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// ─── Navigational paths ───────────────────────────────────────────────────────

// ActivitiesPath is the unfiltered activity listing.
const ActivitiesPath = "/activities"

// ActivityPath is the detail page of one activity.
func ActivityPath(id int64) string {
	return "/activity/" + strconv.FormatInt(id, 10)
}

// RegisterPath is the registration page of one activity.
func RegisterPath(id int64) string {
	return ActivityPath(id) + "/register"
}

// CotisationPath is the detail page of one cotisation.
func CotisationPath(id int64) string {
	return "/my/cotisation/" + strconv.FormatInt(id, 10)
}
