// Package render turns model values into the HTML fragments the widgets patch
// into the page. Every function here is pure.
package render

import (
	"embed"
	"fmt"
	"html/template"
	"strconv"
	"strings"

	"github.com/Shivanand-hulikatti/cotisation-live/internal/format"
	"github.com/Shivanand-hulikatti/cotisation-live/internal/model"
)

//go:embed templates/*.tmpl
var files embed.FS

var tmpl = template.Must(template.New("fragments").ParseFS(files, "templates/*.tmpl"))

func execute(name string, data any) template.HTML {
	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, name, data); err != nil {
		// Templates are static and their data types fixed, so this is a bug.
		panic(fmt.Sprintf("render %s: %v", name, err))
	}
	return template.HTML(strings.TrimSpace(b.String()))
}

// ─── Lookup tables ────────────────────────────────────────────────────────────

// Badge is the class and label of a status badge.
type Badge struct {
	Class string
	Text  string
}

var activityBadges = map[string]Badge{
	model.StateConfirmed: {Class: "badge-confirmed", Text: "Confirmée"},
	model.StateOngoing:   {Class: "badge-ongoing", Text: "En cours"},
	model.StateCompleted: {Class: "badge-completed", Text: "Terminée"},
}

// ActivityBadge returns the badge for an activity state, falling back to a
// neutral badge labelled with the raw state.
func ActivityBadge(state string) Badge {
	if b, ok := activityBadges[state]; ok {
		return b
	}
	return Badge{Class: "badge-secondary", Text: state}
}

var cotisationLabels = map[string]string{
	model.CotisationPaid:    "Payée",
	model.CotisationPartial: "Partielle",
	model.CotisationPending: "En attente",
	model.CotisationOverdue: "En retard",
}

// CotisationLabel returns the label of a cotisation state, or the raw state.
func CotisationLabel(state string) string {
	if l, ok := cotisationLabels[state]; ok {
		return l
	}
	return state
}

// CotisationBadgeClass returns the full class list of a dashboard badge. The
// badge-status hook is kept so later refreshes still find the badge.
func CotisationBadgeClass(state string) string {
	return "badge badge-status badge-" + state
}

var proofLabels = map[string]string{
	model.ProofSubmitted:   "Justificatif soumis",
	model.ProofUnderReview: "En cours de validation",
	model.ProofValidated:   "Justificatif validé",
	model.ProofRejected:    "Justificatif rejeté",
}

// ProofLabel returns the label of a proof state, or the raw state.
func ProofLabel(state string) string {
	if l, ok := proofLabels[state]; ok {
		return l
	}
	return state
}

var referencePlaceholders = map[string]string{
	model.MethodMobileMoney:  "Numéro de transaction Mobile Money",
	model.MethodBankTransfer: "Référence de virement bancaire",
	model.MethodOnline:       "Référence de transaction en ligne",
	model.MethodCheck:        "Numéro de chèque",
}

// ReferencePlaceholder returns the placeholder of the reference input. The
// table has an entry for checks even though they never require a reference.
func ReferencePlaceholder(method string) string {
	if !model.ReferenceRequired(method) {
		return "Référence (optionnel)"
	}
	if p, ok := referencePlaceholders[method]; ok {
		return p
	}
	return "Référence de transaction"
}

// ─── Activities ───────────────────────────────────────────────────────────────

type controlView struct {
	ID            int64
	Authenticated bool
	Open          bool
	LoginURL      string
}

// RegistrationControl renders the register button, the unavailable badge or
// the login link for one activity.
func RegistrationControl(a *model.ActivitySummary, v model.Viewer, loginURL string) template.HTML {
	return execute("registration-control", controlView{
		ID:            a.ID,
		Authenticated: v.Authenticated,
		Open:          a.RegistrationOpen(),
		LoginURL:      loginURL,
	})
}

type cardView struct {
	ID           int64
	Name         string
	GroupName    string
	Badge        Badge
	IsFull       bool
	Date         string
	FullDate     string
	Location     string
	Amount       string
	Participants string
	URL          string
	Control      template.HTML
}

// Money renders an amount with the website's currency symbol, or in euros
// when the website sent none.
func Money(amount float64, symbol string) string {
	if symbol == "" {
		return format.Currency(amount, "")
	}
	return format.Amount(amount, symbol)
}

// ActivityCard renders one search result.
func ActivityCard(a *model.ActivitySummary, v model.Viewer, loginURL string) template.HTML {
	view := cardView{
		ID:           a.ID,
		Name:         a.Name,
		GroupName:    a.GroupName.String(),
		Badge:        ActivityBadge(a.State),
		IsFull:       a.IsFull,
		Date:         format.ShortDate(a.DateStart.Time),
		FullDate:     format.Date(a.DateStart.Time),
		Location:     a.Location.String(),
		Amount:       Money(a.CotisationAmount, a.CurrencySymbol.String()),
		Participants: participants(a.ParticipantCount, a.MaxParticipants),
		URL:          a.DetailURL(),
		Control:      RegistrationControl(a, v, loginURL),
	}
	if view.Date == "" {
		view.Date = "À définir"
	}
	if view.Location == "" {
		view.Location = "Lieu à définir"
	}
	return execute("activity-card", view)
}

func participants(count, max int) string {
	s := strconv.Itoa(count)
	if max > 0 {
		s += "/" + strconv.Itoa(max)
	}
	s += " participant"
	if count != 1 {
		s += "s"
	}
	return s
}

// SearchResults renders one card per activity.
func SearchResults(items []model.ActivitySummary, v model.Viewer, loginURL string) template.HTML {
	var b strings.Builder
	for i := range items {
		b.WriteString(string(ActivityCard(&items[i], v, loginURL)))
		b.WriteByte('\n')
	}
	return template.HTML(b.String())
}

// EmptyResults renders the placeholder shown when a search matches nothing.
func EmptyResults() template.HTML {
	return execute("empty-results", model.ActivitiesPath)
}

type confirmView struct {
	ID     int64
	Name   string
	Amount string
	Spots  string
}

// ConfirmRegistration renders the body of the registration confirmation
// dialog. Zero or negative spots read as unlimited.
func ConfirmRegistration(activityID int64, info model.ActivityInfo) template.HTML {
	spots := "Illimitées"
	if info.AvailableSpots > 0 {
		spots = strconv.Itoa(info.AvailableSpots)
	}
	return execute("confirm-registration", confirmView{
		ID:     activityID,
		Name:   info.Name,
		Amount: Money(info.CotisationAmount, info.CurrencySymbol.String()),
		Spots:  spots,
	})
}

// ─── Alerts ───────────────────────────────────────────────────────────────────

// ErrorBanner renders a dismissible error banner with a DOM id so it can be
// removed once it expires.
func ErrorBanner(id, message string) template.HTML {
	return execute("error-banner", struct{ ID, Message string }{id, message})
}

// Notification renders a floating toast. kind is a bootstrap alert flavour.
func Notification(id, message, kind string) template.HTML {
	if kind == "" {
		kind = "info"
	}
	icon := "info"
	if kind == "success" {
		icon = "check"
	}
	return execute("notification", struct{ ID, Message, Kind, Icon string }{id, message, kind, icon})
}

// FormErrors renders every validation message in one region.
func FormErrors(messages []string) template.HTML {
	return execute("form-errors", messages)
}

// Warning renders the non-blocking amount warning.
func Warning(message string) template.HTML {
	return execute("form-warning", message)
}

// ─── Payment & dashboard ──────────────────────────────────────────────────────

// FilePreview renders the name and size of the picked proof file.
func FilePreview(f model.Attachment) template.HTML {
	return execute("file-preview", struct{ Name, Size string }{f.Name, format.FileSize(f.Size)})
}

// BusyLabel is the submit button label while the form is being sent.
func BusyLabel() template.HTML { return execute("busy-label", nil) }

// ProofStatus renders the latest proof line of a dashboard card.
func ProofStatus(p model.ProofOfPayment) template.HTML {
	return execute("proof-status", struct {
		Label    string
		Rejected bool
	}{ProofLabel(p.State), p.State == model.ProofRejected})
}

// Spinner is shown in the refresh button while a manual refresh runs.
func Spinner() template.HTML { return execute("spinner", nil) }

// RefreshLabel is the idle label of the refresh button.
func RefreshLabel() template.HTML { return execute("refresh-label", nil) }
