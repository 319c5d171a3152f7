// Package model defines the payloads exchanged with the membership website
// and the transient UI state the widgets derive from them.
package model

import "time"

// Activity states returned by the website.
const (
	StateConfirmed = "confirmed"
	StateOngoing   = "ongoing"
	StateCompleted = "completed"
)

// ActivitySummary is one search result, rendered as a card.
type ActivitySummary struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	GroupID          int64     `json:"group_id"`
	GroupName        Text      `json:"group_name"`
	Description      Text      `json:"description_short"`
	State            string    `json:"state"`
	DateStart        Timestamp `json:"date_start"`
	DateEnd          Timestamp `json:"date_end"`
	Location         Text      `json:"location"`
	CotisationAmount float64   `json:"cotisation_amount"`
	CurrencySymbol   Text      `json:"currency_symbol"`
	ParticipantCount int       `json:"participant_count"`
	MaxParticipants  int       `json:"max_participants"`
	IsFull           bool      `json:"is_full"`
	URL              string    `json:"url"`
}

// RegistrationOpen reports whether the activity accepts registrations.
func (a *ActivitySummary) RegistrationOpen() bool {
	if a.IsFull {
		return false
	}
	return a.State == StateConfirmed || a.State == StateOngoing
}

// DetailURL returns the activity page, falling back to the canonical path.
func (a *ActivitySummary) DetailURL() string {
	if a.URL != "" {
		return a.URL
	}
	return ActivityPath(a.ID)
}

// Stats are the listing counters.
type Stats struct {
	TotalActivities int `json:"total_activities"`
	AvailableSpots  int `json:"available_spots"`
}

// SearchQuery is the single logical query of the listing page.
type SearchQuery struct {
	Term    string
	GroupID string
	State   string
	Limit   int
}

// ActivityInfo summarises an activity inside an eligibility answer.
type ActivityInfo struct {
	Name             string  `json:"name"`
	CotisationAmount float64 `json:"cotisation_amount"`
	CurrencySymbol   Text    `json:"currency_symbol"`
	AvailableSpots   int     `json:"available_spots"`
}

// EligibilityResult is the website's verdict on a registration attempt.
type EligibilityResult struct {
	Success      bool          `json:"success"`
	Message      string        `json:"message"`
	ActivityInfo *ActivityInfo `json:"activity_info,omitempty"`
}

// Cotisation states.
const (
	CotisationPaid    = "paid"
	CotisationPartial = "partial"
	CotisationPending = "pending"
	CotisationOverdue = "overdue"
)

// CotisationStatus is the polled state of one dues obligation.
type CotisationStatus struct {
	State           string  `json:"state"`
	AmountPaid      float64 `json:"amount_paid"`
	RemainingAmount float64 `json:"remaining_amount"`
	CurrencySymbol  Text    `json:"currency_symbol"`
}

// Proof states.
const (
	ProofSubmitted   = "submitted"
	ProofUnderReview = "under_review"
	ProofValidated   = "validated"
	ProofRejected    = "rejected"
)

// ProofOfPayment is an uploaded payment document. Only the latest is shown.
type ProofOfPayment struct {
	ID    int64  `json:"id"`
	State string `json:"state"`
}

// StatusResponse is the answer of the cotisation status endpoint.
type StatusResponse struct {
	Success    bool             `json:"success"`
	Message    string           `json:"message,omitempty"`
	Cotisation CotisationStatus `json:"cotisation"`
	Proofs     []ProofOfPayment `json:"proofs"`
}

// LatestProof returns the first proof, which the website orders newest first.
func (s *StatusResponse) LatestProof() (ProofOfPayment, bool) {
	if len(s.Proofs) == 0 {
		return ProofOfPayment{}, false
	}
	return s.Proofs[0], true
}

// Payment methods offered by the payment form.
const (
	MethodCash         = "cash"
	MethodMobileMoney  = "mobile_money"
	MethodBankTransfer = "bank_transfer"
	MethodOnline       = "online"
	MethodCheck        = "check"
)

// ReferenceRequired reports whether a payment method needs a transaction
// reference. The set is exactly mobile money, bank transfer and online.
func ReferenceRequired(method string) bool {
	switch method {
	case MethodMobileMoney, MethodBankTransfer, MethodOnline:
		return true
	}
	return false
}

// Attachment describes the file picked in the proof upload input.
type Attachment struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"type"`
}

// PaymentForm is the client-side state of the payment proof form.
type PaymentForm struct {
	Amount      float64
	Method      string
	Reference   string
	File        *Attachment
	PaymentDate string // YYYY-MM-DD as typed in the date input
}

// Viewer describes who looks at the page.
type Viewer struct {
	Authenticated bool
}

// Page kinds a live session can be opened for.
const (
	PageActivityList      = "activity-list"
	PageActivityDetail    = "activity-detail"
	PageCotisationPayment = "cotisation-payment"
	PageDashboard         = "dashboard"
)

// PageDescriptor is what the browser shim reports about the page it runs on.
type PageDescriptor struct {
	Page          string  `json:"page"`
	Authenticated bool    `json:"authenticated"`
	URL           string  `json:"url"`
	Title         string  `json:"title"`
	ActivityID    int64   `json:"activity_id,omitempty"`
	ActivityDate  string  `json:"activity_date,omitempty"`
	Location      string  `json:"location,omitempty"`
	CotisationID  int64   `json:"cotisation_id,omitempty"`
	CotisationIDs []int64 `json:"cotisation_ids,omitempty"`
	MaxAmount     float64 `json:"max_amount,omitempty"`
	Method        string  `json:"payment_method,omitempty"`
}

// Event kinds forwarded by the browser shim.
const (
	EventInput  = "input"
	EventKeyUp  = "keyup"
	EventChange = "change"
	EventBlur   = "blur"
	EventSubmit = "submit"
	EventClick  = "click"
)

// Event is one DOM event forwarded by the browser shim.
type Event struct {
	Type         string            `json:"type"`
	Name         string            `json:"name,omitempty"`
	Value        string            `json:"value,omitempty"`
	Key          string            `json:"key,omitempty"`
	Action       string            `json:"action,omitempty"`
	ActivityID   int64             `json:"activity_id,omitempty"`
	CotisationID int64             `json:"cotisation_id,omitempty"`
	Fields       map[string]string `json:"fields,omitempty"`
	File         *Attachment       `json:"file,omitempty"`
}

// OpenSessionResponse is returned when a live session is opened.
type OpenSessionResponse struct {
	ID      string    `json:"id"`
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
