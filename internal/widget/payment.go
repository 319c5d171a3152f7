package widget

import (
	"strconv"
	"strings"

	"github.com/Shivanand-hulikatti/cotisation-live/internal/live"
	"github.com/Shivanand-hulikatti/cotisation-live/internal/model"
	"github.com/Shivanand-hulikatti/cotisation-live/internal/render"
	"github.com/Shivanand-hulikatti/cotisation-live/internal/telemetry"
)

// Selectors of the payment proof page.
const (
	formSelector           = "form"
	submitSelector         = `button[type="submit"]`
	referenceSelector      = `input[name="reference"]`
	referenceGroupSelector = `.form-group:has(input[name="reference"])`
	referenceLabelSelector = `.form-group:has(input[name="reference"]) label`
	amountGroupSelector    = `.form-group:has(input[name="amount"])`
	fileSelector           = `input[type="file"]`
	filePreviewSelector    = ".file-preview"
	formErrorSelector      = ".form-error"
	formWarningSelector    = ".form-warning"
)

// Form field names of the payment form.
const (
	fieldAmount      = "amount"
	fieldMethod      = "payment_method"
	fieldReference   = "reference"
	fieldPaymentDate = "payment_date"
	fieldFile        = "file" // the shim reports every file input under this name
)

type formState int

const (
	stateEditing formState = iota
	stateValidating
	stateInvalid
	stateSubmitting
)

func (s formState) String() string {
	switch s {
	case stateEditing:
		return "editing"
	case stateValidating:
		return "validating"
	case stateInvalid:
		return "invalid"
	case stateSubmitting:
		return "submitting"
	}
	return "unknown"
}

// Payment drives the proof of payment form. Validation is local; a valid form
// is handed to the browser for a normal submission, exactly once.
type Payment struct {
	base
	cotisationID int64
	maxAmount    float64
	form         model.PaymentForm
	state        formState
	validator    *PaymentValidator
}

func newPayment(b base, desc model.PageDescriptor) *Payment {
	return &Payment{
		base:         b,
		cotisationID: desc.CotisationID,
		maxAmount:    desc.MaxAmount,
		form:         model.PaymentForm{Method: desc.Method},
		validator:    NewPaymentValidator(b.deps.Now),
	}
}

func (p *Payment) Start() {
	p.updateReferenceField()
}

func (p *Payment) Handle(ev model.Event) {
	switch ev.Type {
	case model.EventChange, model.EventInput:
		p.onChange(ev)
	case model.EventBlur:
		p.onBlur(ev)
	case model.EventClick:
		if ev.Action == "remove-file" {
			p.form.File = nil
			p.apply(
				live.Hide(filePreviewSelector),
				live.SetProp(fileSelector, "value", ""),
			)
		}
	case model.EventSubmit:
		p.submit(ev)
	}
}

func (p *Payment) Stop() {
	p.stopNotices()
}

func (p *Payment) onBlur(ev model.Event) {
	if p.state == stateSubmitting || ev.Name != fieldAmount {
		return
	}
	p.form.Amount = parseAmount(ev.Value)
	if p.form.Amount <= 0 {
		p.showFormErrors([]string{messages["Amount.gt"]})
	} else {
		p.hideFormErrors()
	}
}

func (p *Payment) onChange(ev model.Event) {
	if p.state == stateSubmitting {
		return
	}
	switch ev.Name {
	case fieldMethod:
		p.form.Method = ev.Value
		p.updateReferenceField()
	case fieldAmount:
		p.form.Amount = parseAmount(ev.Value)
		p.checkMaxAmount()
	case fieldReference:
		p.form.Reference = ev.Value
	case fieldPaymentDate:
		p.form.PaymentDate = ev.Value
	case fieldFile:
		p.attach(ev.File)
	}
}

// updateReferenceField marks the reference input required for the methods
// that need one and hides it for cash.
func (p *Payment) updateReferenceField() {
	method := p.form.Method
	if model.ReferenceRequired(method) {
		p.apply(
			live.SetProp(referenceSelector, "required", "true"),
			live.AddClass(referenceLabelSelector, "required"),
		)
	} else {
		p.apply(
			live.SetProp(referenceSelector, "required", "false"),
			live.RemoveClass(referenceLabelSelector, "required"),
		)
	}
	p.apply(live.SetAttr(referenceSelector, "placeholder", render.ReferencePlaceholder(method)))

	if method == model.MethodCash {
		p.apply(live.Hide(referenceGroupSelector))
	} else {
		p.apply(live.Show(referenceGroupSelector))
	}
}

// checkMaxAmount shows a non-blocking warning when the amount exceeds what
// is due. Pages without a known maximum never warn.
func (p *Payment) checkMaxAmount() {
	p.apply(live.Remove(formWarningSelector))
	if p.maxAmount > 0 && p.form.Amount > p.maxAmount {
		p.apply(live.After(amountGroupSelector, render.Warning("Le montant saisi dépasse le montant dû.")))
	}
}

// attach checks a newly picked file. A rejected file clears the input.
func (p *Payment) attach(f *model.Attachment) {
	if f == nil {
		p.form.File = nil
		p.apply(live.Remove(filePreviewSelector))
		return
	}
	if msg := checkAttachment(f); msg != "" {
		p.form.File = nil
		p.showFormErrors([]string{msg})
		p.apply(
			live.SetProp(fileSelector, "value", ""),
			live.Remove(filePreviewSelector),
		)
		return
	}
	p.form.File = f
	p.hideFormErrors()
	p.apply(
		live.Remove(filePreviewSelector),
		live.After(fileSelector, render.FilePreview(*f)),
	)
}

func (p *Payment) submit(ev model.Event) {
	if p.state == stateSubmitting {
		p.log.Warn("submit ignored", "error", ErrAlreadySubmitting)
		return
	}
	for name, value := range ev.Fields {
		switch name {
		case fieldAmount:
			p.form.Amount = parseAmount(value)
		case fieldMethod:
			p.form.Method = value
		case fieldReference:
			p.form.Reference = value
		case fieldPaymentDate:
			p.form.PaymentDate = value
		}
	}
	if ev.File != nil {
		p.form.File = ev.File
	}

	p.state = stateValidating
	violations := p.validator.Validate(p.form)
	p.publish(telemetry.KindPaymentValidated, map[string]any{
		"cotisation_id": p.cotisationID,
		"method":        p.form.Method,
		"violations":    len(violations),
	})

	if len(violations) > 0 {
		p.state = stateInvalid
		msgs := make([]string, len(violations))
		for i, v := range violations {
			msgs[i] = v.Message
		}
		p.showFormErrors(msgs)
		p.state = stateEditing
		return
	}

	p.hideFormErrors()
	p.state = stateSubmitting
	p.apply(
		live.SetProp(submitSelector, "disabled", "true"),
		live.SetHTML(submitSelector, render.BusyLabel()),
		live.Submit(formSelector),
	)
}

func (p *Payment) showFormErrors(msgs []string) {
	p.apply(
		live.Remove(formErrorSelector),
		live.Prepend(formSelector, render.FormErrors(msgs)),
	)
}

func (p *Payment) hideFormErrors() {
	p.apply(live.Remove(formErrorSelector))
}

// parseAmount reads a typed amount, 0 when it is not a number.
func parseAmount(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
