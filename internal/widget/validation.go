package widget

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Shivanand-hulikatti/cotisation-live/internal/model"
)

// MaxProofSize is the largest accepted proof of payment.
const MaxProofSize = 5 * 1024 * 1024

const mimeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

var allowedProofTypes = map[string]bool{
	"image/jpeg":         true,
	"image/jpg":          true,
	"image/png":          true,
	"image/gif":          true,
	"application/pdf":    true,
	"application/msword": true,
	mimeDocx:             true,
}

// Violation is one failed payment form rule.
type Violation struct {
	Field   string
	Rule    string
	Message string
}

// paymentInput is the form as validated. Reference is trimmed.
type paymentInput struct {
	Amount      float64           `validate:"gt=0"`
	Method      string            `validate:"required"`
	Reference   string
	File        *model.Attachment `validate:"required"`
	PaymentDate string            `validate:"required,datetime=2006-01-02,not_future"`
}

var fieldOrder = map[string]int{
	"Amount":      0,
	"Method":      1,
	"Reference":   2,
	"File":        3,
	"PaymentDate": 4,
}

var messages = map[string]string{
	"Amount.gt":              "Le montant doit être positif.",
	"Method.required":        "Veuillez sélectionner une méthode de paiement.",
	"Reference.reference":    "La référence de transaction est requise pour cette méthode de paiement.",
	"File.required":          "Veuillez sélectionner un fichier justificatif.",
	"File.file_size":         "Le fichier ne peut pas dépasser 5MB.",
	"File.file_type":         "Format de fichier non autorisé. Formats acceptés: JPG, PNG, PDF, DOC, DOCX",
	"PaymentDate.required":   "La date de paiement est requise.",
	"PaymentDate.datetime":   "La date de paiement est invalide.",
	"PaymentDate.not_future": "La date de paiement ne peut pas être dans le futur.",
}

// PaymentValidator checks the payment proof form. Every rule is evaluated;
// violations come back in form order.
type PaymentValidator struct {
	validate *validator.Validate
	now      func() time.Time
}

// NewPaymentValidator returns a validator judging dates against now.
func NewPaymentValidator(now func() time.Time) *PaymentValidator {
	pv := &PaymentValidator{validate: validator.New(), now: now}
	// Registration only fails for malformed tags.
	_ = pv.validate.RegisterValidation("not_future", pv.notFuture)
	pv.validate.RegisterStructValidation(paymentRules, paymentInput{})
	return pv
}

// notFuture accepts a YYYY-MM-DD date that is not after today.
func (pv *PaymentValidator) notFuture(fl validator.FieldLevel) bool {
	now := pv.now()
	day, err := time.ParseInLocation("2006-01-02", fl.Field().String(), now.Location())
	if err != nil {
		return false
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return !day.After(today)
}

// paymentRules holds the cross-field rules: the reference depends on the
// method and the file checks only apply once a file is attached.
func paymentRules(sl validator.StructLevel) {
	in := sl.Current().Interface().(paymentInput)
	if model.ReferenceRequired(in.Method) && in.Reference == "" {
		sl.ReportError(in.Reference, "reference", "Reference", "reference", in.Method)
	}
	if in.File != nil {
		if in.File.Size > MaxProofSize {
			sl.ReportError(in.File.Size, "file", "File", "file_size", "")
		}
		if !allowedProofTypes[in.File.ContentType] {
			sl.ReportError(in.File.ContentType, "file", "File", "file_type", "")
		}
	}
}

// Validate returns every violation of form, or nil.
func (pv *PaymentValidator) Validate(form model.PaymentForm) []Violation {
	in := paymentInput{
		Amount:      form.Amount,
		Method:      form.Method,
		Reference:   strings.TrimSpace(form.Reference),
		File:        form.File,
		PaymentDate: strings.TrimSpace(form.PaymentDate),
	}
	err := pv.validate.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []Violation{{Field: "Form", Rule: "invalid", Message: err.Error()}}
	}

	out := make([]Violation, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		key := fe.StructField() + "." + fe.Tag()
		msg, ok := messages[key]
		if !ok {
			msg = key
		}
		out = append(out, Violation{Field: fe.StructField(), Rule: fe.Tag(), Message: msg})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return fieldOrder[out[i].Field] < fieldOrder[out[j].Field]
	})
	return out
}

// checkAttachment applies the attach-time file checks: size first, then type.
// It returns the first failing message or "".
func checkAttachment(f *model.Attachment) string {
	if f.Size > MaxProofSize {
		return messages["File.file_size"]
	}
	if !allowedProofTypes[f.ContentType] {
		return messages["File.file_type"]
	}
	return ""
}
