package widget

import (
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/cotisation-live/internal/model"
)

func newTestValidator() *PaymentValidator {
	return NewPaymentValidator(func() time.Time { return testToday })
}

func pdf(size int64) *model.Attachment {
	return &model.Attachment{Name: "recu.pdf", Size: size, ContentType: "application/pdf"}
}

func rules(vs []Violation) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.Field + "." + v.Rule
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestValidateReportsEveryViolation(t *testing.T) {
	got := newTestValidator().Validate(model.PaymentForm{
		Amount:      -1,
		Method:      "",
		PaymentDate: "2026-10-20",
	})
	want := []string{"Amount.gt", "Method.required", "File.required", "PaymentDate.not_future"}
	if !equalStrings(rules(got), want) {
		t.Fatalf("violations = %v, want %v", rules(got), want)
	}
	if got[3].Message != "La date de paiement ne peut pas être dans le futur." {
		t.Errorf("date message = %q", got[3].Message)
	}
}

func TestValidateBankTransfer(t *testing.T) {
	v := newTestValidator()

	blank := v.Validate(model.PaymentForm{
		Amount:      10,
		Method:      model.MethodBankTransfer,
		Reference:   "   ",
		File:        pdf(1 << 20),
		PaymentDate: "2026-10-19",
	})
	if !equalStrings(rules(blank), []string{"Reference.reference"}) {
		t.Errorf("blank reference: %v", rules(blank))
	}

	valid := v.Validate(model.PaymentForm{
		Amount:      10,
		Method:      model.MethodBankTransfer,
		Reference:   "VIR-2026-001",
		File:        pdf(1 << 20),
		PaymentDate: "2026-10-19",
	})
	if len(valid) != 0 {
		t.Errorf("valid form: %v", rules(valid))
	}
}

func TestValidateReferenceRequirementSet(t *testing.T) {
	v := newTestValidator()
	tests := []struct {
		method string
		want   bool
	}{
		{model.MethodMobileMoney, true},
		{model.MethodBankTransfer, true},
		{model.MethodOnline, true},
		{model.MethodCash, false},
		{model.MethodCheck, false},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			got := v.Validate(model.PaymentForm{
				Amount:      5,
				Method:      tt.method,
				File:        pdf(100),
				PaymentDate: "2026-10-01",
			})
			missing := len(got) == 1 && got[0].Rule == "reference"
			if missing != tt.want {
				t.Errorf("reference violation = %v, want %v (%v)", missing, tt.want, rules(got))
			}
		})
	}
}

func TestValidateFileAndDate(t *testing.T) {
	v := newTestValidator()
	base := model.PaymentForm{Amount: 5, Method: model.MethodCash, PaymentDate: "2026-10-19"}

	tests := []struct {
		name string
		edit func(f *model.PaymentForm)
		want []string
	}{
		{"too large", func(f *model.PaymentForm) { f.File = pdf(MaxProofSize + 1) }, []string{"File.file_size"}},
		{"exactly 5MB", func(f *model.PaymentForm) { f.File = pdf(MaxProofSize) }, []string{}},
		{"bad type", func(f *model.PaymentForm) {
			f.File = &model.Attachment{Name: "x.zip", Size: 10, ContentType: "application/zip"}
		}, []string{"File.file_type"}},
		{"docx", func(f *model.PaymentForm) {
			f.File = &model.Attachment{Name: "x.docx", Size: 10, ContentType: mimeDocx}
		}, []string{}},
		{"large and bad type", func(f *model.PaymentForm) {
			f.File = &model.Attachment{Size: MaxProofSize * 2, ContentType: "text/plain"}
		}, []string{"File.file_size", "File.file_type"}},
		{"missing date", func(f *model.PaymentForm) { f.File = pdf(1); f.PaymentDate = "" }, []string{"PaymentDate.required"}},
		{"garbled date", func(f *model.PaymentForm) { f.File = pdf(1); f.PaymentDate = "19/10/2026" }, []string{"PaymentDate.datetime"}},
		{"yesterday", func(f *model.PaymentForm) { f.File = pdf(1); f.PaymentDate = "2026-10-18" }, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := base
			tt.edit(&form)
			if got := rules(v.Validate(form)); !equalStrings(got, tt.want) {
				t.Errorf("violations = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCheckAttachmentOrder(t *testing.T) {
	big := &model.Attachment{Size: MaxProofSize + 1, ContentType: "text/plain"}
	if got := checkAttachment(big); got != "Le fichier ne peut pas dépasser 5MB." {
		t.Errorf("size is checked first, got %q", got)
	}
	if got := checkAttachment(pdf(10)); got != "" {
		t.Errorf("pdf rejected: %q", got)
	}
}

func TestParseAmount(t *testing.T) {
	tests := map[string]float64{"10": 10, " 12,5 ": 12.5, "": 0, "abc": 0, "-3": -3}
	for in, want := range tests {
		if got := parseAmount(in); got != want {
			t.Errorf("parseAmount(%q) = %v, want %v", in, got, want)
		}
	}
}
