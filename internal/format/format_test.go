package format

import (
	"strings"
	"testing"
	"time"
)

func TestDate(t *testing.T) {
	d := time.Date(2026, time.November, 2, 14, 5, 0, 0, time.UTC)
	if got, want := Date(d), "2 novembre 2026 à 14:05"; got != want {
		t.Errorf("Date() = %q, want %q", got, want)
	}
	if got := Date(time.Time{}); got != "" {
		t.Errorf("Date(zero) = %q, want empty", got)
	}
}

func TestShortDate(t *testing.T) {
	d := time.Date(2026, time.February, 9, 0, 0, 0, 0, time.UTC)
	if got, want := ShortDate(d), "09/02/2026"; got != want {
		t.Errorf("ShortDate() = %q, want %q", got, want)
	}
}

func TestAmount(t *testing.T) {
	if got, want := Amount(12.5, "€"), "12,50 €"; got != want {
		t.Errorf("Amount() = %q, want %q", got, want)
	}
	if got, want := Amount(3, ""), "3,00"; got != want {
		t.Errorf("Amount() = %q, want %q", got, want)
	}
}

func TestCurrencyFallsBackToEuro(t *testing.T) {
	a := Currency(10, "")
	b := Currency(10, "not-a-code")
	if a != b {
		t.Errorf("unknown code should render like the default: %q vs %q", a, b)
	}
	if !strings.HasPrefix(a, "10,00 ") {
		t.Errorf("Currency() = %q", a)
	}
}

func TestFileSize(t *testing.T) {
	if got, want := FileSize(1536), "1.5 KB"; got != want {
		t.Errorf("FileSize() = %q, want %q", got, want)
	}
}
