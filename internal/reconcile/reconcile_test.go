package reconcile

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mmynk/fundflow/internal/models"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "100000", "100000"},
		{"dot thousands", "50.000", "50000"},
		{"comma thousands", "1,234,567", "1234567"},
		{"repeated dots", "1.234.567", "1234567"},
		{"negative dong", "-50.000đ", "-50000"},
		{"positive vnd", "+200.000 VND", "200000"},
		{"lowercase vnd", "75,000vnd", "75000"},
		{"unicode minus", "−100.000đ", "-100000"},
		{"decimal comma", "12,5", "12.5"},
		{"decimal dot", "12.50", "12.5"},
		{"mixed european", "1.234,56", "1234.56"},
		{"mixed us", "1,234.56", "1234.56"},
		{"zero point", "0.500", "0.5"},
		{"thousands suffix", "300k", "300000"},
		{"spaced", " 40 000 đ ", "40000"},
		{"long integer keeps three decimals", "33333.333", "33333.333"},
		{"negative three decimals", "-33333.337", "-33333.337"},
		{"five digit integer dot", "12345.678", "12345.678"},
		{"five digit integer comma", "12345,678", "12345.678"},
		{"three digit group", "123.456", "123456"},
		{"mixed with long fraction", "1.234,567", "1234.567"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if err != nil {
				t.Fatalf("ParseAmount(%q) error = %v", tt.input, err)
			}
			want := decimal.RequireFromString(tt.want)
			if !got.Equal(want) {
				t.Errorf("ParseAmount(%q) = %s, want %s", tt.input, got, want)
			}
		})
	}
}

func TestParseAmount_Invalid(t *testing.T) {
	for _, input := range []string{"", "abc", "12a", "-", "1.234.567,8,9", "1.23.456", "12345.678.901", "1.2345.678", "12.34,5"} {
		if _, err := ParseAmount(input); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("ParseAmount(%q) error = %v, want ErrInvalidAmount", input, err)
		}
	}
}

func TestExtractFinalAmounts(t *testing.T) {
	reasoning := `An paid 300.000đ for dinner for An, Bình and Chi.
Each share is 100.000đ.

**FINAL AMOUNTS:**
- An: +200.000đ
- **Bình**: -100.000đ
* Chi: -100.000 VND

Thanks!`

	lines, found := ExtractFinalAmounts(reasoning)
	if !found {
		t.Fatal("expected section to be found")
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %+v", len(lines), lines)
	}

	want := []struct {
		name   string
		amount int64
	}{
		{"An", 200000},
		{"Bình", -100000},
		{"Chi", -100000},
	}
	for i, w := range want {
		if lines[i].Name != w.name {
			t.Errorf("line %d name = %q, want %q", i, lines[i].Name, w.name)
		}
		if !lines[i].Amount.Equal(decimal.NewFromInt(w.amount)) {
			t.Errorf("line %d amount = %s, want %d", i, lines[i].Amount, w.amount)
		}
	}
}

func TestExtractFinalAmounts_Missing(t *testing.T) {
	lines, found := ExtractFinalAmounts("An paid for everyone.")
	if found {
		t.Error("expected no section")
	}
	if len(lines) != 0 {
		t.Errorf("expected no lines, got %d", len(lines))
	}
}

func TestExtractFinalAmounts_UsesLastSection(t *testing.T) {
	reasoning := `Final amounts (draft):
- An: +100đ

Correction.
Final Amounts:
- An: +200đ
- Bình: -200đ`

	lines, _ := ExtractFinalAmounts(reasoning)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if !lines[0].Amount.Equal(decimal.NewFromInt(200)) {
		t.Errorf("expected corrected amount 200, got %s", lines[0].Amount)
	}
}

func TestMatchMember(t *testing.T) {
	roster := []models.User{
		{ID: "u1", DisplayName: "Nguyễn Văn An"},
		{ID: "u2", DisplayName: "Bình"},
		{ID: "u3", DisplayName: ""},
	}

	tests := []struct {
		name   string
		input  string
		wantID string
		wantOK bool
	}{
		{"substring of display name", "an", "u1", true},
		{"display name inside label", "Bình (paid)", "u2", true},
		{"exact id", "u3", "u3", true},
		{"no match", "Dũng", "", false},
		{"empty", "  ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := MatchMember(tt.input, roster)
			if ok != tt.wantOK || id != tt.wantID {
				t.Errorf("MatchMember(%q) = (%q, %v), want (%q, %v)", tt.input, id, ok, tt.wantID, tt.wantOK)
			}
		})
	}
}

func TestMatchMember_FirstMatchWins(t *testing.T) {
	roster := []models.User{
		{ID: "u1", DisplayName: "Anh"},
		{ID: "u2", DisplayName: "Anh Tuấn"},
	}
	id, ok := MatchMember("anh", roster)
	if !ok || id != "u1" {
		t.Errorf("expected first member u1, got %q", id)
	}
}

func TestReconcile(t *testing.T) {
	roster := []models.User{
		{ID: "u1", DisplayName: "An"},
		{ID: "u2", DisplayName: "Bình"},
		{ID: "u3", DisplayName: "Chi"},
	}
	reasoning := `FINAL AMOUNTS:
- An: +200.000đ
- Bình: -150.000đ
- Chi: -100.005đ
- Dũng: -0đ`

	splits := map[string]decimal.Decimal{
		"u1": decimal.NewFromInt(200000),
		"u2": decimal.NewFromInt(-100000),
		"u3": decimal.NewFromInt(-100000),
	}

	report := Reconcile(reasoning, splits, roster, decimal.NewFromInt(10))
	if !report.Found {
		t.Fatal("expected section to be found")
	}
	if len(report.Mismatches) != 1 {
		t.Fatalf("expected 1 mismatch, got %d: %+v", len(report.Mismatches), report.Mismatches)
	}
	m := report.Mismatches[0]
	if m.UserID != "u2" {
		t.Errorf("expected mismatch for u2, got %s", m.UserID)
	}
	if !m.Diff().Equal(decimal.NewFromInt(-50000)) {
		t.Errorf("expected diff -50000, got %s", m.Diff())
	}
	if len(report.Unmatched) != 1 || report.Unmatched[0] != "Dũng" {
		t.Errorf("expected Dũng unmatched, got %v", report.Unmatched)
	}
	if len(report.Warnings()) != 2 {
		t.Errorf("expected 2 warnings, got %v", report.Warnings())
	}
}
