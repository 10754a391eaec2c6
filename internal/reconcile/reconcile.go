// Package reconcile cross-checks a parser's narrative explanation against the
// structured splits it claims to justify.
//
// The narrative is expected to end with a section such as:
//
//	FINAL AMOUNTS:
//	- An: +200.000đ
//	- Bình: -100.000đ
//	- Chi: -100.000đ
//
// Each line is parsed, the name is mapped back to a fund member by substring
// containment, and the amount is compared with that member's split. Mismatches
// are advisory: they surface likely arithmetic drift to a human reviewer.
package reconcile

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/fundflow/internal/models"
)

// Line is one "name: amount" entry of a FINAL AMOUNTS section.
type Line struct {
	Name   string
	Raw    string
	Amount decimal.Decimal
}

// Mismatch is a narrative amount that disagrees with the structured split.
type Mismatch struct {
	UserID     string
	Name       string
	Narrative  decimal.Decimal
	Structured decimal.Decimal
}

// Diff returns narrative minus structured.
func (m Mismatch) Diff() decimal.Decimal {
	return m.Narrative.Sub(m.Structured)
}

// Report is the outcome of reconciling one narrative.
type Report struct {
	// Found reports whether a FINAL AMOUNTS section was present.
	Found bool

	Lines      []Line
	Matched    map[string]decimal.Decimal // user ID -> narrative amount
	Mismatches []Mismatch

	// Unmatched holds line names that matched no member.
	Unmatched []string
}

// Warnings renders the report's problems as human-readable messages.
func (r Report) Warnings() []string {
	var msgs []string
	for _, m := range r.Mismatches {
		msgs = append(msgs, fmt.Sprintf("narrative says %s is %s but split is %s (off by %s)",
			m.Name, m.Narrative.String(), m.Structured.String(), m.Diff().String()))
	}
	for _, name := range r.Unmatched {
		msgs = append(msgs, fmt.Sprintf("narrative mentions %q who is not a fund member", name))
	}
	return msgs
}

var (
	sectionHeader = regexp.MustCompile(`(?i)final\s+amounts?`)
	amountLine    = regexp.MustCompile(`^\s*(?:[-*•]\s*|\d+[.)]\s+)?([^:]+?)\s*:\s*[*_]*\s*([+\-−]?)\s*(\d[\d.,]*)\s*(?i:vnđ|vnd|đ|₫|k)?`)
)

// ExtractFinalAmounts returns the entries of the last FINAL AMOUNTS section in
// reasoning. Reading stops at the first blank or unparseable line after the
// first entry. Entries whose amount cannot be parsed are skipped.
func ExtractFinalAmounts(reasoning string) ([]Line, bool) {
	lines := strings.Split(strings.ReplaceAll(reasoning, "\r\n", "\n"), "\n")

	start := -1
	for i, l := range lines {
		if sectionHeader.MatchString(l) {
			start = i
		}
	}
	if start < 0 {
		return nil, false
	}

	var out []Line
	for _, l := range lines[start+1:] {
		trimmed := strings.TrimSpace(l)
		if trimmed == "" {
			if len(out) > 0 {
				break
			}
			continue
		}

		m := amountLine.FindStringSubmatch(trimmed)
		if m == nil {
			if len(out) > 0 {
				break
			}
			continue
		}

		raw := m[2] + strings.TrimRight(m[3], ".,")
		if strings.HasSuffix(strings.ToLower(m[0]), "k") {
			raw += "k"
		}
		amount, err := ParseAmount(raw)
		if err != nil {
			continue
		}
		out = append(out, Line{
			Name:   strings.Trim(m[1], "*_ `"),
			Raw:    trimmed,
			Amount: amount,
		})
	}
	return out, true
}

// MatchMember maps a narrative name to a member ID. An exact ID match wins;
// otherwise the first member whose display name contains the name, or is
// contained in it, case-insensitively. Members with duplicate or overlapping
// names resolve to whichever comes first in roster.
func MatchMember(name string, roster []models.User) (string, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return "", false
	}
	for _, u := range roster {
		if u.ID == strings.TrimSpace(name) {
			return u.ID, true
		}
	}
	for _, u := range roster {
		dn := strings.ToLower(strings.TrimSpace(u.DisplayName))
		if dn == "" {
			continue
		}
		if strings.Contains(dn, n) || strings.Contains(n, dn) {
			return u.ID, true
		}
	}
	return "", false
}

// Reconcile compares the FINAL AMOUNTS section of reasoning with splits.
// Differences whose magnitude exceeds tolerance are reported as mismatches. A
// member named in the narrative but absent from splits is compared against 0.
func Reconcile(reasoning string, splits map[string]decimal.Decimal, roster []models.User, tolerance decimal.Decimal) Report {
	lines, found := ExtractFinalAmounts(reasoning)
	report := Report{
		Found:   found,
		Lines:   lines,
		Matched: make(map[string]decimal.Decimal, len(lines)),
	}

	for _, line := range lines {
		userID, ok := MatchMember(line.Name, roster)
		if !ok {
			report.Unmatched = append(report.Unmatched, line.Name)
			continue
		}
		if _, dup := report.Matched[userID]; dup {
			continue
		}
		report.Matched[userID] = line.Amount

		structured := splits[userID]
		if line.Amount.Sub(structured).Abs().GreaterThan(tolerance) {
			report.Mismatches = append(report.Mismatches, Mismatch{
				UserID:     userID,
				Name:       line.Name,
				Narrative:  line.Amount,
				Structured: structured,
			})
		}
	}
	return report
}
