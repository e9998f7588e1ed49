package detect

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/solcloak/solcloak/internal/scan"
)

// Memo judgment thresholds.
const (
	memoDescriptiveMinLen      = 30
	memoDescriptiveMinKeywords = 2
)

const memoMitigation = "Never put personal or descriptive text in transaction memos; memos are public forever."

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?\d[\d\s\-().]{7,14}\d`)
	ssnPattern   = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
	cardPattern  = regexp.MustCompile(`\b(?:\d[ -]?){13,19}\b`)
	// Two capitalized words in a row, a weak personal-name heuristic.
	namePattern = regexp.MustCompile(`\b[A-Z][a-z]{2,}\s+[A-Z][a-z]{2,}\b`)
)

// descriptiveKeywords mark a memo as payment-context prose.
var descriptiveKeywords = []string{
	"payment", "invoice", "rent", "salary", "loan", "refund",
	"for", "from", "thanks", "deposit", "withdraw", "month",
}

// MemoExposure flags memos carrying PII or descriptive payment context.
// Memo text is always truncated in evidence; the full memo is already
// public, repeating it in reports adds nothing.
type MemoExposure struct{}

func (d *MemoExposure) ID() string   { return "memo_exposure" }
func (d *MemoExposure) Name() string { return "Memo Exposure" }

type memoFinding struct {
	kind     string
	severity scan.Severity
	reason   string
}

func (d *MemoExposure) Evaluate(sc *scan.Context) []scan.RiskSignal {
	// kind → evidence, preserving transaction order.
	hits := make(map[string][]scan.Evidence)
	reasons := make(map[string]memoFinding)

	for _, tx := range sc.Transactions {
		if tx.Memo == "" {
			continue
		}
		for _, f := range judgeMemo(tx.Memo) {
			hits[f.kind] = append(hits[f.kind], txEvidence(
				fmt.Sprintf("memo %q matches %s", truncateMemo(tx.Memo), f.reason), tx.Signature))
			reasons[f.kind] = f
		}
	}

	// Fixed kind order keeps output deterministic.
	var signals []scan.RiskSignal
	for _, kind := range []string{"email", "phone", "national_id", "card_number", "personal_name", "descriptive"} {
		evidence, ok := hits[kind]
		if !ok {
			continue
		}
		f := reasons[kind]
		signals = append(signals, scan.RiskSignal{
			ID:         d.ID() + ":" + kind,
			Name:       d.Name(),
			Severity:   f.severity,
			Category:   categoryMetadata,
			Reason:     fmt.Sprintf("%d memo(s) match %s", len(evidence), f.reason),
			Impact:     "Memo contents are public and permanently searchable; PII in a memo directly deanonymizes the parties.",
			Evidence:   capEvidence(evidence),
			Mitigation: memoMitigation,
			Confidence: memoConfidence(kind),
		})
	}
	return signals
}

func judgeMemo(memo string) []memoFinding {
	var findings []memoFinding
	if emailPattern.MatchString(memo) {
		findings = append(findings, memoFinding{"email", scan.SeverityHigh, "an email address pattern"})
	}
	if ssnPattern.MatchString(memo) {
		findings = append(findings, memoFinding{"national_id", scan.SeverityHigh, "a national-id pattern"})
	} else if cardPattern.MatchString(memo) {
		findings = append(findings, memoFinding{"card_number", scan.SeverityHigh, "a card-number-like digit run"})
	} else if phonePattern.MatchString(memo) {
		findings = append(findings, memoFinding{"phone", scan.SeverityHigh, "a phone-number pattern"})
	}
	if len(findings) > 0 {
		return findings
	}

	if namePattern.MatchString(memo) {
		return []memoFinding{{"personal_name", scan.SeverityMedium, "a personal-name pattern"}}
	}
	if isDescriptive(memo) {
		return []memoFinding{{"descriptive", scan.SeverityLow, "descriptive payment context"}}
	}
	return nil
}

// isDescriptive judges prose-like memos by length and keyword density.
func isDescriptive(memo string) bool {
	if len(memo) < memoDescriptiveMinLen {
		return false
	}
	lower := strings.ToLower(memo)
	matched := 0
	for _, kw := range descriptiveKeywords {
		if strings.Contains(lower, kw) {
			matched++
		}
	}
	return matched >= memoDescriptiveMinKeywords
}

func memoConfidence(kind string) float64 {
	switch kind {
	case "email", "national_id":
		return 0.95
	case "phone", "card_number":
		return 0.8
	case "personal_name":
		return 0.5
	default:
		return 0.6
	}
}

func truncateMemo(memo string) string {
	const max = 60
	if len(memo) <= max {
		return memo
	}
	return memo[:max] + "..."
}
