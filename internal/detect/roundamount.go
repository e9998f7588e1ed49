package detect

import (
	"fmt"
	"math"

	"github.com/solcloak/solcloak/internal/scan"
)

// Round amount thresholds.
const (
	roundAmountMinTransfers = 5
	roundAmountMinShare     = 0.5 // share of round-valued transfers to signal
	roundAmountMinValue     = 1.0 // ignore sub-unit transfers
)

const roundAmountMitigation = "Use non-round amounts; exact round figures are easy to match across hops."

// RoundAmount flags a habit of sending conspicuously round amounts
// (whole or half units). Round figures survive intermediate hops and make
// amount-matching across wallets trivial.
type RoundAmount struct{}

func (d *RoundAmount) ID() string   { return "round_amount" }
func (d *RoundAmount) Name() string { return "Round Amount Habit" }

func (d *RoundAmount) Evaluate(sc *scan.Context) []scan.RiskSignal {
	var total int
	var evidence []scan.Evidence
	for _, t := range sc.Transfers {
		if t.Amount < roundAmountMinValue {
			continue
		}
		total++
		if isRound(t.Amount) {
			evidence = append(evidence, txEvidence(
				fmt.Sprintf("round transfer amount %g", t.Amount), t.Signature))
		}
	}

	if total < roundAmountMinTransfers {
		return nil
	}
	share := float64(len(evidence)) / float64(total)
	if share < roundAmountMinShare {
		return nil
	}

	return []scan.RiskSignal{{
		ID:       d.ID(),
		Name:     d.Name(),
		Severity: scan.SeverityLow,
		Category: categoryBehavior,
		Reason: fmt.Sprintf("%d of %d sizable transfers use round amounts (%.0f%%)",
			len(evidence), total, share*100),
		Impact:     "Round amounts are rare in organic flows and let observers match a payment across intermediate wallets.",
		Evidence:   capEvidence(evidence),
		Mitigation: roundAmountMitigation,
		Confidence: clamp01(share * 0.8),
	}}
}

// isRound reports whether v is a whole or half unit.
func isRound(v float64) bool {
	scaled := v * 2
	return math.Abs(scaled-math.Round(scaled)) < 1e-9
}
