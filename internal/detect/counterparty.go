package detect

import (
	"fmt"

	"github.com/solcloak/solcloak/internal/scan"
)

// Counterparty reuse bands. PDA and vault addresses count like any other
// counterparty, so program-mediated reuse is caught too.
const (
	counterpartyReuseMin    = 2  // below this, no signal
	counterpartyReuseMedium = 5  // 5-9 → MEDIUM
	counterpartyReuseHigh   = 10 // ≥10 → HIGH
	maxCounterpartySignals  = 5  // cap per scan, highest counts win
)

const counterpartyReuseMitigation = "Spread repeated payments across fresh addresses, or route recurring flows through an intermediary."

// CounterpartyReuse flags frequent transfers to or from one counterparty.
type CounterpartyReuse struct{}

func (d *CounterpartyReuse) ID() string   { return "counterparty_reuse" }
func (d *CounterpartyReuse) Name() string { return "Counterparty Reuse" }

func (d *CounterpartyReuse) Evaluate(sc *scan.Context) []scan.RiskSignal {
	// Transfer counterparties and touched PDAs feed one merged count, so a
	// vault reached only through program instructions still accumulates.
	counts := make(map[string]int, len(sc.Counterparties)+len(sc.PDAInteractions))
	for addr, n := range sc.Counterparties {
		counts[addr] = n
	}
	for _, p := range sc.PDAInteractions {
		counts[p.PDA]++
	}
	if len(counts) == 0 {
		return nil
	}

	var signals []scan.RiskSignal
	for _, addr := range sortedByCountDesc(counts) {
		if len(signals) >= maxCounterpartySignals {
			break
		}
		count := counts[addr]
		if count < counterpartyReuseMin {
			break // sorted descending, nothing further qualifies
		}

		severity := scan.SeverityLow
		switch {
		case count >= counterpartyReuseHigh:
			severity = scan.SeverityHigh
		case count >= counterpartyReuseMedium:
			severity = scan.SeverityMedium
		}

		var evidence []scan.Evidence
		for _, t := range sc.Transfers {
			if t.From == addr || t.To == addr {
				evidence = append(evidence, txEvidence(
					fmt.Sprintf("transfer involving counterparty %s", addr), t.Signature))
			}
		}
		for _, p := range sc.PDAInteractions {
			if p.PDA == addr {
				evidence = append(evidence, txEvidence(
					fmt.Sprintf("instruction touching %s via program %s", addr, p.ProgramID), p.Signature))
			}
		}

		signals = append(signals, scan.RiskSignal{
			ID:       d.ID() + ":" + addr,
			Name:     d.Name(),
			Severity: severity,
			Category: categoryBehavior,
			Reason: fmt.Sprintf("counterparty %s appears %d times across transfers and program interactions",
				addr, count),
			Impact:     "Repeated flows to one counterparty form a stable edge in the transaction graph that clustering tools exploit.",
			Evidence:   capEvidence(evidence),
			Mitigation: counterpartyReuseMitigation,
			Confidence: clamp01(0.5 + 0.05*float64(count)),
		})
	}
	return signals
}
