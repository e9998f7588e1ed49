package detect

import (
	"fmt"
	"sort"

	"github.com/solcloak/solcloak/internal/scan"
)

// Dust attack thresholds.
const (
	dustMaxAmountSOL = 0.001 // native transfers below this are dust
	dustMinSenders   = 5
	dustHighSenders  = 10
)

const dustMitigation = "Never move or consolidate received dust; leave it untouched so it cannot link your wallets."

// DustAttack flags many tiny inbound native transfers from distinct senders.
// Tracking services send dust and watch where it is swept to cluster wallets.
type DustAttack struct{}

func (d *DustAttack) ID() string   { return "dust_attack" }
func (d *DustAttack) Name() string { return "Dusting Activity" }

func (d *DustAttack) Evaluate(sc *scan.Context) []scan.RiskSignal {
	if sc.TargetType != scan.TargetWallet || sc.Target == "" {
		return nil
	}

	senders := make(map[string]bool)
	var evidence []scan.Evidence
	for _, t := range sc.Transfers {
		if t.To != sc.Target || t.Token != "" || t.From == "" {
			continue
		}
		if t.Amount <= 0 || t.Amount >= dustMaxAmountSOL {
			continue
		}
		senders[t.From] = true
		evidence = append(evidence, txEvidence(
			fmt.Sprintf("dust transfer of %.9f SOL from %s", t.Amount, t.From), t.Signature))
	}

	if len(senders) < dustMinSenders {
		return nil
	}

	severity := scan.SeverityLow
	if len(senders) >= dustHighSenders {
		severity = scan.SeverityMedium
	}

	senderList := make([]string, 0, len(senders))
	for s := range senders {
		senderList = append(senderList, s)
	}
	sort.Strings(senderList)

	return []scan.RiskSignal{{
		ID:       d.ID(),
		Name:     d.Name(),
		Severity: severity,
		Category: categoryBehavior,
		Reason: fmt.Sprintf("%d distinct senders delivered sub-%.3f SOL dust to this wallet",
			len(senderList), dustMaxAmountSOL),
		Impact:     "Dust outputs are trackers: spending or sweeping them links this wallet to every other wallet in the sweep.",
		Evidence:   capEvidence(evidence),
		Mitigation: dustMitigation,
		Confidence: clamp01(0.5 + 0.04*float64(len(senderList))),
	}}
}
