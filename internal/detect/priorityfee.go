package detect

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/solcloak/solcloak/internal/scan"
)

// Priority fee fingerprint thresholds.
const (
	priorityFeeMinRecurrence = 5  // 5-9 → LOW
	priorityFeeMediumCount   = 10 // ≥10 → MEDIUM
)

const priorityFeeMitigation = "Use your wallet's default or dynamic priority fees instead of a fixed custom value."

// PriorityFeeFingerprint flags a non-default compute-unit price recurring
// identically. A fixed custom fee is a client-configuration fingerprint.
type PriorityFeeFingerprint struct{}

func (d *PriorityFeeFingerprint) ID() string   { return "priority_fee_fingerprint" }
func (d *PriorityFeeFingerprint) Name() string { return "Priority Fee Fingerprinting" }

func (d *PriorityFeeFingerprint) Evaluate(sc *scan.Context) []scan.RiskSignal {
	sigs := make(map[uint64][]string)
	for _, tx := range sc.Transactions {
		if tx.PriorityFee == 0 {
			continue // zero is the default, not a fingerprint
		}
		sigs[tx.PriorityFee] = append(sigs[tx.PriorityFee], tx.Signature)
	}

	fees := make([]uint64, 0, len(sigs))
	for fee := range sigs {
		fees = append(fees, fee)
	}
	sort.Slice(fees, func(i, j int) bool { return fees[i] < fees[j] })

	var signals []scan.RiskSignal
	for _, fee := range fees {
		txs := sigs[fee]
		if len(txs) < priorityFeeMinRecurrence {
			continue
		}

		severity := scan.SeverityLow
		if len(txs) >= priorityFeeMediumCount {
			severity = scan.SeverityMedium
		}

		evidence := make([]scan.Evidence, 0, len(txs))
		for _, sig := range txs {
			evidence = append(evidence, txEvidence(
				fmt.Sprintf("priority fee of %d microlamports/CU", fee), sig))
		}

		signals = append(signals, scan.RiskSignal{
			ID:       d.ID() + ":" + strconv.FormatUint(fee, 10),
			Name:     d.Name(),
			Severity: severity,
			Category: categoryBehavior,
			Reason: fmt.Sprintf("the exact priority fee %d microlamports/CU recurs across %d transactions",
				fee, len(txs)),
			Impact:     "An identical custom fee value groups transactions sent by the same client configuration.",
			Evidence:   capEvidence(evidence),
			Mitigation: priorityFeeMitigation,
			Confidence: clamp01(0.4 + 0.05*float64(len(txs))),
		})
	}
	return signals
}
