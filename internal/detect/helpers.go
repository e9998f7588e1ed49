package detect

import (
	"fmt"
	"sort"

	"github.com/solcloak/solcloak/internal/scan"
)

// Signal categories shared across detectors.
const (
	categoryLinkage  = "identity_linkage"
	categoryMetadata = "metadata_leak"
	categoryBehavior = "behavioral_pattern"
)

// maxEvidencePerSignal caps evidence lists so a busy wallet does not produce
// megabyte reports. The full count is always stated in the reason text.
const maxEvidencePerSignal = 25

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// txEvidence builds a signature-referencing evidence entry.
func txEvidence(description, signature string) scan.Evidence {
	return scan.Evidence{
		Description: description,
		Type:        "transaction",
		Reference:   signature,
	}
}

// addrEvidence builds an address-referencing evidence entry.
func addrEvidence(description, address string) scan.Evidence {
	return scan.Evidence{
		Description: description,
		Type:        "address",
		Reference:   address,
	}
}

func capEvidence(ev []scan.Evidence) []scan.Evidence {
	if len(ev) <= maxEvidencePerSignal {
		return ev
	}
	capped := make([]scan.Evidence, maxEvidencePerSignal, maxEvidencePerSignal+1)
	copy(capped, ev[:maxEvidencePerSignal])
	capped = append(capped, scan.Evidence{
		Description: fmt.Sprintf("... and %d more", len(ev)-maxEvidencePerSignal),
	})
	return capped
}

// feePayerBySig indexes transactions by signature for joins.
func feePayerBySig(sc *scan.Context) map[string]string {
	m := make(map[string]string, len(sc.Transactions))
	for _, tx := range sc.Transactions {
		if tx.FeePayer != "" {
			m[tx.Signature] = tx.FeePayer
		}
	}
	return m
}

// sortedByCountDesc returns map keys ordered by count descending, ties
// broken lexicographically, so evidence order never depends on map
// iteration.
func sortedByCountDesc(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}

// blockTimes collects non-nil block times in ascending order.
func blockTimes(sc *scan.Context) []int64 {
	times := make([]int64, 0, len(sc.Transactions))
	for _, tx := range sc.Transactions {
		if tx.BlockTime != nil {
			times = append(times, *tx.BlockTime)
		}
	}
	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })
	return times
}
