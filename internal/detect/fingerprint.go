package detect

import (
	"fmt"
	"sort"
	"strings"

	"github.com/solcloak/solcloak/internal/scan"
)

// Instruction fingerprint thresholds.
const (
	fingerprintMinLength     = 2  // single-instruction shapes are too common
	fingerprintMinRecurrence = 5  // 5-9 → LOW
	fingerprintMediumCount   = 10 // ≥10 → MEDIUM
)

const fingerprintMitigation = "Vary transaction construction (instruction order, batching) or use a client that randomizes it."

// InstructionFingerprint flags a specific ordered (programId, category)
// combination recurring identically across many transactions. Custom tooling
// tends to build byte-identical transaction shapes, which fingerprints the
// tool and therefore its operator.
type InstructionFingerprint struct{}

func (d *InstructionFingerprint) ID() string   { return "instruction_fingerprint" }
func (d *InstructionFingerprint) Name() string { return "Instruction Fingerprinting" }

func (d *InstructionFingerprint) Evaluate(sc *scan.Context) []scan.RiskSignal {
	// signature → ordered (programId, category) shape.
	shapes := make(map[string][]string)
	var sigOrder []string
	for _, ix := range sc.Instructions {
		if _, seen := shapes[ix.Signature]; !seen {
			sigOrder = append(sigOrder, ix.Signature)
		}
		shapes[ix.Signature] = append(shapes[ix.Signature],
			ix.ProgramID+"/"+string(ix.Category))
	}

	// shape key → signatures, in first-seen order.
	recurrence := make(map[string][]string)
	for _, sig := range sigOrder {
		shape := shapes[sig]
		if len(shape) < fingerprintMinLength {
			continue
		}
		key := strings.Join(shape, "|")
		recurrence[key] = append(recurrence[key], sig)
	}

	keys := make([]string, 0, len(recurrence))
	for k := range recurrence {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var signals []scan.RiskSignal
	for _, key := range keys {
		sigs := recurrence[key]
		if len(sigs) < fingerprintMinRecurrence {
			continue
		}

		severity := scan.SeverityLow
		if len(sigs) >= fingerprintMediumCount {
			severity = scan.SeverityMedium
		}

		evidence := make([]scan.Evidence, 0, len(sigs))
		for _, sig := range sigs {
			evidence = append(evidence, txEvidence("transaction matches the recurring instruction shape", sig))
		}

		signals = append(signals, scan.RiskSignal{
			ID:       d.ID() + ":" + shortHash(key),
			Name:     d.Name(),
			Severity: severity,
			Category: categoryBehavior,
			Reason: fmt.Sprintf("an identical %d-instruction shape recurs across %d transactions",
				len(strings.Split(key, "|")), len(sigs)),
			Impact:     "A repeating instruction shape fingerprints the client software and groups its transactions together.",
			Evidence:   capEvidence(evidence),
			Mitigation: fingerprintMitigation,
			Confidence: clamp01(0.4 + 0.04*float64(len(sigs))),
		})
	}
	return signals
}

// shortHash derives a stable short id from a shape key (FNV-1a).
func shortHash(s string) string {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return fmt.Sprintf("%08x", h)
}
