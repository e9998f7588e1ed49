package detect

import (
	"fmt"
	"sort"
	"strings"

	"github.com/solcloak/solcloak/internal/scan"
)

// Signer overlap thresholds.
const (
	signerOverlapMinSigners    = 2 // only multi-signer sets are meaningful
	signerOverlapMinRecurrence = 3
	signerOverlapHighCount     = 8
)

const signerOverlapMitigation = "Avoid reusing the same co-signer set across unrelated transactions; rotate multisig participants where possible."

// SignerOverlap flags an identical multi-signer set recurring across
// transactions. The set is hashed order-independently as a sorted tuple.
type SignerOverlap struct{}

func (d *SignerOverlap) ID() string   { return "signer_overlap" }
func (d *SignerOverlap) Name() string { return "Signer Overlap" }

func (d *SignerOverlap) Evaluate(sc *scan.Context) []scan.RiskSignal {
	type group struct {
		signers []string
		sigs    []string
	}
	groups := make(map[string]*group)

	for _, tx := range sc.Transactions {
		if len(tx.Signers) < signerOverlapMinSigners {
			continue
		}
		set := append([]string(nil), tx.Signers...)
		sort.Strings(set)
		key := strings.Join(set, ",")
		g, ok := groups[key]
		if !ok {
			g = &group{signers: set}
			groups[key] = g
		}
		g.sigs = append(g.sigs, tx.Signature)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var signals []scan.RiskSignal
	for _, key := range keys {
		g := groups[key]
		if len(g.sigs) < signerOverlapMinRecurrence {
			continue
		}

		severity := scan.SeverityMedium
		if len(g.sigs) >= signerOverlapHighCount {
			severity = scan.SeverityHigh
		}

		evidence := make([]scan.Evidence, 0, len(g.sigs))
		for _, sig := range g.sigs {
			evidence = append(evidence, txEvidence(
				fmt.Sprintf("signed by the same %d-signer set", len(g.signers)), sig))
		}

		signals = append(signals, scan.RiskSignal{
			ID:       d.ID() + ":" + g.signers[0],
			Name:     d.Name(),
			Severity: severity,
			Category: categoryLinkage,
			Reason: fmt.Sprintf("the signer set {%s} recurs across %d transactions",
				strings.Join(g.signers, ", "), len(g.sigs)),
			Impact:     "A recurring co-signer set links every transaction it touches to the same group of key holders.",
			Evidence:   capEvidence(evidence),
			Mitigation: signerOverlapMitigation,
			Confidence: clamp01(0.6 + 0.05*float64(len(g.sigs))),
		})
	}
	return signals
}
