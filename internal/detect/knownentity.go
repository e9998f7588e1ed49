package detect

import (
	"fmt"
	"sort"

	"github.com/solcloak/solcloak/internal/labels"
	"github.com/solcloak/solcloak/internal/scan"
)

const knownEntityMitigation = "Interactions with labeled entities are visible to anyone; use an intermediate wallet when depositing to exchanges or bridges."

// KnownEntity flags counterparties that resolve in the label database.
// Exchanges are top band (KYC endpoints tie the wallet to a legal identity),
// bridges mid, protocols and programs low.
type KnownEntity struct{}

func (d *KnownEntity) ID() string   { return "known_entity" }
func (d *KnownEntity) Name() string { return "Known Entity Interaction" }

func (d *KnownEntity) Evaluate(sc *scan.Context) []scan.RiskSignal {
	if len(sc.Labels) == 0 {
		return nil
	}

	byType := make(map[labels.Type][]*labels.Label)
	addrs := make([]string, 0, len(sc.Labels))
	for addr := range sc.Labels {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	for _, addr := range addrs {
		l := sc.Labels[addr]
		byType[l.Type] = append(byType[l.Type], l)
	}

	// Fixed type order; highest severity first.
	order := []labels.Type{
		labels.TypeExchange, labels.TypeMixer, labels.TypeBridge,
		labels.TypeProtocol, labels.TypeProgram, labels.TypeValidator,
		labels.TypeWallet, labels.TypeOther,
	}

	var signals []scan.RiskSignal
	for _, typ := range order {
		group := byType[typ]
		if len(group) == 0 {
			continue
		}

		evidence := make([]scan.Evidence, 0, len(group))
		for _, l := range group {
			evidence = append(evidence, addrEvidence(
				fmt.Sprintf("counterparty is %s (%s)", l.Name, l.Type), l.Address))
		}

		signals = append(signals, scan.RiskSignal{
			ID:       d.ID() + ":" + string(typ),
			Name:     d.Name(),
			Severity: severityForEntityType(typ),
			Category: categoryLinkage,
			Reason: fmt.Sprintf("%d counterpart%s identified as known %s entities",
				len(group), plural(len(group), "y", "ies"), typ),
			Impact:     entityImpact(typ),
			Evidence:   capEvidence(evidence),
			Mitigation: knownEntityMitigation,
			Confidence: 0.95, // the label database is curated
		})
	}
	return signals
}

func severityForEntityType(typ labels.Type) scan.Severity {
	switch typ {
	case labels.TypeExchange, labels.TypeMixer:
		return scan.SeverityHigh
	case labels.TypeBridge:
		return scan.SeverityMedium
	default:
		return scan.SeverityLow
	}
}

func entityImpact(typ labels.Type) string {
	switch typ {
	case labels.TypeExchange:
		return "Exchange deposits link the wallet to a KYC-verified identity held by the exchange."
	case labels.TypeMixer:
		return "Mixer interaction draws scrutiny and may taint the wallet in compliance screens."
	case labels.TypeBridge:
		return "Bridge usage connects this wallet to activity on other chains, widening the clustering surface."
	default:
		return "Interaction with a publicly identified entity narrows the anonymity set of this wallet."
	}
}

func plural(n int, singular, pluralForm string) string {
	if n == 1 {
		return singular
	}
	return pluralForm
}
