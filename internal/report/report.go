// Package report aggregates detector signals into the final privacy report.
//
// Generation is pure and deterministic: the same context always produces the
// same report except for the timestamp field.
package report

import (
	"sort"
	"time"

	"github.com/solcloak/solcloak/internal/detect"
	"github.com/solcloak/solcloak/internal/labels"
	"github.com/solcloak/solcloak/internal/scan"
)

// Generate runs the default detector registry over the context and
// aggregates the result.
func Generate(sc *scan.Context) *scan.PrivacyReport {
	return GenerateWith(detect.Default(), sc)
}

// GenerateWith runs the given registry. Signals arrive in canonical order
// (registry order, then signal id) from the registry itself.
func GenerateWith(registry *detect.Registry, sc *scan.Context) *scan.PrivacyReport {
	signals := registry.EvaluateParallel(sc)

	summary := scan.ReportSummary{
		TotalSignals:         len(signals),
		TransactionsAnalyzed: sc.TransactionCount,
	}
	for _, s := range signals {
		switch s.Severity {
		case scan.SeverityHigh:
			summary.HighRiskSignals++
		case scan.SeverityMedium:
			summary.MediumRiskSignals++
		case scan.SeverityLow:
			summary.LowRiskSignals++
		}
	}

	return &scan.PrivacyReport{
		Version:       scan.ReportVersion,
		Timestamp:     time.Now().UTC(),
		TargetType:    sc.TargetType,
		Target:        sc.Target,
		OverallRisk:   OverallRisk(summary.HighRiskSignals, summary.MediumRiskSignals, summary.LowRiskSignals),
		Signals:       signals,
		Summary:       summary,
		Mitigations:   dedupMitigations(signals),
		KnownEntities: knownEntities(sc),
	}
}

// OverallRisk applies the aggregation rule:
//
//	HIGH   if high ≥ 2, or high ≥ 1 and medium ≥ 2
//	MEDIUM if high ≥ 1, or medium ≥ 2, or medium ≥ 1 and low ≥ 2
//	LOW    otherwise
func OverallRisk(high, medium, low int) scan.Severity {
	switch {
	case high >= 2 || (high >= 1 && medium >= 2):
		return scan.SeverityHigh
	case high >= 1 || medium >= 2 || (medium >= 1 && low >= 2):
		return scan.SeverityMedium
	default:
		return scan.SeverityLow
	}
}

// dedupMitigations returns each distinct mitigation string once, in
// first-seen order.
func dedupMitigations(signals []scan.RiskSignal) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(signals))
	for _, s := range signals {
		if s.Mitigation == "" || seen[s.Mitigation] {
			continue
		}
		seen[s.Mitigation] = true
		result = append(result, s.Mitigation)
	}
	return result
}

// entityTypeOrder fixes the presentation grouping of known entities.
var entityTypeOrder = map[labels.Type]int{
	labels.TypeExchange:  0,
	labels.TypeMixer:     1,
	labels.TypeBridge:    2,
	labels.TypeProtocol:  3,
	labels.TypeProgram:   4,
	labels.TypeValidator: 5,
	labels.TypeWallet:    6,
	labels.TypeOther:     7,
}

// knownEntities flattens the context's resolved labels, deduplicated and
// grouped by type, ties broken by address.
func knownEntities(sc *scan.Context) []scan.KnownEntity {
	entities := make([]scan.KnownEntity, 0, len(sc.Labels))
	seen := make(map[string]bool)
	for _, addr := range sortedLabelAddrs(sc) {
		l := sc.Labels[addr]
		if l == nil || seen[l.Address] {
			continue
		}
		seen[l.Address] = true
		entities = append(entities, scan.KnownEntity{
			Address:     l.Address,
			Name:        l.Name,
			Type:        l.Type,
			Description: l.Description,
		})
	}
	sort.SliceStable(entities, func(i, j int) bool {
		oi, oj := entityTypeOrder[entities[i].Type], entityTypeOrder[entities[j].Type]
		if oi != oj {
			return oi < oj
		}
		return entities[i].Address < entities[j].Address
	})
	return entities
}

func sortedLabelAddrs(sc *scan.Context) []string {
	addrs := make([]string, 0, len(sc.Labels))
	for addr := range sc.Labels {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	return addrs
}
