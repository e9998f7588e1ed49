package detect

import (
	"fmt"
	"sort"

	"github.com/solcloak/solcloak/internal/scan"
)

// Address/ATA linkage thresholds.
const (
	linkageMinTransfers    = 10  // diversity is meaningless below this
	linkageLowDiversity    = 0.2 // distinct counterparties / transfers
	linkageMediumDiversity = 0.4

	ataFunderMinOwners  = 2 // distinct owners funded by one wallet
	ataFunderHighOwners = 4
)

const (
	linkageDiversityMitigation = "Increase address diversity: rotate receiving addresses and avoid funneling all activity through one wallet."
	ataFunderMitigation        = "Fund token account creation from each owner's own wallet instead of one shared funder."
)

// AddressLinkage covers two related heuristics: low counterparty diversity
// over the observed window, and one funding wallet creating associated token
// accounts for multiple distinct owners.
type AddressLinkage struct{}

func (d *AddressLinkage) ID() string   { return "address_linkage" }
func (d *AddressLinkage) Name() string { return "Address Reuse & Linkage" }

func (d *AddressLinkage) Evaluate(sc *scan.Context) []scan.RiskSignal {
	var signals []scan.RiskSignal
	if s := d.diversity(sc); s != nil {
		signals = append(signals, *s)
	}
	signals = append(signals, d.ataFunding(sc)...)
	return signals
}

func (d *AddressLinkage) diversity(sc *scan.Context) *scan.RiskSignal {
	if len(sc.Transfers) < linkageMinTransfers || len(sc.Counterparties) == 0 {
		return nil
	}

	ratio := float64(len(sc.Counterparties)) / float64(len(sc.Transfers))
	if ratio >= linkageMediumDiversity {
		return nil
	}

	severity := scan.SeverityLow
	if ratio < linkageLowDiversity {
		severity = scan.SeverityMedium
	}

	evidence := make([]scan.Evidence, 0, len(sc.Counterparties))
	for _, addr := range sc.SortedCounterparties() {
		evidence = append(evidence, addrEvidence(
			fmt.Sprintf("counterparty seen %d time(s)", sc.Counterparties[addr]), addr))
	}

	return &scan.RiskSignal{
		ID:       d.ID() + ":diversity",
		Name:     d.Name(),
		Severity: severity,
		Category: categoryBehavior,
		Reason: fmt.Sprintf("only %d distinct counterparties across %d transfers (diversity %.2f)",
			len(sc.Counterparties), len(sc.Transfers), ratio),
		Impact:     "A small, stable counterparty set makes the wallet's transaction graph easy to fingerprint.",
		Evidence:   capEvidence(evidence),
		Mitigation: linkageDiversityMitigation,
		Confidence: clamp01(1 - ratio),
	}
}

func (d *AddressLinkage) ataFunding(sc *scan.Context) []scan.RiskSignal {
	payers := feePayerBySig(sc)

	// funder → distinct owner set (owner ≠ funder).
	owners := make(map[string]map[string]bool)
	events := make(map[string][]scan.Evidence)
	for _, ev := range sc.TokenAccountEvents {
		if ev.Type != scan.TokenEventCreate || ev.Owner == "" {
			continue
		}
		funder, ok := payers[ev.Signature]
		if !ok || funder == ev.Owner {
			continue
		}
		if owners[funder] == nil {
			owners[funder] = make(map[string]bool)
		}
		owners[funder][ev.Owner] = true
		events[funder] = append(events[funder], txEvidence(
			fmt.Sprintf("%s funded creation of token account %s owned by %s",
				funder, ev.TokenAccount, ev.Owner), ev.Signature))
	}

	funders := make([]string, 0, len(owners))
	for f := range owners {
		funders = append(funders, f)
	}
	sort.Strings(funders)

	var signals []scan.RiskSignal
	for _, funder := range funders {
		n := len(owners[funder])
		if n < ataFunderMinOwners {
			continue
		}
		severity := scan.SeverityMedium
		if n >= ataFunderHighOwners {
			severity = scan.SeverityHigh
		}
		signals = append(signals, scan.RiskSignal{
			ID:       d.ID() + ":ata_funder:" + funder,
			Name:     d.Name(),
			Severity: severity,
			Category: categoryLinkage,
			Reason: fmt.Sprintf("wallet %s funded associated token accounts for %d distinct owners",
				funder, n),
			Impact:     "Paying account creation for multiple wallets marks them as controlled or sponsored by the same party.",
			Evidence:   capEvidence(events[funder]),
			Mitigation: ataFunderMitigation,
			Confidence: clamp01(0.6 + 0.1*float64(n-ataFunderMinOwners)),
		})
	}
	return signals
}
