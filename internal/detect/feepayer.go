package detect

import (
	"fmt"
	"sort"

	"github.com/solcloak/solcloak/internal/scan"
)

// Fee payer reuse thresholds.
const (
	feePayerReuseMinAccounts  = 2 // distinct funded accounts to signal at all
	feePayerReuseHighAccounts = 3 // distinct funded accounts for the top band
)

const feePayerReuseMitigation = "Use a separate fee payer per account, or fund each wallet's fees from its own balance."

// FeePayerReuse flags one fee payer funding transactions whose principal
// actor differs from the fee payer across multiple distinct accounts. This
// is the strongest clustering heuristic on Solana: a shared fee payer ties
// otherwise unrelated wallets to one operator.
type FeePayerReuse struct{}

func (d *FeePayerReuse) ID() string   { return "fee_payer_reuse" }
func (d *FeePayerReuse) Name() string { return "Fee Payer Reuse" }

func (d *FeePayerReuse) Evaluate(sc *scan.Context) []scan.RiskSignal {
	payers := feePayerBySig(sc)
	if len(payers) == 0 {
		return nil
	}

	// feePayer → funded account → signatures, preserving first-seen order
	// of signatures for evidence.
	funded := make(map[string]map[string][]string)
	for _, t := range sc.Transfers {
		payer, ok := payers[t.Signature]
		if !ok || t.From == "" || t.From == payer {
			continue
		}
		accounts, ok := funded[payer]
		if !ok {
			accounts = make(map[string][]string)
			funded[payer] = accounts
		}
		if !containsString(accounts[t.From], t.Signature) {
			accounts[t.From] = append(accounts[t.From], t.Signature)
		}
	}

	payerAddrs := make([]string, 0, len(funded))
	for p := range funded {
		payerAddrs = append(payerAddrs, p)
	}
	sort.Strings(payerAddrs)

	var signals []scan.RiskSignal
	for _, payer := range payerAddrs {
		accounts := funded[payer]
		if len(accounts) < feePayerReuseMinAccounts {
			continue
		}

		severity := scan.SeverityMedium
		if len(accounts) >= feePayerReuseHighAccounts {
			severity = scan.SeverityHigh
		}

		accountAddrs := make([]string, 0, len(accounts))
		for a := range accounts {
			accountAddrs = append(accountAddrs, a)
		}
		sort.Strings(accountAddrs)

		var evidence []scan.Evidence
		for _, acct := range accountAddrs {
			for _, sig := range accounts[acct] {
				evidence = append(evidence, txEvidence(
					fmt.Sprintf("fee payer %s paid for a transaction acting as %s", payer, acct), sig))
			}
		}

		signals = append(signals, scan.RiskSignal{
			ID:       d.ID() + ":" + payer,
			Name:     d.Name(),
			Severity: severity,
			Category: categoryLinkage,
			Reason: fmt.Sprintf("fee payer %s funded transactions for %d distinct accounts",
				payer, len(accounts)),
			Impact:     "A shared fee payer links all funded accounts to a single operator and defeats wallet separation.",
			Evidence:   capEvidence(evidence),
			Mitigation: feePayerReuseMitigation,
			Confidence: clamp01(0.7 + 0.1*float64(len(accounts)-feePayerReuseMinAccounts)),
		})
	}
	return signals
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
