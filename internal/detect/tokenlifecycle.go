package detect

import (
	"fmt"
	"sort"

	"github.com/solcloak/solcloak/internal/scan"
)

// Token lifecycle thresholds.
const (
	rentRefundMinAccounts  = 2 // distinct closed token accounts refunding one address
	rentRefundHighAccounts = 5
)

const tokenLifecycleMitigation = "Send rent refunds from closed token accounts to the owning wallet, not to a shared collection address."

// TokenLifecycle flags close events whose rent refund lands on the same
// address across multiple distinct token accounts. A shared refund sink
// links every closed account to one collector wallet.
type TokenLifecycle struct{}

func (d *TokenLifecycle) ID() string   { return "token_lifecycle" }
func (d *TokenLifecycle) Name() string { return "Token Account Lifecycle" }

func (d *TokenLifecycle) Evaluate(sc *scan.Context) []scan.RiskSignal {
	// refund destination → distinct token accounts, plus evidence in event order.
	accounts := make(map[string]map[string]bool)
	evidence := make(map[string][]scan.Evidence)
	for _, ev := range sc.TokenAccountEvents {
		if ev.Type != scan.TokenEventClose || ev.RentRefund == "" {
			continue
		}
		if accounts[ev.RentRefund] == nil {
			accounts[ev.RentRefund] = make(map[string]bool)
		}
		accounts[ev.RentRefund][ev.TokenAccount] = true
		evidence[ev.RentRefund] = append(evidence[ev.RentRefund], txEvidence(
			fmt.Sprintf("token account %s closed with rent refunded to %s",
				ev.TokenAccount, ev.RentRefund), ev.Signature))
	}

	dests := make([]string, 0, len(accounts))
	for dest := range accounts {
		dests = append(dests, dest)
	}
	sort.Strings(dests)

	var signals []scan.RiskSignal
	for _, dest := range dests {
		n := len(accounts[dest])
		if n < rentRefundMinAccounts {
			continue
		}

		severity := scan.SeverityMedium
		if n >= rentRefundHighAccounts {
			severity = scan.SeverityHigh
		}

		signals = append(signals, scan.RiskSignal{
			ID:       d.ID() + ":" + dest,
			Name:     d.Name(),
			Severity: severity,
			Category: categoryLinkage,
			Reason: fmt.Sprintf("rent from %d distinct closed token accounts was refunded to %s",
				n, dest),
			Impact:     "A common rent-refund destination ties every closed token account to one collector wallet.",
			Evidence:   capEvidence(evidence[dest]),
			Mitigation: tokenLifecycleMitigation,
			Confidence: clamp01(0.6 + 0.1*float64(n-rentRefundMinAccounts)),
		})
	}
	return signals
}
