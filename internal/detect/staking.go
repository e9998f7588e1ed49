package detect

import (
	"fmt"

	"github.com/solcloak/solcloak/internal/scan"
)

// Staking concentration thresholds.
const (
	stakingMinDelegations    = 3
	stakingLowConcentration  = 0.5 // share of delegations on the top validator
	stakingHighConcentration = 0.75
)

const stakingMitigation = "Spread stake across more validators, or stake through a liquid-staking pool."

// StakingConcentration flags stake delegation concentrated on a small
// validator set. A distinctive validator footprint links stake accounts to
// the same delegator.
type StakingConcentration struct{}

func (d *StakingConcentration) ID() string   { return "staking_concentration" }
func (d *StakingConcentration) Name() string { return "Staking Delegation Concentration" }

func (d *StakingConcentration) Evaluate(sc *scan.Context) []scan.RiskSignal {
	if len(sc.Delegations) < stakingMinDelegations {
		return nil
	}

	perValidator := make(map[string]int)
	for _, del := range sc.Delegations {
		perValidator[del.VoteAccount]++
	}

	validators := sortedByCountDesc(perValidator)
	top := validators[0]
	ratio := float64(perValidator[top]) / float64(len(sc.Delegations))
	if ratio < stakingLowConcentration {
		return nil
	}

	severity := scan.SeverityLow
	if ratio >= stakingHighConcentration {
		severity = scan.SeverityMedium
	}

	var evidence []scan.Evidence
	for _, del := range sc.Delegations {
		if del.VoteAccount == top {
			evidence = append(evidence, txEvidence(
				fmt.Sprintf("stake account %s delegated to validator %s", del.StakeAccount, top),
				del.Signature))
		}
	}

	return []scan.RiskSignal{{
		ID:       d.ID() + ":" + top,
		Name:     d.Name(),
		Severity: severity,
		Category: categoryBehavior,
		Reason: fmt.Sprintf("%d of %d observed delegations target validator %s (%.0f%%)",
			perValidator[top], len(sc.Delegations), top, ratio*100),
		Impact:     "A concentrated validator choice is a stable preference that links stake accounts to one delegator.",
		Evidence:   capEvidence(evidence),
		Mitigation: stakingMitigation,
		Confidence: clamp01(ratio),
	}}
}
