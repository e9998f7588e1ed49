package detect

import (
	"fmt"
	"testing"

	"github.com/solcloak/solcloak/internal/scan"
)

func counterpartyContext(counts map[string]int) *scan.Context {
	sc := &scan.Context{Counterparties: counts}
	for addr, n := range counts {
		for i := 0; i < n; i++ {
			sc.Transfers = append(sc.Transfers, scan.Transfer{
				From: "Target", To: addr, Amount: 1,
				Signature: fmt.Sprintf("%s-%d", addr, i),
			})
		}
	}
	return sc
}

func TestCounterpartyReuse_Bands(t *testing.T) {
	d := &CounterpartyReuse{}

	tests := []struct {
		name  string
		count int
		want  scan.Severity
	}{
		{"single occurrence", 1, ""},
		{"low band", 2, scan.SeverityLow},
		{"medium band", 5, scan.SeverityMedium},
		{"high band", 10, scan.SeverityHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signals := d.Evaluate(counterpartyContext(map[string]int{"Addr": tt.count}))
			if tt.want == "" {
				if len(signals) != 0 {
					t.Fatalf("got %d signals, want none", len(signals))
				}
				return
			}
			if len(signals) != 1 {
				t.Fatalf("got %d signals, want 1", len(signals))
			}
			if signals[0].Severity != tt.want {
				t.Errorf("got severity %s, want %s", signals[0].Severity, tt.want)
			}
		})
	}
}

func TestCounterpartyReuse_CapsSignalCount(t *testing.T) {
	counts := make(map[string]int)
	for i := 0; i < 8; i++ {
		counts[fmt.Sprintf("Addr%d", i)] = 3
	}
	signals := (&CounterpartyReuse{}).Evaluate(counterpartyContext(counts))
	if len(signals) != maxCounterpartySignals {
		t.Errorf("got %d signals, want cap of %d", len(signals), maxCounterpartySignals)
	}
}

func TestCounterpartyReuse_HighestCountsFirst(t *testing.T) {
	signals := (&CounterpartyReuse{}).Evaluate(counterpartyContext(map[string]int{
		"Rare":     2,
		"Frequent": 11,
	}))
	if len(signals) != 2 {
		t.Fatalf("got %d signals, want 2", len(signals))
	}
	if signals[0].ID != "counterparty_reuse:Frequent" {
		t.Errorf("got first signal %q, want the most frequent counterparty", signals[0].ID)
	}
}

func TestCounterpartyReuse_PDATouchesCount(t *testing.T) {
	// A vault reached only through program instructions, never transfers.
	sc := &scan.Context{}
	for i := 0; i < counterpartyReuseHigh; i++ {
		sc.PDAInteractions = append(sc.PDAInteractions, scan.PDAInteraction{
			PDA:       "Vault",
			ProgramID: "Prog",
			Signature: fmt.Sprintf("sig-%d", i),
		})
	}

	signals := (&CounterpartyReuse{}).Evaluate(sc)
	if len(signals) != 1 {
		t.Fatalf("got %d signals, want 1", len(signals))
	}
	if signals[0].ID != "counterparty_reuse:Vault" {
		t.Errorf("got signal %q, want counterparty_reuse:Vault", signals[0].ID)
	}
	if signals[0].Severity != scan.SeverityHigh {
		t.Errorf("got severity %s, want %s", signals[0].Severity, scan.SeverityHigh)
	}
	if len(signals[0].Evidence) != counterpartyReuseHigh {
		t.Errorf("got %d evidence entries, want %d", len(signals[0].Evidence), counterpartyReuseHigh)
	}
}

func TestCounterpartyReuse_MergesTransfersAndPDATouches(t *testing.T) {
	// 3 transfers plus 2 instruction touches of the same vault reach the
	// medium band together.
	sc := counterpartyContext(map[string]int{"Vault": 3})
	for i := 0; i < 2; i++ {
		sc.PDAInteractions = append(sc.PDAInteractions, scan.PDAInteraction{
			PDA:       "Vault",
			ProgramID: "Prog",
			Signature: fmt.Sprintf("pda-sig-%d", i),
		})
	}

	signals := (&CounterpartyReuse{}).Evaluate(sc)
	if len(signals) != 1 {
		t.Fatalf("got %d signals, want 1", len(signals))
	}
	if signals[0].Severity != scan.SeverityMedium {
		t.Errorf("got severity %s, want %s", signals[0].Severity, scan.SeverityMedium)
	}
	if len(signals[0].Evidence) != 5 {
		t.Errorf("got %d evidence entries, want 5", len(signals[0].Evidence))
	}
}
