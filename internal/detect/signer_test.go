package detect

import (
	"fmt"
	"testing"

	"github.com/solcloak/solcloak/internal/scan"
)

func signerContext(repeats int, signers ...string) *scan.Context {
	sc := &scan.Context{}
	for i := 0; i < repeats; i++ {
		sc.Transactions = append(sc.Transactions, scan.TransactionMeta{
			Signature: fmt.Sprintf("sig%d", i),
			Signers:   signers,
		})
	}
	return sc
}

func TestSignerOverlap_Bands(t *testing.T) {
	d := &SignerOverlap{}

	tests := []struct {
		name    string
		repeats int
		signers []string
		want    scan.Severity
	}{
		{"single signer never signals", 10, []string{"A"}, ""},
		{"below recurrence threshold", 2, []string{"A", "B"}, ""},
		{"three recurrences", 3, []string{"A", "B"}, scan.SeverityMedium},
		{"eight recurrences", 8, []string{"A", "B"}, scan.SeverityHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signals := d.Evaluate(signerContext(tt.repeats, tt.signers...))
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

func TestSignerOverlap_OrderIndependentGrouping(t *testing.T) {
	// {B, A} and {A, B} are the same signer set.
	sc := &scan.Context{
		Transactions: []scan.TransactionMeta{
			{Signature: "s1", Signers: []string{"B", "A"}},
			{Signature: "s2", Signers: []string{"A", "B"}},
			{Signature: "s3", Signers: []string{"B", "A"}},
		},
	}
	signals := (&SignerOverlap{}).Evaluate(sc)
	if len(signals) != 1 {
		t.Fatalf("got %d signals, want 1", len(signals))
	}
	if signals[0].ID != "signer_overlap:A" {
		t.Errorf("got id %q, want the sorted set's first signer", signals[0].ID)
	}
	if len(signals[0].Evidence) != 3 {
		t.Errorf("got %d evidence entries, want 3", len(signals[0].Evidence))
	}
}
