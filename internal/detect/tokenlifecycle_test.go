package detect

import (
	"fmt"
	"testing"

	"github.com/solcloak/solcloak/internal/scan"
)

func closeEvents(refund string, accounts int) []scan.TokenAccountEvent {
	events := make([]scan.TokenAccountEvent, 0, accounts)
	for i := 0; i < accounts; i++ {
		events = append(events, scan.TokenAccountEvent{
			Type:         scan.TokenEventClose,
			TokenAccount: fmt.Sprintf("ATA%d", i),
			Owner:        "Owner",
			Signature:    fmt.Sprintf("sig%d", i),
			RentRefund:   refund,
		})
	}
	return events
}

func TestTokenLifecycle_Bands(t *testing.T) {
	d := &TokenLifecycle{}

	tests := []struct {
		name     string
		accounts int
		want     scan.Severity
	}{
		{"single close", 1, ""},
		{"two closes", 2, scan.SeverityMedium},
		{"five closes", 5, scan.SeverityHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := &scan.Context{TokenAccountEvents: closeEvents("Collector", tt.accounts)}
			signals := d.Evaluate(sc)
			if tt.want == "" {
				if len(signals) != 0 {
					t.Fatalf("got %d signals, want none", len(signals))
				}
				return
			}
			if len(signals) != 1 {
				t.Fatalf("got %d signals, want 1", len(signals))
			}
			if signals[0].ID != "token_lifecycle:Collector" {
				t.Errorf("got id %q", signals[0].ID)
			}
			if signals[0].Severity != tt.want {
				t.Errorf("got severity %s, want %s", signals[0].Severity, tt.want)
			}
		})
	}
}

func TestTokenLifecycle_DistinctAccountsNotEvents(t *testing.T) {
	// The same token account closed twice counts once.
	events := closeEvents("Collector", 1)
	events = append(events, events[0])
	sc := &scan.Context{TokenAccountEvents: events}
	if signals := (&TokenLifecycle{}).Evaluate(sc); len(signals) != 0 {
		t.Errorf("a single repeated account produced %d signals", len(signals))
	}
}

func TestTokenLifecycle_IgnoresMissingRefundAndCreates(t *testing.T) {
	sc := &scan.Context{TokenAccountEvents: []scan.TokenAccountEvent{
		{Type: scan.TokenEventClose, TokenAccount: "A", Signature: "s1"},
		{Type: scan.TokenEventCreate, TokenAccount: "B", Signature: "s2", RentRefund: "X"},
		{Type: scan.TokenEventClose, TokenAccount: "C", Signature: "s3", RentRefund: "X"},
	}}
	if signals := (&TokenLifecycle{}).Evaluate(sc); len(signals) != 0 {
		t.Errorf("got %d signals, want none below the account threshold", len(signals))
	}
}
