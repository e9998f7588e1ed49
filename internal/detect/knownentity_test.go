package detect

import (
	"testing"

	"github.com/solcloak/solcloak/internal/labels"
	"github.com/solcloak/solcloak/internal/scan"
)

func TestKnownEntity_SeverityByType(t *testing.T) {
	d := &KnownEntity{}

	tests := []struct {
		typ  labels.Type
		want scan.Severity
	}{
		{labels.TypeExchange, scan.SeverityHigh},
		{labels.TypeMixer, scan.SeverityHigh},
		{labels.TypeBridge, scan.SeverityMedium},
		{labels.TypeProtocol, scan.SeverityLow},
		{labels.TypeValidator, scan.SeverityLow},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			sc := &scan.Context{
				Labels: map[string]*labels.Label{
					"Addr": {Address: "Addr", Name: "Entity", Type: tt.typ},
				},
			}
			signals := d.Evaluate(sc)
			if len(signals) != 1 {
				t.Fatalf("got %d signals, want 1", len(signals))
			}
			if signals[0].Severity != tt.want {
				t.Errorf("got severity %s, want %s", signals[0].Severity, tt.want)
			}
			if want := "known_entity:" + string(tt.typ); signals[0].ID != want {
				t.Errorf("got id %q, want %q", signals[0].ID, want)
			}
		})
	}
}

func TestKnownEntity_GroupsByTypeInFixedOrder(t *testing.T) {
	sc := &scan.Context{
		Labels: map[string]*labels.Label{
			"Proto1": {Address: "Proto1", Name: "Jupiter", Type: labels.TypeProtocol},
			"Exch1":  {Address: "Exch1", Name: "Binance", Type: labels.TypeExchange},
			"Exch2":  {Address: "Exch2", Name: "Coinbase", Type: labels.TypeExchange},
		},
	}
	signals := (&KnownEntity{}).Evaluate(sc)
	if len(signals) != 2 {
		t.Fatalf("got %d signals, want 2", len(signals))
	}
	if signals[0].ID != "known_entity:exchange" || signals[1].ID != "known_entity:protocol" {
		t.Errorf("got order %q, %q; want exchange before protocol", signals[0].ID, signals[1].ID)
	}
	if len(signals[0].Evidence) != 2 {
		t.Errorf("exchange group has %d evidence entries, want 2", len(signals[0].Evidence))
	}
	// Addresses sort lexicographically inside the group.
	if signals[0].Evidence[0].Reference != "Exch1" {
		t.Errorf("got first exchange evidence %q, want Exch1", signals[0].Evidence[0].Reference)
	}
}

func TestKnownEntity_NoLabelsNoSignal(t *testing.T) {
	if signals := (&KnownEntity{}).Evaluate(&scan.Context{}); len(signals) != 0 {
		t.Errorf("got %d signals from an unlabeled context", len(signals))
	}
}
