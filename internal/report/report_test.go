package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/solcloak/solcloak/internal/detect"
	"github.com/solcloak/solcloak/internal/labels"
	"github.com/solcloak/solcloak/internal/normalize"
	"github.com/solcloak/solcloak/internal/scan"
)

func TestOverallRisk(t *testing.T) {
	tests := []struct {
		high, medium, low int
		want              scan.Severity
	}{
		{0, 0, 0, scan.SeverityLow},
		{0, 0, 5, scan.SeverityLow},
		{0, 1, 0, scan.SeverityLow},
		{0, 1, 1, scan.SeverityLow},
		{0, 1, 2, scan.SeverityMedium},
		{0, 2, 0, scan.SeverityMedium},
		{1, 0, 0, scan.SeverityMedium},
		{1, 1, 0, scan.SeverityMedium},
		{1, 2, 0, scan.SeverityHigh},
		{2, 0, 0, scan.SeverityHigh},
		{3, 5, 9, scan.SeverityHigh},
	}
	for _, tt := range tests {
		if got := OverallRisk(tt.high, tt.medium, tt.low); got != tt.want {
			t.Errorf("OverallRisk(%d, %d, %d) = %s, want %s",
				tt.high, tt.medium, tt.low, got, tt.want)
		}
	}
}

// fixedDetector emits a canned signal list.
type fixedDetector struct {
	id      string
	signals []scan.RiskSignal
}

func (d *fixedDetector) ID() string   { return d.id }
func (d *fixedDetector) Name() string { return d.id }
func (d *fixedDetector) Evaluate(*scan.Context) []scan.RiskSignal {
	return d.signals
}

func signal(id string, sev scan.Severity, mitigation string) scan.RiskSignal {
	return scan.RiskSignal{ID: id, Name: id, Severity: sev, Mitigation: mitigation}
}

func TestGenerateWith_SummaryAndOverall(t *testing.T) {
	registry := detect.NewRegistry(
		&fixedDetector{id: "a", signals: []scan.RiskSignal{
			signal("a:1", scan.SeverityHigh, "rotate wallets"),
			signal("a:2", scan.SeverityMedium, "rotate wallets"),
		}},
		&fixedDetector{id: "b", signals: []scan.RiskSignal{
			signal("b:1", scan.SeverityMedium, "avoid memos"),
			signal("b:2", scan.SeverityLow, ""),
		}},
	)
	sc := &scan.Context{
		Target:           "Wallet",
		TargetType:       scan.TargetWallet,
		TransactionCount: 7,
	}

	r := GenerateWith(registry, sc)

	if r.Version != scan.ReportVersion {
		t.Errorf("got version %q", r.Version)
	}
	if r.Target != "Wallet" || r.TargetType != scan.TargetWallet {
		t.Errorf("got target %s/%s", r.TargetType, r.Target)
	}
	if r.Summary.TotalSignals != 4 || r.Summary.HighRiskSignals != 1 ||
		r.Summary.MediumRiskSignals != 2 || r.Summary.LowRiskSignals != 1 {
		t.Errorf("got summary %+v", r.Summary)
	}
	if r.Summary.TransactionsAnalyzed != 7 {
		t.Errorf("got TransactionsAnalyzed %d, want 7", r.Summary.TransactionsAnalyzed)
	}
	// 1 high + 2 medium aggregates to HIGH.
	if r.OverallRisk != scan.SeverityHigh {
		t.Errorf("got overall risk %s, want HIGH", r.OverallRisk)
	}
	// Mitigations deduplicate in first-seen order; empty strings drop out.
	if want := []string{"rotate wallets", "avoid memos"}; !reflect.DeepEqual(r.Mitigations, want) {
		t.Errorf("got mitigations %v, want %v", r.Mitigations, want)
	}
}

func TestGenerateWith_SignalOrderIsCanonical(t *testing.T) {
	// Registry order first, then signal id within each detector.
	registry := detect.NewRegistry(
		&fixedDetector{id: "z_detector", signals: []scan.RiskSignal{
			signal("z:2", scan.SeverityLow, ""),
			signal("z:1", scan.SeverityLow, ""),
		}},
		&fixedDetector{id: "a_detector", signals: []scan.RiskSignal{
			signal("a:1", scan.SeverityLow, ""),
		}},
	)

	r := GenerateWith(registry, &scan.Context{})

	got := make([]string, 0, len(r.Signals))
	for _, s := range r.Signals {
		got = append(got, s.ID)
	}
	want := []string{"z:1", "z:2", "a:1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got order %v, want %v", got, want)
	}
}

func TestGenerate_EmptyContext(t *testing.T) {
	r := Generate(&scan.Context{Target: "Quiet", TargetType: scan.TargetWallet})

	if r.OverallRisk != scan.SeverityLow {
		t.Errorf("got overall risk %s, want LOW", r.OverallRisk)
	}
	if r.Summary.TotalSignals != 0 || len(r.Signals) != 0 {
		t.Errorf("got %d signals from an empty context", len(r.Signals))
	}
	if len(r.Mitigations) != 0 || len(r.KnownEntities) != 0 {
		t.Errorf("got mitigations %v, entities %v", r.Mitigations, r.KnownEntities)
	}
}

func TestKnownEntities_GroupedAndDeduplicated(t *testing.T) {
	sc := &scan.Context{
		Labels: map[string]*labels.Label{
			"ProtoAddr": {Address: "ProtoAddr", Name: "Jupiter", Type: labels.TypeProtocol},
			"ExchB":     {Address: "ExchB", Name: "Coinbase", Type: labels.TypeExchange},
			"ExchA":     {Address: "ExchA", Name: "Binance", Type: labels.TypeExchange},
			// A second map key resolving to the same label address.
			"ExchAAlias": {Address: "ExchA", Name: "Binance", Type: labels.TypeExchange},
		},
	}

	r := GenerateWith(detect.NewRegistry(), sc)

	got := make([]string, 0, len(r.KnownEntities))
	for _, e := range r.KnownEntities {
		got = append(got, e.Address)
	}
	// Exchanges first, addresses sorted, duplicates collapsed.
	want := []string{"ExchA", "ExchB", "ProtoAddr"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got entities %v, want %v", got, want)
	}
}

// fixedLabels is a canned label source for pipeline tests.
type fixedLabels map[string]*labels.Label

func (f fixedLabels) Lookup(_ context.Context, address string) (*labels.Label, error) {
	return f[address], nil
}

func (f fixedLabels) LookupMany(_ context.Context, addresses []string) (map[string]*labels.Label, error) {
	out := make(map[string]*labels.Label)
	for _, a := range addresses {
		if l, ok := f[a]; ok {
			out[a] = l
		}
	}
	return out, nil
}

func TestGenerate_PipelineIsDeterministic(t *testing.T) {
	const (
		systemProgram = "11111111111111111111111111111111"
		memoProgram   = "MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr"
	)

	transfer := func(dest string) scan.RawInstruction {
		return scan.RawInstruction{
			ProgramID: systemProgram,
			Parsed: &scan.ParsedInstrution{
				Type: "transfer",
				Info: json.RawMessage(`{"source":"Wallet","destination":"` + dest + `","lamports":1000000000}`),
			},
		}
	}
	tx := func(sig string, bt int64, instructions ...scan.RawInstruction) scan.RawTransaction {
		return scan.RawTransaction{
			Signature: sig,
			Payload: &scan.TxPayload{
				BlockTime:    &bt,
				AccountKeys:  []scan.AccountKey{{Pubkey: "Wallet", Signer: true}},
				Instructions: instructions,
			},
		}
	}

	// A busy fixed snapshot: repeated counterparties, a labeled exchange,
	// a leaky memo. Enough to exercise several detectors plus the entity
	// and mitigation dedup paths, all fed from map iteration upstream.
	raw := &scan.RawWalletData{Address: "Wallet"}
	for i := 0; i < 6; i++ {
		raw.Transactions = append(raw.Transactions,
			tx(fmt.Sprintf("sig-%d", i), 1_700_000_000+int64(i)*3600, transfer("Sink"), transfer("Exch")))
	}
	raw.Transactions = append(raw.Transactions,
		tx("sig-memo", 1_700_100_000, scan.RawInstruction{
			ProgramID: memoProgram,
			Parsed: &scan.ParsedInstrution{
				Type: "memo",
				Info: json.RawMessage(`"contact me at alice@example.com"`),
			},
		}))

	lp := fixedLabels{
		"Exch": {Address: "Exch", Name: "Binance", Type: labels.TypeExchange},
		"Sink": {Address: "Sink", Name: "Jupiter", Type: labels.TypeProtocol},
	}

	run := func() []byte {
		sc, err := normalize.Wallet(context.Background(), raw, lp)
		if err != nil {
			t.Fatalf("normalize: %v", err)
		}
		r := Generate(sc)
		if r.Summary.TotalSignals == 0 {
			t.Fatal("expected signals from the busy snapshot")
		}
		r.Timestamp = time.Time{}
		b, err := json.Marshal(r)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		return b
	}

	first := run()
	second := run()
	if !bytes.Equal(first, second) {
		t.Errorf("two runs over the same snapshot produced different reports:\n%s\n%s", first, second)
	}
}
