package detect

import (
	"fmt"
	"testing"

	"github.com/solcloak/solcloak/internal/scan"
)

// shapeContext builds repeats transactions sharing one instruction shape.
func shapeContext(repeats int, shape ...scan.InstructionCategory) *scan.Context {
	sc := &scan.Context{}
	for i := 0; i < repeats; i++ {
		sig := fmt.Sprintf("sig%d", i)
		for _, cat := range shape {
			sc.Instructions = append(sc.Instructions, scan.Instruction{
				ProgramID: "Prog", Category: cat, Signature: sig,
			})
		}
	}
	return sc
}

func TestInstructionFingerprint_Bands(t *testing.T) {
	d := &InstructionFingerprint{}

	tests := []struct {
		name    string
		repeats int
		shape   []scan.InstructionCategory
		want    scan.Severity
	}{
		{"single-instruction shapes ignored", 20, []scan.InstructionCategory{scan.CategoryTransfer}, ""},
		{"below recurrence", 4, []scan.InstructionCategory{scan.CategorySwap, scan.CategoryTransfer}, ""},
		{"low band", 5, []scan.InstructionCategory{scan.CategorySwap, scan.CategoryTransfer}, scan.SeverityLow},
		{"medium band", 10, []scan.InstructionCategory{scan.CategorySwap, scan.CategoryTransfer}, scan.SeverityMedium},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signals := d.Evaluate(shapeContext(tt.repeats, tt.shape...))
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

func TestInstructionFingerprint_OrderMatters(t *testing.T) {
	// swap,transfer and transfer,swap are different shapes; neither recurs
	// often enough on its own.
	sc := &scan.Context{}
	for i := 0; i < 3; i++ {
		sig := fmt.Sprintf("a%d", i)
		sc.Instructions = append(sc.Instructions,
			scan.Instruction{ProgramID: "P", Category: scan.CategorySwap, Signature: sig},
			scan.Instruction{ProgramID: "P", Category: scan.CategoryTransfer, Signature: sig},
		)
	}
	for i := 0; i < 3; i++ {
		sig := fmt.Sprintf("b%d", i)
		sc.Instructions = append(sc.Instructions,
			scan.Instruction{ProgramID: "P", Category: scan.CategoryTransfer, Signature: sig},
			scan.Instruction{ProgramID: "P", Category: scan.CategorySwap, Signature: sig},
		)
	}
	if signals := (&InstructionFingerprint{}).Evaluate(sc); len(signals) != 0 {
		t.Errorf("distinct shapes produced %d signals", len(signals))
	}
}

func TestShortHash_Stable(t *testing.T) {
	a := shortHash("Prog/swap|Prog/transfer")
	b := shortHash("Prog/swap|Prog/transfer")
	if a != b {
		t.Errorf("hash is not stable: %q vs %q", a, b)
	}
	if len(a) != 8 {
		t.Errorf("got hash %q, want 8 hex chars", a)
	}
	if a == shortHash("Prog/transfer|Prog/swap") {
		t.Error("different shapes share a hash")
	}
}
