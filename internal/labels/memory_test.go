package labels

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestMemoryProvider_BuiltinsPresent(t *testing.T) {
	p := NewMemoryProvider()
	if p.Len() == 0 {
		t.Fatal("fresh provider has no built-in labels")
	}

	l, err := p.Lookup(context.Background(), "JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if l == nil || l.Type != TypeProtocol {
		t.Errorf("got %+v, want the Jupiter protocol label", l)
	}
}

func TestMemoryProvider_UnknownIsNilNil(t *testing.T) {
	l, err := NewMemoryProvider().Lookup(context.Background(), "UnknownAddr")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if l != nil {
		t.Errorf("got %+v, want nil", l)
	}
}

func TestMemoryProvider_LookupReturnsCopy(t *testing.T) {
	p := NewMemoryProvider()
	p.Add(Label{Address: "Addr", Name: "Original", Type: TypeWallet})

	l, _ := p.Lookup(context.Background(), "Addr")
	l.Name = "Mutated"

	again, _ := p.Lookup(context.Background(), "Addr")
	if again.Name != "Original" {
		t.Errorf("caller mutation leaked into the provider: %q", again.Name)
	}
}

func TestMemoryProvider_LookupMany(t *testing.T) {
	p := NewMemoryProvider()
	p.Add(Label{Address: "A", Name: "EntityA", Type: TypeExchange})
	p.Add(Label{Address: "B", Name: "EntityB", Type: TypeBridge})

	got, err := p.LookupMany(context.Background(), []string{"A", "Missing", "B"})
	if err != nil {
		t.Fatalf("LookupMany: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d hits, want 2", len(got))
	}
	if _, ok := got["Missing"]; ok {
		t.Error("result contains an entry for an unknown address")
	}
}

func TestMemoryProvider_LoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.json")
	content := `[
		{"address": "CustomAddr", "name": "Internal Treasury", "type": "wallet"},
		{"address": "JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4", "name": "Overridden", "type": "protocol"},
		{"address": "NoTypeAddr", "name": "Typeless"},
		{"address": "", "name": "Dropped"}
	]`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	p := NewMemoryProvider()
	if err := p.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	ctx := context.Background()
	if l, _ := p.Lookup(ctx, "CustomAddr"); l == nil || l.Name != "Internal Treasury" {
		t.Errorf("got %+v for the file entry", l)
	}
	if l, _ := p.Lookup(ctx, "JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4"); l == nil || l.Name != "Overridden" {
		t.Errorf("file entry did not override the builtin: %+v", l)
	}
	if l, _ := p.Lookup(ctx, "NoTypeAddr"); l == nil || l.Type != TypeOther {
		t.Errorf("got %+v, want the default type", l)
	}
	if l, _ := p.Lookup(ctx, ""); l != nil {
		t.Errorf("empty-address entry was stored: %+v", l)
	}
}

func TestMemoryProvider_LoadFileErrors(t *testing.T) {
	p := NewMemoryProvider()
	if err := p.LoadFile("/does/not/exist.json"); err == nil {
		t.Error("expected an error for a missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := p.LoadFile(path); err == nil {
		t.Error("expected an error for malformed JSON")
	}
}
