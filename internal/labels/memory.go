package labels

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// builtin covers a handful of high-traffic mainnet entities so a fresh
// install produces useful known-entity signals without any label file.
var builtin = []Label{
	{Address: "5tzFkiKscXHK5ZXCGbXZxdw7gTjjD1mBwuoFbhUvuAi9", Name: "Binance Hot Wallet", Type: TypeExchange},
	{Address: "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM", Name: "Binance Hot Wallet 2", Type: TypeExchange},
	{Address: "2AQdpHJ2JpcEgPiATUXjQxA8QmafFegfQwSLWSprPicm", Name: "Coinbase Hot Wallet", Type: TypeExchange},
	{Address: "H8sMJSCQxfKiFTCfDR3DUMLPwcRbM61LGFJ8N4dK3WjS", Name: "Coinbase 2", Type: TypeExchange},
	{Address: "ASTyfSima4LLAdDgoFGkgqoKowG1LZFDr9fAQrg7iaJZ", Name: "MEXC Hot Wallet", Type: TypeExchange},
	{Address: "wormDTUJ6AWPNvk59vGQbDvGJmqbDTdgWgAqcLBCgUb", Name: "Wormhole Token Bridge", Type: TypeBridge},
	{Address: "WvmTNLpGMVbwJVYztYL4Hnsy82cJhQorxjnnXcRm3b6", Name: "Wormhole Core Bridge", Type: TypeBridge},
	{Address: "JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4", Name: "Jupiter Aggregator v6", Type: TypeProtocol},
	{Address: "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8", Name: "Raydium AMM v4", Type: TypeProtocol},
	{Address: "whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc", Name: "Orca Whirlpool", Type: TypeProtocol},
	{Address: "MarBmsSgKXdrN1egZf5sqe1TMai9K1rChYNDJgjq7aD", Name: "Marinade Liquid Staking", Type: TypeProtocol},
	{Address: "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA", Name: "SPL Token Program", Type: TypeProgram},
	{Address: "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL", Name: "Associated Token Program", Type: TypeProgram},
}

// MemoryProvider is an in-memory label database, optionally seeded from a
// JSON file on top of the built-in entries. Read-only after construction.
type MemoryProvider struct {
	mu     sync.RWMutex
	byAddr map[string]*Label
}

// NewMemoryProvider creates a provider holding only the built-in labels.
func NewMemoryProvider() *MemoryProvider {
	p := &MemoryProvider{byAddr: make(map[string]*Label, len(builtin))}
	for i := range builtin {
		l := builtin[i]
		p.byAddr[l.Address] = &l
	}
	return p
}

// LoadFile merges labels from a JSON file (an array of Label objects).
// File entries override built-ins for the same address.
func (p *MemoryProvider) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("labels: read %s: %w", path, err)
	}
	var entries []Label
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("labels: parse %s: %w", path, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range entries {
		l := entries[i]
		if l.Address == "" {
			continue
		}
		if l.Type == "" {
			l.Type = TypeOther
		}
		p.byAddr[l.Address] = &l
	}
	return nil
}

// Add registers a label. Intended for tests and session setup, not for use
// mid-scan.
func (p *MemoryProvider) Add(l Label) {
	p.mu.Lock()
	p.byAddr[l.Address] = &l
	p.mu.Unlock()
}

// Len returns the number of known labels.
func (p *MemoryProvider) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.byAddr)
}

func (p *MemoryProvider) Lookup(_ context.Context, address string) (*Label, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	l, ok := p.byAddr[address]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (p *MemoryProvider) LookupMany(_ context.Context, addresses []string) (map[string]*Label, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make(map[string]*Label)
	for _, addr := range addresses {
		if l, ok := p.byAddr[addr]; ok {
			cp := *l
			result[addr] = &cp
		}
	}
	return result, nil
}
