// Package labels resolves addresses to known-entity metadata (exchanges,
// bridges, protocols, ...). The engine treats a Provider as a point-in-time
// snapshot for the lifetime of one scan.
package labels

import (
	"context"
	"errors"
)

// ErrUnavailable means the label database itself could not be read. This is
// a fatal input error for a scan; a merely missing label never is.
var ErrUnavailable = errors.New("labels: provider unavailable")

// Type classifies the real-world entity behind an address.
type Type string

const (
	TypeExchange  Type = "exchange"
	TypeBridge    Type = "bridge"
	TypeProtocol  Type = "protocol"
	TypeProgram   Type = "program"
	TypeMixer     Type = "mixer"
	TypeValidator Type = "validator"
	TypeWallet    Type = "wallet"
	TypeOther     Type = "other"
)

// Label is curated metadata identifying a known entity behind an address.
type Label struct {
	Address          string   `json:"address"`
	Name             string   `json:"name"`
	Type             Type     `json:"type"`
	Description      string   `json:"description,omitempty"`
	RelatedAddresses []string `json:"relatedAddresses,omitempty"`
}

// Provider is the lookup contract the engine depends on. Implementations
// must be side-effect-free from the engine's point of view: a missed lookup
// returns (nil, nil), never an error.
type Provider interface {
	// Lookup resolves a single address. Returns nil when unknown.
	Lookup(ctx context.Context, address string) (*Label, error)
	// LookupMany resolves a batch; the result map only contains hits.
	LookupMany(ctx context.Context, addresses []string) (map[string]*Label, error)
}
