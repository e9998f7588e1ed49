// Package detect holds the heuristic privacy detectors and their registry.
//
// Every detector is a pure function over an immutable scan Context: no I/O,
// no mutation, and deterministic output including evidence ordering. The
// registry is open for extension; adding a detector never requires touching
// the aggregator or the existing detectors, and no detector may depend on
// another having run first.
package detect

import (
	"sort"
	"sync"

	"github.com/solcloak/solcloak/internal/scan"
)

// Detector is one independent heuristic.
type Detector interface {
	// ID is the stable signal-id prefix, e.g. "fee_payer_reuse".
	ID() string
	// Name is the human-readable detector name.
	Name() string
	// Evaluate inspects the context and returns zero or more signals.
	// It must degrade gracefully: an empty context yields no signals,
	// never a panic.
	Evaluate(sc *scan.Context) []scan.RiskSignal
}

// Registry is an ordered collection of detectors. Registration order is the
// canonical signal order in reports.
type Registry struct {
	detectors []Detector
}

// NewRegistry creates a registry with the given detectors, in order.
func NewRegistry(detectors ...Detector) *Registry {
	return &Registry{detectors: detectors}
}

// Register appends a detector.
func (r *Registry) Register(d Detector) {
	r.detectors = append(r.detectors, d)
}

// Detectors returns the registered detectors in registration order.
func (r *Registry) Detectors() []Detector {
	return r.detectors
}

// Evaluate runs every detector sequentially and returns their signals in
// canonical order: registration order, then signal id within each detector.
func (r *Registry) Evaluate(sc *scan.Context) []scan.RiskSignal {
	var signals []scan.RiskSignal
	for _, d := range r.detectors {
		batch := d.Evaluate(sc)
		sort.SliceStable(batch, func(a, b int) bool { return batch[a].ID < batch[b].ID })
		signals = append(signals, batch...)
	}
	return signals
}

// EvaluateParallel runs detectors across goroutines. Detectors only read the
// immutable context, so this is safe; results are re-sorted into the
// canonical order (registration order, then signal id) so output is
// independent of scheduling.
func (r *Registry) EvaluateParallel(sc *scan.Context) []scan.RiskSignal {
	results := make([][]scan.RiskSignal, len(r.detectors))

	var wg sync.WaitGroup
	for i, d := range r.detectors {
		wg.Add(1)
		go func(i int, d Detector) {
			defer wg.Done()
			results[i] = d.Evaluate(sc)
		}(i, d)
	}
	wg.Wait()

	var signals []scan.RiskSignal
	for _, batch := range results {
		sort.SliceStable(batch, func(a, b int) bool { return batch[a].ID < batch[b].ID })
		signals = append(signals, batch...)
	}
	return signals
}

// Default returns the full built-in detector set in canonical order.
func Default() *Registry {
	return NewRegistry(
		&FeePayerReuse{},
		&SignerOverlap{},
		&MemoExposure{},
		&KnownEntity{},
		&CounterpartyReuse{},
		&AddressLinkage{},
		&InstructionFingerprint{},
		&TokenLifecycle{},
		&PriorityFeeFingerprint{},
		&StakingConcentration{},
		&TimingPatterns{},
		&DustAttack{},
		&RoundAmount{},
	)
}
