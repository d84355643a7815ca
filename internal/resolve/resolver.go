package resolve

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/dwrance/storyhook/internal/mem"
)

// Probe locates one symbol in the image, typically by anchoring on an
// export and scanning for patterns or call-site operands.
type Probe func(s *Scanner) (mem.Address, error)

type probeResult struct {
	addr mem.Address
	err  error
}

// Resolver runs registered probes at most once each and memoizes the
// outcome, success or failure. A symbol that failed to resolve stays
// failed for the process lifetime; only the features depending on it
// are disabled.
type Resolver struct {
	mu      sync.Mutex
	scanner *Scanner
	log     *zap.Logger
	probes  map[string]Probe
	results map[string]probeResult
}

// NewResolver creates a resolver over img. log may be nil.
func NewResolver(img mem.Image, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{
		scanner: NewScanner(img),
		log:     log,
		probes:  make(map[string]Probe),
		results: make(map[string]probeResult),
	}
}

// Register adds a probe for name. Registering after the symbol has been
// resolved has no effect on the memoized result.
func (r *Resolver) Register(name string, p Probe) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.probes[name] = p
}

// Resolve returns the address for name, running its probe on first use.
// Failure is memoized: the probe is never re-attempted.
func (r *Resolver) Resolve(name string) (mem.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolveLocked(name)
}

func (r *Resolver) resolveLocked(name string) (mem.Address, error) {
	if res, ok := r.results[name]; ok {
		return res.addr, res.err
	}

	probe, ok := r.probes[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownSymbol, name)
	}

	addr, err := probe(r.scanner)
	if err != nil {
		err = fmt.Errorf("resolve %s: %w", name, err)
		r.log.Warn("symbol resolution failed; dependent features disabled",
			zap.String("symbol", name),
			zap.Error(err))
	} else {
		r.log.Debug("symbol resolved",
			zap.String("symbol", name),
			zap.Uint64("address", uint64(addr)))
	}

	r.results[name] = probeResult{addr: addr, err: err}
	return addr, err
}

// ResolveAll runs every registered probe that has not run yet. Failures
// are logged per symbol and do not stop the pass.
func (r *Resolver) ResolveAll() {
	r.mu.Lock()
	names := make([]string, 0, len(r.probes))
	for name := range r.probes {
		names = append(names, name)
	}
	r.mu.Unlock()

	for _, name := range names {
		r.mu.Lock()
		_, _ = r.resolveLocked(name)
		r.mu.Unlock()
	}
}

// Capability reports whether name resolved successfully. Dependent
// features must gate on this rather than assume resolution succeeded.
func (r *Resolver) Capability(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.results[name]
	return ok && res.err == nil
}
