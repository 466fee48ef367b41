package index

import (
	"context"
	"fmt"
	"sync"
)

// Factory constructs an empty index for a validated descriptor.
type Factory func(desc Descriptor) (Index, error)

var (
	factoryMu sync.RWMutex
	factories = map[Kind]Factory{}
)

// Register registers the factory for an index kind.
//
// Index implementations should typically call this from an init() function.
func Register(kind Kind, f Factory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	factories[kind] = f
}

// New validates desc and dispatches to the factory registered for its kind.
func New(desc Descriptor) (Index, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	factoryMu.RLock()
	f, ok := factories[desc.Kind]
	factoryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no implementation registered for %s", ErrNotImplemented, desc.Kind)
	}
	return f(desc)
}

// checkInterval is how many steps pass between context checks.
const checkInterval = 1024

// Stepper checks a context for cancellation every checkInterval steps.
type Stepper struct {
	ctx context.Context
	n   int
}

// NewStepper returns a Stepper bound to ctx.
func NewStepper(ctx context.Context) *Stepper {
	return &Stepper{ctx: ctx}
}

// Step counts one unit of work and returns ctx.Err() on the steps where the
// context is checked.
func (s *Stepper) Step() error {
	s.n++
	if s.n%checkInterval != 0 {
		return nil
	}
	return s.ctx.Err()
}

// Err checks the context immediately.
func (s *Stepper) Err() error {
	return s.ctx.Err()
}
