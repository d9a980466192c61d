// Package indicator provides the stateful bar-stream transforms strategies
// bind to bar types, and the registry that binds them.
package indicator

import "github.com/atlas-desktop/strategy-engine/pkg/types"

// Indicator is a stateful transform over a bar stream exposing a numeric
// value and an initialized flag.
type Indicator interface {
	Update(bar types.Bar)
	Reset()
	Initialized() bool
	Value() types.Price
}

// UpdateFn binds a strategy-chosen update method to a bar type, invoked
// after the indicator itself is updated. It lets a strategy react to an
// indicator value changing without polling it from on_bar.
type UpdateFn func(ind Indicator, bar types.Bar)

// binding is one (Indicator, UpdateFn) pair registered against a BarType.
type binding struct {
	indicator Indicator
	update    UpdateFn
}

// Registry maps BarType to an ordered sequence of (Indicator, UpdateFn)
// bindings.
type Registry struct {
	bindings map[types.BarType][]binding
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{bindings: make(map[types.BarType][]binding)}
}

// Register appends ind (with optional update, which may be nil) to bt's
// binding list.
func (r *Registry) Register(bt types.BarType, ind Indicator, update UpdateFn) {
	r.bindings[bt] = append(r.bindings[bt], binding{indicator: ind, update: update})
}

// Feed updates every indicator bound to bt with bar, then invokes each
// binding's UpdateFn (if any) with the freshly updated indicator.
func (r *Registry) Feed(bt types.BarType, bar types.Bar) {
	for _, b := range r.bindings[bt] {
		b.indicator.Update(bar)
		if b.update != nil {
			b.update(b.indicator, bar)
		}
	}
}

// Indicators returns a copy of the indicators bound to bt.
func (r *Registry) Indicators(bt types.BarType) []Indicator {
	bound := r.bindings[bt]
	out := make([]Indicator, len(bound))
	for i, b := range bound {
		out[i] = b.indicator
	}
	return out
}

// Initialized reports whether every indicator bound to bt is initialized.
// A BarType with no bindings is vacuously initialized.
func (r *Registry) Initialized(bt types.BarType) bool {
	for _, b := range r.bindings[bt] {
		if !b.indicator.Initialized() {
			return false
		}
	}
	return true
}

// InitializedAll folds Initialized across every bound BarType.
func (r *Registry) InitializedAll() bool {
	for bt := range r.bindings {
		if !r.Initialized(bt) {
			return false
		}
	}
	return true
}

// Reset invokes Reset on every registered indicator.
func (r *Registry) Reset() {
	for _, bound := range r.bindings {
		for _, b := range bound {
			b.indicator.Reset()
		}
	}
}
