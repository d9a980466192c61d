package engine

import "github.com/atlas-desktop/strategy-engine/pkg/types"

// Strategy is the capability interface user code implements against.
// All hooks are invoked from the dispatcher only while the host is
// RUNNING; a panic escaping any hook is caught, logged, and does not
// propagate (the dispatcher recover()s around every call).
type Strategy interface {
	OnStart(h *Host)
	OnTick(h *Host, tick types.Tick)
	OnBar(h *Host, barType types.BarType, bar types.Bar)
	OnInstrument(h *Host, instrument types.Instrument)
	OnEvent(h *Host, event types.Event)
	OnStop(h *Host)
	OnReset(h *Host)
	OnSave(h *Host) map[string]string
	OnLoad(h *Host, state map[string]string)
	OnDispose(h *Host)
}

// BaseStrategy implements Strategy with no-op hooks. Concrete strategies
// embed it and override only the hooks they need.
type BaseStrategy struct{}

func (BaseStrategy) OnStart(*Host)                   {}
func (BaseStrategy) OnTick(*Host, types.Tick)        {}
func (BaseStrategy) OnBar(*Host, types.BarType, types.Bar) {}
func (BaseStrategy) OnInstrument(*Host, types.Instrument)  {}
func (BaseStrategy) OnEvent(*Host, types.Event)      {}
func (BaseStrategy) OnStop(*Host)                    {}
func (BaseStrategy) OnReset(*Host)                   {}
func (BaseStrategy) OnSave(*Host) map[string]string  { return nil }
func (BaseStrategy) OnLoad(*Host, map[string]string) {}
func (BaseStrategy) OnDispose(*Host)                 {}
