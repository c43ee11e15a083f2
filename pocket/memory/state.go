package memory

import "fmt"

// TimerSnapshot is the DIV/TIMA/TMA/TAC state needed to resume the timer
// mid-cycle, including the edge-detector state that a bare register dump
// would lose.
type TimerSnapshot struct {
	SystemCounter uint16
	LastTimerBit  bool
	TimaOverflow  int
	TimaDelayInt  bool
	TIMA, TMA, TAC byte
}

func (t *Timer) snapshot() TimerSnapshot {
	return TimerSnapshot{
		SystemCounter: t.systemCounter,
		LastTimerBit:  t.lastTimerBit,
		TimaOverflow:  t.timaOverflow,
		TimaDelayInt:  t.timaDelayInt,
		TIMA:          t.tima,
		TMA:           t.tma,
		TAC:           t.tac,
	}
}

func (t *Timer) restore(s TimerSnapshot) {
	t.systemCounter = s.SystemCounter
	t.lastTimerBit = s.LastTimerBit
	t.timaOverflow = s.TimaOverflow
	t.timaDelayInt = s.TimaDelayInt
	t.tima = s.TIMA
	t.tma = s.TMA
	t.tac = s.TAC
}

// State is a snapshot of everything the MMU owns directly: the bus-visible
// memory window (VRAM through HRAM; ROM and external RAM are owned by the
// MBC and captured separately), joypad latches, timer state, in-flight DMA
// progress and opaque MBC bank-selection state.
type State struct {
	Memory        [0x10000]byte
	JoypadButtons uint8
	JoypadDpad    uint8
	Timer         TimerSnapshot
	DMAActive     bool
	DMASource     uint16
	DMAProgress   uint16
	DMASubCycle   int
	MBCState      []byte
}

// Snapshot captures the MMU's state, including opaque MBC bank-selection
// state for MBC types that implement StatefulMBC. Cartridge RAM contents
// are included in the memory dump only for MBC2's built-in RAM path; all
// other MBC RAM lives outside the bus-visible window and must be captured
// by the caller via BatteryBackedMBC.RAM() if persistence across the save
// state is desired.
func (m *MMU) Snapshot() State {
	s := State{
		JoypadButtons: m.joypadButtons,
		JoypadDpad:    m.joypadDpad,
		Timer:         m.timer.snapshot(),
		DMAActive:     m.dmaActive,
		DMASource:     m.dmaSource,
		DMAProgress:   m.dmaProgress,
		DMASubCycle:   m.dmaSubCycle,
	}
	copy(s.Memory[:], m.memory)
	if sm, ok := m.mbc.(StatefulMBC); ok {
		s.MBCState = sm.SaveState()
	}
	return s
}

// Restore replaces the MMU's state with a snapshot taken by Snapshot. The
// currently loaded cartridge/MBC is left in place; only its bank-selection
// state is restored, so Restore must be called against an MMU built from
// the same ROM the snapshot was taken from.
//
// The MBC bank-state blob is validated and applied first, before anything
// else is touched: each StatefulMBC.LoadState decodes fully before
// committing, so a malformed or truncated blob returns an error here with
// the MMU's bus-visible memory, timer, joypad and DMA state still untouched.
func (m *MMU) Restore(s State) error {
	if len(s.MBCState) > 0 {
		sm, ok := m.mbc.(StatefulMBC)
		if !ok {
			return fmt.Errorf("memory: save state carries MBC bank state but loaded cartridge has none")
		}
		if err := sm.LoadState(s.MBCState); err != nil {
			return err
		}
	}

	copy(m.memory, s.Memory[:])
	m.joypadButtons = s.JoypadButtons
	m.joypadDpad = s.JoypadDpad
	m.timer.restore(s.Timer)
	m.dmaActive = s.DMAActive
	m.dmaSource = s.DMASource
	m.dmaProgress = s.DMAProgress
	m.dmaSubCycle = s.DMASubCycle
	return nil
}

// ExternalRAM returns the cartridge's battery-backable RAM, or nil if the
// loaded MBC has none.
func (m *MMU) ExternalRAM() []byte {
	if b, ok := m.mbc.(BatteryBackedMBC); ok {
		return b.RAM()
	}
	return nil
}

// LoadExternalRAM restores previously saved battery-backed RAM into the
// loaded MBC. A size mismatch against the current cartridge's RAM is
// ignored by the underlying MBC, leaving RAM zeroed.
func (m *MMU) LoadExternalRAM(data []byte) {
	if b, ok := m.mbc.(BatteryBackedMBC); ok {
		b.LoadRAM(data)
	}
}

// HasBatteryBackedRAM reports whether the loaded cartridge both declares a
// battery and has an MBC with persistable RAM.
func (m *MMU) HasBatteryBackedRAM() bool {
	if m.cart == nil || !m.cart.hasBattery {
		return false
	}
	_, ok := m.mbc.(BatteryBackedMBC)
	return ok
}

// SetBatteryRAMChangedCallback registers a callback invoked with a copy of
// the cartridge's external RAM whenever a RAM-enable write transitions the
// RAM from enabled to disabled. Real software does this around every save,
// since the MBC must see RAM disabled before another bank operation is
// safe, which makes the transition a reliable "flush now" signal.
func (m *MMU) SetBatteryRAMChangedCallback(cb func([]byte)) {
	m.onBatteryRAMChanged = cb
}
