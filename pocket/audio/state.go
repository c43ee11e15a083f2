package audio

// ChannelSnapshot is the persisted half of ChannelState; muted is a debug
// toggle and deliberately left out, so loading a save state never un-mutes
// a channel the user silenced by hand.
type ChannelSnapshot struct {
	Enabled           bool
	Freq              uint16
	Volume            uint8
	Counter           uint32
	Duty              uint8
	EnvelopePeriod    uint8
	EnvelopeDirection uint8
	EnvelopeTimer     uint8
	LengthCounter     uint16
	LengthEnabled     bool
	NoisePeriod       uint16
}

// State is a snapshot of the APU's registers and the internal channel
// timers/counters a register dump alone can't reconstruct.
type State struct {
	Enabled            bool
	Registers          [0x30]byte
	FrameCounter       int
	FrameCycles        int
	SampleCycleCounter int
	Channels           [4]ChannelSnapshot
	Ch3WaveRAM         [waveRAMSize]uint8
	Ch4LFSR            uint16
}

// Snapshot captures the APU's audible state. Pending samples in the
// playback buffer are not included; a restored APU starts with an empty
// buffer, which a pull-model audio backend tolerates the same way it
// tolerates underrun.
func (a *APU) Snapshot() State {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := State{
		Enabled:            a.enabled,
		Registers:          a.registers,
		FrameCounter:       a.frameCounter,
		FrameCycles:        a.frameCycles,
		SampleCycleCounter: a.sampleCycleCounter,
		Ch3WaveRAM:         a.ch3WaveRAM,
		Ch4LFSR:            a.ch4LFSR,
	}
	for i := range a.channels {
		ch := a.channels[i]
		s.Channels[i] = ChannelSnapshot{
			Enabled:           ch.enabled,
			Freq:              ch.freq,
			Volume:            ch.volume,
			Counter:           ch.counter,
			Duty:              ch.duty,
			EnvelopePeriod:    ch.envelopePeriod,
			EnvelopeDirection: ch.envelopeDirection,
			EnvelopeTimer:     ch.envelopeTimer,
			LengthCounter:     ch.lengthCounter,
			LengthEnabled:     ch.lengthEnabled,
			NoisePeriod:       ch.noisePeriod,
		}
	}
	return s
}

// Restore replaces the APU's audible state with a snapshot taken by
// Snapshot.
func (a *APU) Restore(s State) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.enabled = s.Enabled
	a.registers = s.Registers
	a.frameCounter = s.FrameCounter
	a.frameCycles = s.FrameCycles
	a.sampleCycleCounter = s.SampleCycleCounter
	a.ch3WaveRAM = s.Ch3WaveRAM
	a.ch4LFSR = s.Ch4LFSR

	a.sampleBufferMu.Lock()
	a.sampleBuffer = a.sampleBuffer[:0]
	a.sampleBufferMu.Unlock()

	for i := range s.Channels {
		cs := s.Channels[i]
		muted := a.channels[i].muted
		a.channels[i] = ChannelState{
			enabled:           cs.Enabled,
			freq:              cs.Freq,
			volume:            cs.Volume,
			counter:           cs.Counter,
			duty:              cs.Duty,
			envelopePeriod:    cs.EnvelopePeriod,
			envelopeDirection: cs.EnvelopeDirection,
			envelopeTimer:     cs.EnvelopeTimer,
			lengthCounter:     cs.LengthCounter,
			lengthEnabled:     cs.LengthEnabled,
			noisePeriod:       cs.NoisePeriod,
			muted:             muted,
		}
	}
}
