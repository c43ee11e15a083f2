package audio

// Timing constants
// Reference: https://gbdev.io/pandocs/Audio_details.html
const (
	// frameSequencerCycles is the number of CPU cycles per frame sequencer tick.
	// The frame sequencer runs at 512 Hz: 4194304 Hz / 512 Hz = 8192 t-cycles
	frameSequencerCycles = 8192

	// sampleCycles is the number of CPU cycles per generated audio sample.
	// 4194304 Hz (CPU clock) / 44100 Hz (sample rate) ~= 95 t-cycles
	sampleCycles = 95

	// fpShift is the fractional bit width used for the fixed-point (N.16)
	// phase counters driving the pulse and wave channels.
	fpShift = 16

	// frequencyToTimerOffset is the GB hardware period base: channel periods
	// are derived from (2048 - frequency) t-cycles, since frequency is an
	// 11-bit value (0-0x7FF).
	frequencyToTimerOffset = 2048

	// pulseIncrement/waveIncrement are the fixed-point phase advances applied
	// once per generated sample, i.e. sampleCycles expressed in the same
	// fpShift-scaled units as the period computed from frequencyToTimerOffset.
	pulseIncrement = sampleCycles << fpShift
	waveIncrement  = sampleCycles << fpShift

	// highFrequencyThreshold is the fixed-point (8.8) noise period value
	// representing one LFSR update per sample.
	highFrequencyThreshold = 256

	// maxLFSRUpdatesPerSample caps the number of LFSR updates performed for
	// a single generated sample when the noise period is very short.
	maxLFSRUpdatesPerSample = 8
)

// Channel constants
const (
	// waveRAMSize is the size of wave pattern RAM in bytes (16 bytes = 32 nibbles)
	waveRAMSize = 16

	// waveTableSize is the number of 4-bit samples in wave pattern RAM (32 nibbles).
	waveTableSize = 32

	// waveRAMRegisterOffset is the offset of Wave RAM within the audio
	// registers array (WaveRAMStart - AudioStart = 0xFF30 - 0xFF10).
	waveRAMRegisterOffset = 0x20

	// dutyPhases is the number of phases in a pulse channel's duty pattern.
	dutyPhases = 8

	// sampleAmplitude scales a channel's 0-15 volume level into the int16
	// sample range (matches the x2048 scaling used for the wave channel).
	sampleAmplitude = 2048
)

// dutyPatterns holds the 8-step waveform for each of the 4 pulse duty
// cycles (12.5%, 25%, 50%, 75%), read high bit first.
// Reference: https://gbdev.io/pandocs/Audio_Registers.html#duty-cycle
var dutyPatterns = [4]uint8{
	0b00000001, // 12.5%
	0b10000001, // 25%
	0b10000111, // 50%
	0b01111110, // 75%
}

// waveVolumeShift maps the wave channel's 2-bit output level (NR32 bits 6-5)
// to a right-shift applied to each wave sample. A value >= 4 means muted.
// Reference: https://gbdev.io/pandocs/Audio_Registers.html#ff1c--nr32-channel-3-output-level
var waveVolumeShift = [4]uint8{4, 0, 1, 2}

// Buffer constants
const (
	// initialBufferCapacity is the starting capacity for the sample buffer.
	initialBufferCapacity = 4096

	// maxBufferSize is the point at which the sample buffer is trimmed to
	// avoid unbounded growth when samples aren't consumed.
	maxBufferSize = 44100 * 2

	// bufferRetainSize is how many samples are kept when the buffer is trimmed.
	bufferRetainSize = 8192
)

// Sample mixing constants
const (
	// maxSampleValue/minSampleValue clamp the mixed output to the int16 range.
	maxSampleValue = 32767
	minSampleValue = -32768
)

// LFSR constants
const (
	// lfsrInitialValue is the noise channel's LFSR power-on/trigger value:
	// all 15 bits set.
	lfsrInitialValue = 0x7FFF
)

// Register bit positions
const (
	// noiseWidthBit is NR43 bit 3: LFSR width mode (0 = 15-bit, 1 = 7-bit).
	noiseWidthBit = 3

	// envelopeIncreaseBit is NRx2 bit 3: envelope direction (1 = increase).
	envelopeIncreaseBit = 3

	// triggerBit is NRx4 bit 7: channel trigger.
	triggerBit = 7

	// waveDACBit is NR30 bit 7: channel 3 DAC enable.
	waveDACBit = 7
)

// NR52 status/mask bits
const (
	// nr52PowerMask is NR52 bit 7: master audio enable.
	nr52PowerMask = 0x80

	// nr52Ch1StatusMask..nr52Ch4StatusMask are NR52 bits 0-3: per-channel
	// length-expiration status.
	nr52Ch1StatusMask = 0x01
	nr52Ch2StatusMask = 0x02
	nr52Ch3StatusMask = 0x04
	nr52Ch4StatusMask = 0x08

	// nr52UnusedMask covers NR52 bits 4-6, which always read back as 1.
	nr52UnusedMask = 0x70
)
