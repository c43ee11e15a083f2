// Package savestate implements a versioned, fixed-layout binary encoding
// of a complete emulator snapshot: CPU registers, the MMU's bus-visible
// memory window, timer and DMA state, cartridge RAM, the PPU's scanline
// position and the APU's channel state. Save writes exactly one of these
// in one shot; Load either restores a fully consistent snapshot or leaves
// the caller free to keep running on the current state, never partially.
package savestate

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/kdevbox/pocketcore/pocket/audio"
	"github.com/kdevbox/pocketcore/pocket/cpu"
	"github.com/kdevbox/pocketcore/pocket/memory"
	"github.com/kdevbox/pocketcore/pocket/video"
)

// magic identifies a pocketcore save state file, read as the ASCII bytes
// "PKBT" (Pocket Bank Table, a nod to the bankable cartridge state this
// format exists to carry).
const magic uint32 = 0x504B4254

// version is bumped whenever the field layout changes. Load rejects any
// file whose version doesn't match exactly rather than attempting to
// upgrade in place.
const version uint32 = 1

// Snapshot is every piece of mutable emulator state needed to resume
// execution from the exact point Save was called.
type Snapshot struct {
	CPU         cpu.State
	GPU         video.State
	MMU         memory.State
	Audio       audio.State
	ExternalRAM []byte
}

// Save writes snap to w in the fixed, versioned field order this package
// defines. The caller is responsible for flushing/closing w.
func Save(w io.Writer, snap Snapshot) error {
	bw := bufio.NewWriter(w)
	e := &encoder{w: bw}

	e.u32(magic)
	e.u32(version)

	e.cpuState(snap.CPU)
	e.gpuState(snap.GPU)
	e.mmuState(snap.MMU)
	e.bytesPrefixed(snap.ExternalRAM)
	e.audioState(snap.Audio)

	if e.err != nil {
		return e.err
	}
	return bw.Flush()
}

// Load reads a Snapshot previously written by Save. A magic or version
// mismatch is returned as an error without consuming the rest of r or
// mutating anything the caller already holds.
func Load(r io.Reader) (Snapshot, error) {
	d := &decoder{r: r}

	gotMagic := d.u32()
	gotVersion := d.u32()
	if d.err != nil {
		return Snapshot{}, d.err
	}
	if gotMagic != magic {
		return Snapshot{}, fmt.Errorf("savestate: not a pocketcore save state (bad magic)")
	}
	if gotVersion != version {
		return Snapshot{}, fmt.Errorf("savestate: unsupported version %d (expected %d)", gotVersion, version)
	}

	var snap Snapshot
	snap.CPU = d.cpuState()
	snap.GPU = d.gpuState()
	snap.MMU = d.mmuState()
	snap.ExternalRAM = d.bytesPrefixed()
	snap.Audio = d.audioState()

	if d.err != nil {
		return Snapshot{}, d.err
	}
	return snap, nil
}

type encoder struct {
	w   io.Writer
	err error
}

func (e *encoder) write(v any) {
	if e.err != nil {
		return
	}
	e.err = binary.Write(e.w, binary.BigEndian, v)
}

func (e *encoder) u8(v uint8)   { e.write(v) }
func (e *encoder) u16(v uint16) { e.write(v) }
func (e *encoder) u32(v uint32) { e.write(v) }
func (e *encoder) u64(v uint64) { e.write(v) }
func (e *encoder) i32(v int)    { e.write(int32(v)) }
func (e *encoder) boolean(v bool) {
	if v {
		e.u8(1)
	} else {
		e.u8(0)
	}
}

func (e *encoder) bytesPrefixed(b []byte) {
	e.u32(uint32(len(b)))
	if e.err != nil || len(b) == 0 {
		return
	}
	e.write(b)
}

func (e *encoder) cpuState(s cpu.State) {
	e.u8(s.A)
	e.u8(s.F)
	e.u8(s.B)
	e.u8(s.C)
	e.u8(s.D)
	e.u8(s.E)
	e.u8(s.H)
	e.u8(s.L)
	e.u16(s.SP)
	e.u16(s.PC)
	e.boolean(s.InterruptsEnabled)
	e.boolean(s.EIPending)
	e.boolean(s.Stopped)
	e.boolean(s.Halted)
	e.boolean(s.HaltBug)
	e.u64(s.Cycles)
}

func (e *encoder) gpuState(s video.State) {
	e.i32(s.Line)
	e.i32(s.WindowLine)
	e.i32(int(s.Mode))
	e.i32(s.PixelCounter)
	e.i32(s.Cycles)
	e.boolean(s.FrameReady)
}

func (e *encoder) mmuState(s memory.State) {
	e.write(s.Memory)
	e.u8(s.JoypadButtons)
	e.u8(s.JoypadDpad)
	e.u16(s.Timer.SystemCounter)
	e.boolean(s.Timer.LastTimerBit)
	e.i32(s.Timer.TimaOverflow)
	e.boolean(s.Timer.TimaDelayInt)
	e.u8(s.Timer.TIMA)
	e.u8(s.Timer.TMA)
	e.u8(s.Timer.TAC)
	e.boolean(s.DMAActive)
	e.u16(s.DMASource)
	e.u16(s.DMAProgress)
	e.i32(s.DMASubCycle)
	e.bytesPrefixed(s.MBCState)
}

func (e *encoder) channelState(c audio.ChannelSnapshot) {
	e.boolean(c.Enabled)
	e.u16(c.Freq)
	e.u8(c.Volume)
	e.u32(c.Counter)
	e.u8(c.Duty)
	e.u8(c.EnvelopePeriod)
	e.u8(c.EnvelopeDirection)
	e.u8(c.EnvelopeTimer)
	e.u16(c.LengthCounter)
	e.boolean(c.LengthEnabled)
	e.u16(c.NoisePeriod)
}

func (e *encoder) audioState(s audio.State) {
	e.boolean(s.Enabled)
	e.write(s.Registers)
	e.i32(s.FrameCounter)
	e.i32(s.FrameCycles)
	e.i32(s.SampleCycleCounter)
	for i := range s.Channels {
		e.channelState(s.Channels[i])
	}
	e.write(s.Ch3WaveRAM)
	e.u16(s.Ch4LFSR)
}

type decoder struct {
	r   io.Reader
	err error
}

func (d *decoder) read(v any) {
	if d.err != nil {
		return
	}
	d.err = binary.Read(d.r, binary.BigEndian, v)
}

func (d *decoder) u8() uint8 {
	var v uint8
	d.read(&v)
	return v
}
func (d *decoder) u16() uint16 {
	var v uint16
	d.read(&v)
	return v
}
func (d *decoder) u32() uint32 {
	var v uint32
	d.read(&v)
	return v
}
func (d *decoder) u64() uint64 {
	var v uint64
	d.read(&v)
	return v
}
func (d *decoder) i32() int {
	var v int32
	d.read(&v)
	return int(v)
}
func (d *decoder) boolean() bool {
	return d.u8() != 0
}

func (d *decoder) bytesPrefixed() []byte {
	n := d.u32()
	if d.err != nil || n == 0 {
		return nil
	}
	const maxBlob = 16 * 1024 * 1024
	if n > maxBlob {
		d.err = fmt.Errorf("savestate: implausible blob length %d", n)
		return nil
	}
	b := make([]byte, n)
	d.read(b)
	return b
}

func (d *decoder) cpuState() cpu.State {
	var s cpu.State
	s.A = d.u8()
	s.F = d.u8()
	s.B = d.u8()
	s.C = d.u8()
	s.D = d.u8()
	s.E = d.u8()
	s.H = d.u8()
	s.L = d.u8()
	s.SP = d.u16()
	s.PC = d.u16()
	s.InterruptsEnabled = d.boolean()
	s.EIPending = d.boolean()
	s.Stopped = d.boolean()
	s.Halted = d.boolean()
	s.HaltBug = d.boolean()
	s.Cycles = d.u64()
	return s
}

func (d *decoder) gpuState() video.State {
	var s video.State
	s.Line = d.i32()
	s.WindowLine = d.i32()
	s.Mode = video.GpuMode(d.i32())
	s.PixelCounter = d.i32()
	s.Cycles = d.i32()
	s.FrameReady = d.boolean()
	return s
}

func (d *decoder) mmuState() memory.State {
	var s memory.State
	d.read(&s.Memory)
	s.JoypadButtons = d.u8()
	s.JoypadDpad = d.u8()
	s.Timer.SystemCounter = d.u16()
	s.Timer.LastTimerBit = d.boolean()
	s.Timer.TimaOverflow = d.i32()
	s.Timer.TimaDelayInt = d.boolean()
	s.Timer.TIMA = d.u8()
	s.Timer.TMA = d.u8()
	s.Timer.TAC = d.u8()
	s.DMAActive = d.boolean()
	s.DMASource = d.u16()
	s.DMAProgress = d.u16()
	s.DMASubCycle = d.i32()
	s.MBCState = d.bytesPrefixed()
	return s
}

func (d *decoder) channelState() audio.ChannelSnapshot {
	var c audio.ChannelSnapshot
	c.Enabled = d.boolean()
	c.Freq = d.u16()
	c.Volume = d.u8()
	c.Counter = d.u32()
	c.Duty = d.u8()
	c.EnvelopePeriod = d.u8()
	c.EnvelopeDirection = d.u8()
	c.EnvelopeTimer = d.u8()
	c.LengthCounter = d.u16()
	c.LengthEnabled = d.boolean()
	c.NoisePeriod = d.u16()
	return c
}

func (d *decoder) audioState() audio.State {
	var s audio.State
	s.Enabled = d.boolean()
	d.read(&s.Registers)
	s.FrameCounter = d.i32()
	s.FrameCycles = d.i32()
	s.SampleCycleCounter = d.i32()
	for i := range s.Channels {
		s.Channels[i] = d.channelState()
	}
	d.read(&s.Ch3WaveRAM)
	s.Ch4LFSR = d.u16()
	return s
}
