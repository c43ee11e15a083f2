package pocket

import (
	"io"
	"io/ioutil"
	"log/slog"
	"strings"

	"github.com/kdevbox/pocketcore/pocket/audio"
	"github.com/kdevbox/pocketcore/pocket/cpu"
	"github.com/kdevbox/pocketcore/pocket/debug"
	"github.com/kdevbox/pocketcore/pocket/input/action"
	"github.com/kdevbox/pocketcore/pocket/memory"
	"github.com/kdevbox/pocketcore/pocket/savestate"
	"github.com/kdevbox/pocketcore/pocket/timing"
	"github.com/kdevbox/pocketcore/pocket/video"
)

// DMG represents the root struct and entry point for running the emulation.
// The name matches the console it models: the original 1989 Game Boy
// hardware revision.
type DMG struct {
	cpu *cpu.CPU
	gpu *video.GPU
	mem *memory.MMU

	limiter          timing.Limiter
	frameCount       uint64
	instructionCount uint64

	savePath string
}

func (d *DMG) init() {
	d.cpu = cpu.New(d.mem)
	d.gpu = video.NewGpu(d.mem)
	d.limiter = timing.NewTickerLimiter()
	d.mem.SetBatteryRAMChangedCallback(d.persistBatteryRAM)
}

// New creates a new emulator instance with no cartridge loaded.
func New() *DMG {
	d := &DMG{mem: memory.NewWithCartridge(memory.NewCartridge())}
	d.init()
	return d
}

// NewWithFile creates a new emulator instance and loads the ROM at path into
// it. If the cartridge is battery-backed, a sibling ".sav" file is loaded
// into external RAM when present and re-written every time the cartridge
// latches RAM disabled (the save signal real software gives us). A save
// file whose size doesn't match the cartridge's declared RAM size is
// discarded rather than applied, since garbage RAM is worse than none.
func NewWithFile(path string) (*DMG, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}

	slog.Info("Loaded ROM", "bytes", len(data))

	d := &DMG{
		mem:      memory.NewWithCartridge(memory.NewCartridgeWithData(data)),
		savePath: saveFilePath(path),
	}
	d.init()

	if d.mem.HasBatteryBackedRAM() {
		if saved, err := ioutil.ReadFile(d.savePath); err == nil {
			want := len(d.mem.ExternalRAM())
			if len(saved) == want {
				d.mem.LoadExternalRAM(saved)
				slog.Info("Loaded battery RAM", "path", d.savePath, "bytes", len(saved))
			} else {
				slog.Warn("Discarding save RAM with mismatched size",
					"path", d.savePath, "got", len(saved), "want", want)
			}
		}
	}

	return d, nil
}

// saveFilePath derives the battery-RAM save path for a ROM path by
// replacing its extension with ".sav".
func saveFilePath(romPath string) string {
	if idx := strings.LastIndex(romPath, "."); idx > strings.LastIndex(romPath, "/") {
		return romPath[:idx] + ".sav"
	}
	return romPath + ".sav"
}

// persistBatteryRAM writes the cartridge's external RAM to the save path,
// invoked synchronously whenever the MMU reports a RAM-enable-to-disabled
// transition on a battery-backed cartridge.
func (d *DMG) persistBatteryRAM(ram []byte) {
	if d.savePath == "" {
		return
	}
	if err := ioutil.WriteFile(d.savePath, ram, 0o644); err != nil {
		slog.Warn("Failed to persist battery RAM", "path", d.savePath, "err", err)
	}
}

// Save writes a versioned snapshot of the entire emulator state to w.
func (d *DMG) Save(w io.Writer) error {
	return savestate.Save(w, savestate.Snapshot{
		CPU:         d.cpu.Snapshot(),
		GPU:         d.gpu.Snapshot(),
		MMU:         d.mem.Snapshot(),
		Audio:       d.mem.APU.Snapshot(),
		ExternalRAM: d.mem.ExternalRAM(),
	})
}

// Load restores emulator state previously written by Save. It must be
// called against a DMG that already has the same cartridge loaded; the
// snapshot only carries mutable state, not ROM contents. On any error
// (including a version mismatch) the emulator's current state is left
// untouched.
func (d *DMG) Load(r io.Reader) error {
	snap, err := savestate.Load(r)
	if err != nil {
		return err
	}

	if err := d.mem.Restore(snap.MMU); err != nil {
		return err
	}
	d.cpu.Restore(snap.CPU)
	d.gpu.Restore(snap.GPU)
	d.mem.APU.Restore(snap.Audio)
	if len(snap.ExternalRAM) > 0 {
		d.mem.LoadExternalRAM(snap.ExternalRAM)
	}
	return nil
}

// RunUntilFrame advances emulation until a new frame has been rendered,
// then waits for the configured frame limiter before returning.
func (d *DMG) RunUntilFrame() error {
	for {
		cycles := d.cpu.Tick()
		d.instructionCount++

		d.mem.Tick(cycles)
		d.gpu.Tick(cycles)
		d.mem.APU.Tick(cycles)

		if d.gpu.ConsumeFrameReady() {
			break
		}
	}

	d.frameCount++

	if d.limiter != nil {
		d.limiter.WaitForNextFrame()
	}

	return nil
}

// GetCurrentFrame returns the most recently rendered frame.
func (d *DMG) GetCurrentFrame() *video.FrameBuffer {
	return d.gpu.GetFrameBuffer()
}

// HandleAction routes a Game Boy button action to the joypad register.
func (d *DMG) HandleAction(act action.Action, pressed bool) {
	key, ok := gbButtonToJoypadKey(act)
	if !ok {
		return
	}

	if pressed {
		d.mem.HandleKeyPress(key)
	} else {
		d.mem.HandleKeyRelease(key)
	}
}

// HandleKeyPress presses a joypad button directly.
func (d *DMG) HandleKeyPress(key memory.JoypadKey) {
	d.mem.HandleKeyPress(key)
}

// HandleKeyRelease releases a joypad button directly.
func (d *DMG) HandleKeyRelease(key memory.JoypadKey) {
	d.mem.HandleKeyRelease(key)
}

func gbButtonToJoypadKey(act action.Action) (memory.JoypadKey, bool) {
	switch act {
	case action.GBButtonA:
		return memory.JoypadA, true
	case action.GBButtonB:
		return memory.JoypadB, true
	case action.GBButtonStart:
		return memory.JoypadStart, true
	case action.GBButtonSelect:
		return memory.JoypadSelect, true
	case action.GBDPadUp:
		return memory.JoypadUp, true
	case action.GBDPadDown:
		return memory.JoypadDown, true
	case action.GBDPadLeft:
		return memory.JoypadLeft, true
	case action.GBDPadRight:
		return memory.JoypadRight, true
	default:
		return 0, false
	}
}

// ExtractDebugData snapshots CPU, OAM, VRAM and a window of memory starting at
// the program counter for use by debug displays. Returns nil if the
// emulator has not been initialized.
func (d *DMG) ExtractDebugData() *debug.CompleteDebugData {
	if d.cpu == nil || d.mem == nil || d.gpu == nil {
		return nil
	}

	cpuState := &debug.CPUState{
		A: d.cpu.GetA(), F: d.cpu.GetF(),
		B: d.cpu.GetB(), C: d.cpu.GetC(),
		D: d.cpu.GetD(), E: d.cpu.GetE(),
		H: d.cpu.GetH(), L: d.cpu.GetL(),
		SP:     d.cpu.GetSP(),
		PC:     d.cpu.GetPC(),
		IME:    d.cpu.GetIME(),
		Cycles: d.cpu.GetCycles(),
	}

	const snapshotSize = 200
	size := snapshotSize
	if uint32(cpuState.PC)+uint32(size) > 0x10000 {
		size = int(0x10000 - uint32(cpuState.PC))
	}

	snapshotBytes := make([]byte, size)
	for i := 0; i < size; i++ {
		snapshotBytes[i] = d.mem.Read(cpuState.PC + uint16(i))
	}

	return &debug.CompleteDebugData{
		OAM:             debug.ExtractOAMData(d.mem, d.gpu.CurrentLine(), d.gpu.SpriteHeight()),
		VRAM:            debug.ExtractVRAMData(d.mem),
		CPU:             cpuState,
		Memory:          &debug.MemorySnapshot{StartAddr: cpuState.PC, Bytes: snapshotBytes},
		InterruptEnable: d.cpu.GetIE(),
		InterruptFlags:  d.cpu.GetIF(),
	}
}

// SetFrameLimiter overrides the pacing strategy used between frames. A nil
// limiter disables pacing entirely, useful for benchmarks.
func (d *DMG) SetFrameLimiter(limiter timing.Limiter) {
	if limiter == nil {
		d.limiter = timing.NewNoOpLimiter()
	} else {
		d.limiter = limiter
	}
}

// ResetFrameTiming resets the frame limiter's internal pacing state.
func (d *DMG) ResetFrameTiming() {
	if d.limiter != nil {
		d.limiter.Reset()
	}
}

// GetAudioProvider exposes the APU for audio backends.
func (d *DMG) GetAudioProvider() audio.Provider {
	return d.mem.APU
}

// GetFrameCount returns the number of frames rendered so far.
func (d *DMG) GetFrameCount() uint64 {
	return d.frameCount
}

// GetInstructionCount returns the number of CPU instructions executed so far.
func (d *DMG) GetInstructionCount() uint64 {
	return d.instructionCount
}

var _ Emulator = (*DMG)(nil)
