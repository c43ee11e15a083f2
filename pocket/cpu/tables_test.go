package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/kdevbox/pocketcore/pocket/memory"
)

func newTestCPU() *CPU {
	mmu := memory.New()
	return &CPU{bus: mmu}
}

func TestExecLoadReg(t *testing.T) {
	t.Run("register to register", func(t *testing.T) {
		cpu := newTestCPU()
		cpu.c = 0x42
		cycles := execLoadReg(cpu, 0x41) // LD B,C
		assert.Equal(t, uint8(0x42), cpu.b)
		assert.Equal(t, 4, cycles)
	})

	t.Run("memory to register", func(t *testing.T) {
		cpu := newTestCPU()
		cpu.setHL(0xC000)
		cpu.bus.Write(0xC000, 0x99)
		cycles := execLoadReg(cpu, 0x7E) // LD A,(HL)
		assert.Equal(t, uint8(0x99), cpu.a)
		assert.Equal(t, 8, cycles)
	})

	t.Run("register to memory", func(t *testing.T) {
		cpu := newTestCPU()
		cpu.setHL(0xC000)
		cpu.b = 0x55
		cycles := execLoadReg(cpu, 0x70) // LD (HL),B
		assert.Equal(t, uint8(0x55), cpu.bus.Read(0xC000))
		assert.Equal(t, 8, cycles)
	})

	t.Run("0x76 is HALT, not LD (HL),(HL)", func(t *testing.T) {
		cpu := newTestCPU()
		cpu.interruptsEnabled = true
		cycles := execLoadReg(cpu, 0x76)
		assert.True(t, cpu.halted)
		assert.Equal(t, 4, cycles)
	})

	t.Run("self-load is a no-op", func(t *testing.T) {
		cpu := newTestCPU()
		cpu.b = 0x11
		cycles := execLoadReg(cpu, 0x40) // LD B,B
		assert.Equal(t, uint8(0x11), cpu.b)
		assert.Equal(t, 4, cycles)
	})
}

func TestExecALU(t *testing.T) {
	t.Run("ADD A,r", func(t *testing.T) {
		cpu := newTestCPU()
		cpu.a, cpu.b = 0x10, 0x05
		cycles := execALU(cpu, 0x80) // ADD A,B
		assert.Equal(t, uint8(0x15), cpu.a)
		assert.Equal(t, 4, cycles)
	})

	t.Run("CP (HL)", func(t *testing.T) {
		cpu := newTestCPU()
		cpu.setHL(0xC000)
		cpu.a = 0x20
		cpu.bus.Write(0xC000, 0x20)
		cycles := execALU(cpu, 0xBE) // CP (HL)
		assert.True(t, cpu.isSetFlag(zeroFlag))
		assert.Equal(t, uint8(0x20), cpu.a) // CP doesn't mutate A
		assert.Equal(t, 8, cycles)
	})

	t.Run("op order matches ADD,ADC,SUB,SBC,AND,XOR,OR,CP", func(t *testing.T) {
		cpu := newTestCPU()
		cpu.a, cpu.b = 0xFF, 0x01
		execALU(cpu, 0xA8) // XOR B
		assert.Equal(t, uint8(0xFE), cpu.a)
	})
}

func TestExecCB(t *testing.T) {
	t.Run("RLC B", func(t *testing.T) {
		cpu := newTestCPU()
		cpu.b = 0x80
		cycles := execCB(cpu, 0x00)
		assert.Equal(t, uint8(0x01), cpu.b)
		assert.True(t, cpu.isSetFlag(carryFlag))
		assert.Equal(t, 8, cycles)
	})

	t.Run("RLC (HL) costs 16 cycles and writes back through the bus", func(t *testing.T) {
		cpu := newTestCPU()
		cpu.setHL(0xC000)
		cpu.bus.Write(0xC000, 0x80)
		cycles := execCB(cpu, 0x06)
		assert.Equal(t, uint8(0x01), cpu.bus.Read(0xC000))
		assert.Equal(t, 16, cycles)
	})

	t.Run("BIT 0,(HL) costs 12 cycles and does not write back", func(t *testing.T) {
		cpu := newTestCPU()
		cpu.setHL(0xC000)
		cpu.bus.Write(0xC000, 0x01)
		cycles := execCB(cpu, 0x46)
		assert.False(t, cpu.isSetFlag(zeroFlag))
		assert.Equal(t, uint8(0x01), cpu.bus.Read(0xC000))
		assert.Equal(t, 12, cycles)
	})

	t.Run("RES 0,B", func(t *testing.T) {
		cpu := newTestCPU()
		cpu.b = 0x01
		execCB(cpu, 0x80)
		assert.Equal(t, uint8(0x00), cpu.b)
	})

	t.Run("SET 7,A", func(t *testing.T) {
		cpu := newTestCPU()
		cycles := execCB(cpu, 0xFF)
		assert.Equal(t, uint8(0x80), cpu.a)
		assert.Equal(t, 8, cycles)
	})
}

func TestMnemonicsMatchDispatchDecomposition(t *testing.T) {
	assert.Equal(t, "LD B,C", loadRegMnemonic(0x41))
	assert.Equal(t, "HALT", loadRegMnemonic(0x76))
	assert.Equal(t, "LD (HL),A", loadRegMnemonic(0x77))
	assert.Equal(t, "ADD A,B", aluMnemonic(0x80))
	assert.Equal(t, "CP A", aluMnemonic(0xBF))
	assert.Equal(t, "RLC B", cbMnemonic(0x00))
	assert.Equal(t, "BIT 0,B", cbMnemonic(0x40))
	assert.Equal(t, "RES 0,(HL)", cbMnemonic(0x86))
	assert.Equal(t, "SET 7,A", cbMnemonic(0xFF))
}

// TestInstructionTablesCoverEveryOpcode guards against a gap left by the
// keyed-literal opcodes/opcodeNames arrays: every one of the 256 plain and
// 256 CB-prefixed slots must have both a non-nil handler and a non-empty
// mnemonic once init() has run.
func TestInstructionTablesCoverEveryOpcode(t *testing.T) {
	for i := 0; i < 256; i++ {
		assert.NotNil(t, instructions[i].Exec, "instructions[0x%X].Exec is nil", i)
		assert.NotEmpty(t, instructions[i].Mnemonic, "instructions[0x%X].Mnemonic is empty", i)
		assert.NotNil(t, instructionsCB[i].Exec, "instructionsCB[0x%X].Exec is nil", i)
		assert.NotEmpty(t, instructionsCB[i].Mnemonic, "instructionsCB[0x%X].Mnemonic is empty", i)
	}
}
