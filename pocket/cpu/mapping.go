package cpu

import (
	"fmt"

	"github.com/kdevbox/pocketcore/pocket/bit"
)

// Opcode represents a function that executes an opcode
type Opcode func(*CPU) int

// Instruction pairs an opcode's executable handler with its mnemonic, so
// dispatch and disassembly read from the same table instead of two
// independently-indexed arrays that could drift out of sync.
type Instruction struct {
	Exec     Opcode
	Mnemonic string
}

var instructions, instructionsCB [256]Instruction

func init() {
	for i := range instructions {
		instructions[i] = Instruction{Exec: opcodes[i], Mnemonic: opcodeNames[i]}
	}

	// 0x40-0x7F (LD r,r') and 0x80-0xBF (ALU A,r) are fully regular
	// register grids; both dispatch and their mnemonics are derived from
	// the opcode's bit pattern rather than hand-listed per entry.
	for i := 0x40; i <= 0x7F; i++ {
		opcode := uint8(i)
		instructions[i] = Instruction{
			Exec:     func(c *CPU) int { return execLoadReg(c, opcode) },
			Mnemonic: loadRegMnemonic(opcode),
		}
	}
	for i := 0x80; i <= 0xBF; i++ {
		opcode := uint8(i)
		instructions[i] = Instruction{
			Exec:     func(c *CPU) int { return execALU(c, opcode) },
			Mnemonic: aluMnemonic(opcode),
		}
	}

	// The entire CB-prefixed table is one of four regular quadrants
	// (shift/rotate, BIT, RES, SET), each addressing one of eight
	// operands; execCB and cbMnemonic decode both from the opcode byte.
	for i := range instructionsCB {
		opcode := uint8(i)
		instructionsCB[i] = Instruction{
			Exec:     func(c *CPU) int { return execCB(c, opcode) },
			Mnemonic: cbMnemonic(opcode),
		}
	}
}

// Decode retrieves the instruction identified by the value pointed at by the PC.
// Note: PC must be incremented separately, this is so we can handle the "HALT bug".
func Decode(c *CPU) Opcode {
	// peek PC+1|PC
	instr := c.peekImmediateWord()
	high, low := bit.High(instr), bit.Low(instr)

	// 0xCB is only ever used as a prefix for the next byte.
	if low == 0xCB {
		c.currentOpcode = bit.Combine(0xCB, high)
		return instructionsCB[high].Exec
	}

	c.currentOpcode = bit.Combine(0, low)
	return instructions[low].Exec
}

// opcodes holds the irregular, one-off handlers: 0x00-0x3F and 0xC0-0xFF.
// The two fully regular register grids, 0x40-0x7F and 0x80-0xBF, are
// generated in init() instead of listed here; the 0xC0: key restarts
// indexing past the gap so the remaining entries land at their real
// opcode values.
var opcodes = [256]Opcode{
	opcode0x00, opcode0x01, opcode0x02, opcode0x03, opcode0x04, opcode0x05, opcode0x06, opcode0x07, opcode0x08, opcode0x09, opcode0x0A, opcode0x0B, opcode0x0C, opcode0x0D, opcode0x0E, opcode0x0F,
	opcode0x10, opcode0x11, opcode0x12, opcode0x13, opcode0x14, opcode0x15, opcode0x16, opcode0x17, opcode0x18, opcode0x19, opcode0x1A, opcode0x1B, opcode0x1C, opcode0x1D, opcode0x1E, opcode0x1F,
	opcode0x20, opcode0x21, opcode0x22, opcode0x23, opcode0x24, opcode0x25, opcode0x26, opcode0x27, opcode0x28, opcode0x29, opcode0x2A, opcode0x2B, opcode0x2C, opcode0x2D, opcode0x2E, opcode0x2F,
	opcode0x30, opcode0x31, opcode0x32, opcode0x33, opcode0x34, opcode0x35, opcode0x36, opcode0x37, opcode0x38, opcode0x39, opcode0x3A, opcode0x3B, opcode0x3C, opcode0x3D, opcode0x3E, opcode0x3F,
	0xC0: opcode0xC0, opcode0xC1, opcode0xC2, opcode0xC3, opcode0xC4, opcode0xC5, opcode0xC6, opcode0xC7, opcode0xC8, opcode0xC9, opcode0xCA, opcode0xCB, opcode0xCC, opcode0xCD, opcode0xCE, opcode0xCF,
	opcode0xD0, opcode0xD1, opcode0xD2, opcode0xD3, opcode0xD4, opcode0xD5, opcode0xD6, opcode0xD7, opcode0xD8, opcode0xD9, opcode0xDA, opcode0xDB, opcode0xDC, opcode0xDD, opcode0xDE, opcode0xDF,
	opcode0xE0, opcode0xE1, opcode0xE2, opcode0xE3, opcode0xE4, opcode0xE5, opcode0xE6, opcode0xE7, opcode0xE8, opcode0xE9, opcode0xEA, opcode0xEB, opcode0xEC, opcode0xED, opcode0xEE, opcode0xEF,
	opcode0xF0, opcode0xF1, opcode0xF2, opcode0xF3, opcode0xF4, opcode0xF5, opcode0xF6, opcode0xF7, opcode0xF8, opcode0xF9, opcode0xFA, opcode0xFB, opcode0xFC, opcode0xFD, opcode0xFE, opcode0xFF,
}

// GetOpcodeName returns a string with the opcode name and immediate values
func GetOpcodeName(c *CPU) string {
	code := c.bus.Read(c.pc)

	// 0xCB is only ever used as a prefix for the next byte.
	if code == 0xCB {
		code = c.bus.Read(c.pc + 1)
		n := c.bus.Read(c.pc + 2)
		nn := bit.Combine(c.bus.Read(c.pc+3), n)
		return fmt.Sprintf("0xcb%x (%s) n=0x%x nn=0x%x", code, instructionsCB[code].Mnemonic, n, nn)
	}

	n := c.bus.Read(c.pc + 1)
	nn := bit.Combine(c.bus.Read(c.pc+2), n)
	return fmt.Sprintf("0x%x (%s) n=0x%x nn=0x%x", code, instructions[code].Mnemonic, n, nn)
}

// opcodeNames mirrors opcodes: the irregular 0x00-0x3F and 0xC0-0xFF
// entries only, with 0x40-0xBF generated in init().
var opcodeNames = [256]string{
	"NOP", "LD BC,nn", "LD (BC),A", "INC BC", "INC B", "DEC B", "LD B,n", "RLCA", "LD (nn),SP", "ADD HL,BC", "LD A,(BC)", "DEC BC", "INC C", "DEC C", "LD C,n", "RRCA",
	"STOP", "LD DE,nn", "LD (DE),A", "INC DE", "INC D", "DEC D", "LD D,n", "RLA", "JR n", "ADD HL,DE", "LD A,(DE)", "DEC DE", "INC E", "DEC E", "LD E,n", "RRA",
	"JR NZ,n", "LD HL,nn", "LD (HLI),A", "INC HL", "INC H", "DEC H", "LD H,n", "DAA", "JR Z,n", "ADD HL,HL", "LD A,(HLI)", "DEC HL", "INC L", "DEC L", "LD L,n", "CPL",
	"JR NC,n", "LD SP,nn", "LD (HLD),A", "INC SP", "INC (HL)", "DEC (HL)", "LD (HL),n", "SCF", "JR C,n", "ADD HL,SP", "LD A,(HLD)", "DEC SP", "INC A", "DEC A", "LDA,n", "CCF",
	0xC0: "RET NZ", "POP BC", "JP NZ,nn", "JP nn", "CALL NZ,nn", "PUSH BC", "ADD A,n", "RST ", "RET Z", "RET", "JP Z,nn", "cb opcode", "CALL Z,nn", "CALL nn", "ADC A,n", "RST 0x08",
	"RET NC", "POP DE", "JP NC,nn", "unused opcode", "CALL NC,nn", "PUSH DE", "SUB n", "RST 0x10", "RET C", "RETI", "JP C,nn", "unused opcode", "CALL C,nn", "unused opcode", "SBC A,n", "RST 0x18",
	"LD (0xFF00+n),A", "POP HL", "LD (0xFF00+C),A", "unused opcode", "unused opcode", "PUSH HL", "AND n", "RST 0x20", "ADD SP,n", "JP (HL)", "LD (nn),A", "unused opcode", "unused opcode", "unused opcode", "XOR n", "RST 0x28",
	"LD A,(0xFF00+n)", "POP AF", "LD A,(0xFF00+C)", "DI", "unused opcode", "PUSH AF", "OR n", "RST 0x30", "LD HL,SP", "LD SP,HL", "LD A,(nn)", "EI", "unused opcode", "unused opcode", "CP n", "RST 0x38",
}
