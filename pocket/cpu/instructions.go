package cpu

import "github.com/kdevbox/pocketcore/pocket/bit"

// pushStack pushes a 16 bit value onto the stack, high byte first.
func (c *CPU) pushStack(value uint16) {
	c.sp--
	c.bus.Write(c.sp, bit.High(value))
	c.sp--
	c.bus.Write(c.sp, bit.Low(value))
}

// popStack pops a 16 bit value off the stack.
func (c *CPU) popStack() uint16 {
	low := c.bus.Read(c.sp)
	c.sp++
	high := c.bus.Read(c.sp)
	c.sp++

	return bit.Combine(high, low)
}

func (c *CPU) inc(r *uint8) {
	halfCarry := (*r & 0xF) == 0xF
	*r++

	c.setFlagToCondition(zeroFlag, *r == 0)
	c.setFlagToCondition(halfCarryFlag, halfCarry)
	c.resetFlag(subFlag)
}

func (c *CPU) dec(r *uint8) {
	halfCarry := (*r & 0xF) == 0
	*r--

	c.setFlagToCondition(zeroFlag, *r == 0)
	c.setFlagToCondition(halfCarryFlag, halfCarry)
	c.setFlag(subFlag)
}

func (c *CPU) rlc(r *uint8) {
	carry := *r&0x80 != 0

	*r = (*r << 1) | (*r >> 7)

	c.setFlagToCondition(carryFlag, carry)
	c.setFlagToCondition(zeroFlag, *r == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
}

func (c *CPU) rl(r *uint8) {
	carryIn := c.flagToBit(carryFlag)
	carryOut := *r&0x80 != 0

	*r = (*r << 1) | carryIn

	c.setFlagToCondition(carryFlag, carryOut)
	c.setFlagToCondition(zeroFlag, *r == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
}

func (c *CPU) rrc(r *uint8) {
	carry := *r&0x01 != 0

	*r = (*r >> 1) | (*r << 7)

	c.setFlagToCondition(carryFlag, carry)
	c.setFlagToCondition(zeroFlag, *r == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
}

func (c *CPU) rr(r *uint8) {
	carryIn := c.flagToBit(carryFlag) << 7
	carryOut := *r&0x01 != 0

	*r = (*r >> 1) | carryIn

	c.setFlagToCondition(carryFlag, carryOut)
	c.setFlagToCondition(zeroFlag, *r == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
}

// The plain (non-CB) A-register rotates RLCA, RLA, RRCA and RRA use the same
// rlc/rl/rrc/rr helpers and then clear the zero flag; the CB-prefixed
// rotates keep Z set from the result.

func (c *CPU) sla(r *uint8) {
	carry := *r&0x80 != 0
	*r <<= 1

	c.setFlagToCondition(zeroFlag, *r == 0)
	c.setFlagToCondition(carryFlag, carry)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
}

func (c *CPU) sra(r *uint8) {
	carry := *r&0x01 != 0
	msb := *r & 0x80
	*r = (*r >> 1) | msb

	c.setFlagToCondition(zeroFlag, *r == 0)
	c.setFlagToCondition(carryFlag, carry)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
}

func (c *CPU) srl(r *uint8) {
	carry := *r&0x01 != 0
	*r >>= 1

	c.setFlagToCondition(zeroFlag, *r == 0)
	c.setFlagToCondition(carryFlag, carry)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
}

func (c *CPU) swap(r *uint8) {
	*r = (*r << 4) | (*r >> 4)

	c.setFlagToCondition(zeroFlag, *r == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	c.resetFlag(carryFlag)
}

func (c *CPU) bit(index uint8, value uint8) {
	c.setFlagToCondition(zeroFlag, !bit.IsSet(index, value))
	c.resetFlag(subFlag)
	c.setFlag(halfCarryFlag)
}

func (c *CPU) set(index uint8, r *uint8) {
	*r = bit.Set(index, *r)
}

func (c *CPU) res(index uint8, r *uint8) {
	*r = bit.Reset(index, *r)
}

// addToA adds an 8 bit value to A, setting all relevant flags.
func (c *CPU) addToA(value uint8) {
	a := c.a
	result := a + value

	carry := (uint16(a) + uint16(value)) > 0xFF
	halfCarry := (a&0xF)+(value&0xF) > 0xF

	c.a = result

	c.setFlagToCondition(zeroFlag, result == 0)
	c.resetFlag(subFlag)
	c.setFlagToCondition(carryFlag, carry)
	c.setFlagToCondition(halfCarryFlag, halfCarry)
}

// adc adds an 8 bit value plus the carry flag to A.
func (c *CPU) adc(value uint8) {
	a := c.a
	carryIn := c.flagToBit(carryFlag)
	result := a + value + carryIn

	carry := (uint16(a) + uint16(value) + uint16(carryIn)) > 0xFF
	halfCarry := (a&0xF)+(value&0xF)+carryIn > 0xF

	c.a = result

	c.setFlagToCondition(zeroFlag, result == 0)
	c.resetFlag(subFlag)
	c.setFlagToCondition(carryFlag, carry)
	c.setFlagToCondition(halfCarryFlag, halfCarry)
}

// addToHL adds a 16 bit value to HL, while setting relevant flags.
func (c *CPU) addToHL(value uint16) {
	hl := c.getHL()
	result := hl + value

	carry := (uint32(hl) + uint32(value)) > 0xFFFF
	halfCarry := (hl&0xFFF)+(value&0xFFF) > 0xFFF

	c.resetFlag(subFlag)
	c.setFlagToCondition(carryFlag, carry)
	c.setFlagToCondition(halfCarryFlag, halfCarry)

	c.setHL(result)
}

// sub subtracts value from A and sets all relevant flags.
func (c *CPU) sub(value uint8) {
	a := c.a
	result := a - value

	c.a = result

	c.setFlagToCondition(zeroFlag, result == 0)
	c.setFlag(subFlag)
	c.setFlagToCondition(carryFlag, a < value)
	c.setFlagToCondition(halfCarryFlag, (a&0xF) < (value&0xF))
}

// sbc subtracts value and the carry flag from A.
func (c *CPU) sbc(value uint8) {
	a := c.a
	carryIn := c.flagToBit(carryFlag)
	result := a - value - carryIn

	borrow := uint16(a) < uint16(value)+uint16(carryIn)
	halfBorrow := (a & 0xF) < (value&0xF)+carryIn

	c.a = result

	c.setFlagToCondition(zeroFlag, result == 0)
	c.setFlag(subFlag)
	c.setFlagToCondition(carryFlag, borrow)
	c.setFlagToCondition(halfCarryFlag, halfBorrow)
}

// and performs a bitwise AND between A and value, storing the result in A.
func (c *CPU) and(value uint8) {
	c.a &= value

	c.setFlagToCondition(zeroFlag, c.a == 0)
	c.resetFlag(subFlag)
	c.setFlag(halfCarryFlag)
	c.resetFlag(carryFlag)
}

// or performs a bitwise OR between A and value, storing the result in A.
func (c *CPU) or(value uint8) {
	c.a |= value

	c.setFlagToCondition(zeroFlag, c.a == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	c.resetFlag(carryFlag)
}

// xor performs a bitwise XOR between A and value, storing the result in A.
func (c *CPU) xor(value uint8) {
	c.a ^= value

	c.setFlagToCondition(zeroFlag, c.a == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	c.resetFlag(carryFlag)
}

// cp compares A against value without altering A, only flags.
func (c *CPU) cp(value uint8) {
	a := c.a
	result := a - value

	c.setFlagToCondition(zeroFlag, result == 0)
	c.setFlag(subFlag)
	c.setFlagToCondition(carryFlag, a < value)
	c.setFlagToCondition(halfCarryFlag, (a&0xF) < (value&0xF))
}

// daa adjusts A into valid packed-BCD after an addition or subtraction.
func (c *CPU) daa() {
	a := c.a
	adjust := uint8(0)
	carry := false

	if !c.isSetFlag(subFlag) {
		if c.isSetFlag(halfCarryFlag) || (a&0xF) > 9 {
			adjust |= 0x06
		}
		if c.isSetFlag(carryFlag) || a > 0x99 {
			adjust |= 0x60
			carry = true
		}
		a += adjust
	} else {
		if c.isSetFlag(halfCarryFlag) {
			adjust |= 0x06
		}
		if c.isSetFlag(carryFlag) {
			adjust |= 0x60
			carry = true
		}
		a -= adjust
	}

	c.a = a

	c.setFlagToCondition(zeroFlag, a == 0)
	c.resetFlag(halfCarryFlag)
	c.setFlagToCondition(carryFlag, carry)
}

// jr performs a relative jump using the signed immediate byte.
func (c *CPU) jr() {
	offset := c.readSignedImmediate()
	c.pc = uint16(int32(c.pc) + int32(offset))
}

// jp performs an absolute jump using the immediate word.
func (c *CPU) jp() {
	c.pc = c.readImmediateWord()
}
