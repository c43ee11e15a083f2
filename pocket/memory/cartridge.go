package memory

import "github.com/kdevbox/pocketcore/pocket/bit"

// Cartridge holds the raw ROM image plus the header metadata needed to pick
// and configure the right MBC.
type Cartridge struct {
	data           []byte
	title          string
	headerChecksum uint16
	globalChecksum uint16
	version        uint8
	cartType       uint8
	romSize        uint8
	ramSize        uint8

	mbcType      MBCType
	hasBattery   bool
	hasRTC       bool
	hasRumble    bool
	ramBankCount uint8
}

// NewCartridge creates an empty cartridge, useful only for debugging purposes
// or for an MMU that has no ROM inserted.
func NewCartridge() *Cartridge {
	return &Cartridge{
		data:    make([]byte, 0x8000),
		mbcType: NoMBCType,
	}
}

// NewCartridgeWithData initializes a new Cartridge from a raw ROM image,
// parsing the header at 0x100-0x14F to pick the MBC and its feature set.
func NewCartridgeWithData(data []byte) *Cartridge {
	cart := &Cartridge{
		data: make([]byte, len(data)),
	}
	copy(cart.data, data)

	if len(data) <= globalChecksumAddress+1 {
		// Too small to carry a real header; treat as a bare ROM-only image.
		cart.mbcType = NoMBCType
		return cart
	}

	cart.title = cleanGameboyTitle(data[titleAddress : titleAddress+titleLength])
	cart.headerChecksum = bit.Combine(data[headerChecksumAddress], 0)
	cart.globalChecksum = bit.Combine(data[globalChecksumAddress], data[globalChecksumAddress+1])
	cart.version = data[versionNumberAddress]
	cart.cartType = data[cartridgeTypeAddress]
	cart.romSize = data[romSizeAddress]
	cart.ramSize = data[ramSizeAddress]

	mbcType, hasBattery, hasRTC, hasRumble := decodeCartType(cart.cartType)
	cart.mbcType = mbcType
	cart.hasBattery = hasBattery
	cart.hasRTC = hasRTC
	cart.hasRumble = hasRumble
	cart.ramBankCount = ramBankCountFromCode(cart.ramSize)

	if mbcType == MBC2Type {
		// MBC2's RAM is the built-in 512x4 bits, not bank-counted via 0x149.
		cart.ramBankCount = 1
	}

	return cart
}

// Title returns the cleaned-up game title from the cartridge header.
func (c *Cartridge) Title() string {
	if c.title == "" {
		return "(Untitled)"
	}
	return c.title
}

// VerifyHeaderChecksum reports whether the stored header checksum matches
// the one computed over bytes 0x134-0x14C, the same algorithm the boot ROM
// uses to refuse to run a corrupted cartridge.
func (c *Cartridge) VerifyHeaderChecksum() bool {
	if len(c.data) <= headerChecksumAddress {
		return false
	}

	var sum uint8
	for i := titleAddress; i < headerChecksumAddress; i++ {
		sum = sum - c.data[i] - 1
	}

	return sum == c.data[headerChecksumAddress]
}

// ReadByte reads a byte at the specified address. Does not check bounds, so
// the caller must make sure the address is valid for the cartridge.
func (c *Cartridge) ReadByte(addr uint16) uint8 {
	return c.data[addr]
}
