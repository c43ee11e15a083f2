package memory

// MBCType identifies the memory bank controller wired on a cartridge,
// decoded from the cartridge type byte at 0x147.
type MBCType uint8

const (
	NoMBCType MBCType = iota
	MBC1Type
	MBC1MultiType
	MBC2Type
	MBC3Type
	MBC5Type
	MBCUnknownType
)

const (
	entryPointAddress       = 0x100
	logoAddress             = 0x104
	titleAddress            = 0x134
	manufacturerCodeAddress = 0x13F
	cgbFlagAddress          = 0x143
	newLicenseCodeAddress   = 0x144
	sgbFlagAddress          = 0x146
	cartridgeTypeAddress    = 0x147
	romSizeAddress          = 0x148
	ramSizeAddress          = 0x149
	destinationCodeAddress  = 0x14A
	oldLicenseCodeAddress   = 0x14B
	versionNumberAddress    = 0x14C
	headerChecksumAddress   = 0x14D
	globalChecksumAddress   = 0x14E
	titleLength             = 16
)

// ramBankCountFromCode maps the 0x149 RAM size code to a bank count, each
// bank being 8KiB. Most licensed carts only ever use 0x00-0x03.
func ramBankCountFromCode(code uint8) uint8 {
	switch code {
	case 0x00:
		return 0
	case 0x01:
		return 1 // unofficial, 2KiB, treated as a single partial bank
	case 0x02:
		return 1
	case 0x03:
		return 4
	case 0x04:
		return 16
	case 0x05:
		return 8
	default:
		return 0
	}
}

// decodeCartType maps the 0x147 cartridge type byte to the MBC family and
// the feature flags (battery-backed RAM, RTC, rumble) that go with it.
func decodeCartType(code uint8) (mbc MBCType, hasBattery, hasRTC, hasRumble bool) {
	switch code {
	case 0x00, 0x08, 0x09:
		return NoMBCType, code != 0x00, false, false
	case 0x01, 0x02:
		return MBC1Type, false, false, false
	case 0x03:
		return MBC1Type, true, false, false
	case 0x05:
		return MBC2Type, false, false, false
	case 0x06:
		return MBC2Type, true, false, false
	case 0x0F, 0x10:
		return MBC3Type, true, true, false
	case 0x11, 0x12:
		return MBC3Type, false, false, false
	case 0x13:
		return MBC3Type, true, false, false
	case 0x19, 0x1A:
		return MBC5Type, false, false, false
	case 0x1B:
		return MBC5Type, true, false, false
	case 0x1C, 0x1D:
		return MBC5Type, false, false, true
	case 0x1E:
		return MBC5Type, true, false, true
	default:
		return MBCUnknownType, false, false, false
	}
}
