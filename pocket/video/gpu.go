package video

import (
	"github.com/kdevbox/pocketcore/pocket/addr"
	"github.com/kdevbox/pocketcore/pocket/bit"
	"github.com/kdevbox/pocketcore/pocket/memory"
)

// GpuMode mirrors the two STAT mode bits, so its values double as the mode
// the hardware reports for the current scanline phase.
type GpuMode int

const (
	hblankMode    GpuMode = 0
	vblankMode    GpuMode = 1
	oamSearchMode GpuMode = 2
	vramReadMode  GpuMode = 3
)

const (
	oamScanlineCycles  = 80
	vramScanlineCycles = 172
	hblankCycles       = 204
	scanlineCycles     = oamScanlineCycles + vramScanlineCycles + hblankCycles
)

// GPU drives the DMG picture pipeline: a per-scanline state machine feeding
// a tile-based background/window renderer and a 10-sprite-per-line object
// layer, composited directly into a framebuffer.
type GPU struct {
	memory      *memory.MMU
	oam         *OAM
	framebuffer *FrameBuffer

	line         int
	windowLine   int
	mode         GpuMode
	pixelCounter int
	cycles       int
	frameReady   bool
}

func NewGpu(mmu *memory.MMU) *GPU {
	return &GPU{
		memory:      mmu,
		oam:         NewOAM(mmu),
		framebuffer: NewFrameBuffer(FramebufferWidth, FramebufferHeight),
		mode:        oamSearchMode,
	}
}

// GetFrameBuffer returns the most recently rendered frame.
func (g *GPU) GetFrameBuffer() *FrameBuffer {
	return g.framebuffer
}

// CurrentLine returns the scanline the GPU is currently processing.
func (g *GPU) CurrentLine() int {
	return g.line
}

// SpriteHeight returns the active sprite height (8 or 16) per LCDC bit 2.
func (g *GPU) SpriteHeight() int {
	if bit.IsSet(2, g.memory.Read(addr.LCDC)) {
		return 16
	}
	return 8
}

// State is a snapshot of the scanline state machine's position, separate
// from the STAT/LY/LYC registers the MMU already owns.
type State struct {
	Line         int
	WindowLine   int
	Mode         GpuMode
	PixelCounter int
	Cycles       int
	FrameReady   bool
}

// Snapshot captures the GPU's scanline-machine state.
func (g *GPU) Snapshot() State {
	return State{
		Line:         g.line,
		WindowLine:   g.windowLine,
		Mode:         g.mode,
		PixelCounter: g.pixelCounter,
		Cycles:       g.cycles,
		FrameReady:   g.frameReady,
	}
}

// Restore replaces the GPU's scanline-machine state with a snapshot taken
// by Snapshot. The framebuffer and MMU-owned registers are untouched.
func (g *GPU) Restore(s State) {
	g.line = s.Line
	g.windowLine = s.WindowLine
	g.mode = s.Mode
	g.pixelCounter = s.PixelCounter
	g.cycles = s.Cycles
	g.frameReady = s.FrameReady
}

// ConsumeFrameReady reports whether a frame has completed rendering since
// the last call, clearing the flag in the process.
func (g *GPU) ConsumeFrameReady() bool {
	if g.frameReady {
		g.frameReady = false
		return true
	}
	return false
}

// Tick advances the scanline state machine by the given number of cycles,
// rendering a scanline at the end of its VRAM-read phase and firing the
// VBlank and LCD STAT interrupts at the appropriate points.
func (g *GPU) Tick(cycles int) {
	g.cycles += cycles

	switch g.mode {
	case oamSearchMode:
		if g.cycles >= oamScanlineCycles {
			g.cycles -= oamScanlineCycles
			g.setMode(vramReadMode)
		}
	case vramReadMode:
		if g.cycles >= vramScanlineCycles {
			g.cycles -= vramScanlineCycles
			g.setMode(hblankMode)
			g.drawScanline()
		}
	case hblankMode:
		if g.cycles >= hblankCycles {
			g.cycles -= hblankCycles
			g.advanceLine()

			if g.line == 144 {
				g.setMode(vblankMode)
				g.memory.RequestInterrupt(addr.VBlankInterrupt)
				g.frameReady = true
			} else {
				g.setMode(oamSearchMode)
			}
		}
	case vblankMode:
		if g.cycles >= scanlineCycles {
			g.cycles -= scanlineCycles
			g.advanceLine()

			if g.line > 153 {
				g.line = 0
				g.windowLine = 0
				g.memory.Write(addr.LY, 0)
				g.setMode(oamSearchMode)
			}
		}
	}
}

func (g *GPU) advanceLine() {
	g.line++
	g.memory.Write(addr.LY, byte(g.line))
	g.checkLYC()
}

func (g *GPU) setMode(mode GpuMode) {
	g.mode = mode

	stat := g.memory.Read(addr.STAT)
	stat = (stat &^ 0x03) | byte(mode)
	g.memory.Write(addr.STAT, stat)
}

func (g *GPU) checkLYC() {
	lyc := g.memory.Read(addr.LYC)
	stat := g.memory.Read(addr.STAT)

	if byte(g.line) == lyc {
		stat = bit.Set(2, stat)
		if bit.IsSet(6, stat) {
			g.memory.RequestInterrupt(addr.LCDSTATInterrupt)
		}
	} else {
		stat = bit.Clear(2, stat)
	}

	g.memory.Write(addr.STAT, stat)
}

// drawScanline renders the current line (background, window, then sprites)
// directly into the framebuffer using the palette registers as they stand
// right now - a change to BGP after this call never affects already-drawn
// lines.
func (g *GPU) drawScanline() {
	lcdc := g.memory.Read(addr.LCDC)
	if !bit.IsSet(7, lcdc) {
		return
	}

	if bit.IsSet(0, lcdc) {
		g.pixelCounter = 0
		for g.pixelCounter < FramebufferWidth {
			g.drawBackground()
			g.pixelCounter += 4
		}
	} else {
		for x := 0; x < FramebufferWidth; x++ {
			g.framebuffer.SetPixel(uint(x), uint(g.line), WhiteColor)
		}
	}

	if bit.IsSet(5, lcdc) {
		g.drawWindow()
	}

	if bit.IsSet(1, lcdc) {
		g.drawSprites()
	}
}

// drawBackground renders up to 4 pixels starting at pixelCounter, mirroring
// the hardware pixel fetcher's 4-pixel-per-fetch granularity.
func (g *GPU) drawBackground() {
	for i := 0; i < 4; i++ {
		x := g.pixelCounter + i
		if x >= FramebufferWidth {
			return
		}

		colorIndex := g.backgroundColorIndexAt(x, g.line)
		bgp := g.memory.Read(addr.BGP)
		g.framebuffer.SetPixel(uint(x), uint(g.line), g.applyPalette(bgp, colorIndex))
	}
}

// backgroundColorIndexAt returns the raw (unpaletted) color index of the
// background pixel under screen coordinate (x, y).
func (g *GPU) backgroundColorIndexAt(x, y int) byte {
	lcdc := g.memory.Read(addr.LCDC)

	scx := g.memory.Read(addr.SCX)
	scy := g.memory.Read(addr.SCY)

	bgX := (x + int(scx)) & 0xFF
	bgY := (y + int(scy)) & 0xFF

	tileX := bgX / 8
	tileY := bgY / 8
	pixelX := bgX % 8
	pixelY := bgY % 8

	tileMapBase := addr.TileMap0
	if bit.IsSet(3, lcdc) {
		tileMapBase = addr.TileMap1
	}

	tileMapAddr := tileMapBase + uint16(tileY*32+tileX)
	tileNumber := g.memory.Read(tileMapAddr)

	return g.readTilePixel(lcdc, tileNumber, pixelX, pixelY)
}

// drawWindow overlays the window layer on the current line, using the same
// BGP palette as the background. windowLine tracks the window's own
// internal scanline counter, which only advances on lines the window draws.
func (g *GPU) drawWindow() {
	wy := g.memory.Read(addr.WY)
	if g.line < int(wy) {
		return
	}

	wx := g.memory.Read(addr.WX)
	windowX := int(wx) - 7

	lcdc := g.memory.Read(addr.LCDC)
	tileMapBase := addr.TileMap0
	if bit.IsSet(6, lcdc) {
		tileMapBase = addr.TileMap1
	}

	bgp := g.memory.Read(addr.BGP)
	drew := false

	for screenX := 0; screenX < FramebufferWidth; screenX++ {
		if screenX < windowX {
			continue
		}
		drew = true

		winX := screenX - windowX
		tileX := winX / 8
		tileY := g.windowLine / 8
		pixelX := winX % 8
		pixelY := g.windowLine % 8

		tileMapAddr := tileMapBase + uint16(tileY*32+tileX)
		tileNumber := g.memory.Read(tileMapAddr)

		colorIndex := g.readTilePixel(lcdc, tileNumber, pixelX, pixelY)
		g.framebuffer.SetPixel(uint(screenX), uint(g.line), g.applyPalette(bgp, colorIndex))
	}

	if drew {
		g.windowLine++
	}
}

// drawSprites overlays up to 10 sprites on the current line, honoring
// sprite-to-sprite priority (resolved by OAM) and the sprite-to-background
// priority bit.
func (g *GPU) drawSprites() {
	obp0 := g.memory.Read(addr.OBP0)
	obp1 := g.memory.Read(addr.OBP1)

	sprites := g.oam.GetSpritesForScanline(g.line)

	for i := range sprites {
		sprite := &sprites[i]

		rowInSprite := g.line - int(sprite.Y)
		if sprite.FlipY {
			rowInSprite = sprite.Height - 1 - rowInSprite
		}

		tileIndex := sprite.TileIndex
		if sprite.Height == 16 {
			tileIndex &^= 0x01
			if rowInSprite >= 8 {
				tileIndex++
				rowInSprite -= 8
			}
		}

		tileAddr := addr.TileData0 + uint16(tileIndex)*16
		rowAddr := tileAddr + uint16(rowInSprite*2)
		low := g.memory.Read(rowAddr)
		high := g.memory.Read(rowAddr + 1)

		for pixelX := 0; pixelX < 8; pixelX++ {
			screenX := int(sprite.X) + pixelX
			if screenX < 0 || screenX >= FramebufferWidth {
				continue
			}
			if !sprite.HasPriorityForPixel(pixelX) {
				continue
			}

			bit7Pos := pixelX
			if sprite.FlipX {
				bit7Pos = 7 - pixelX
			}
			colorIndex := extractColorIndex(low, high, bit7Pos)
			if colorIndex == 0 {
				continue
			}

			if sprite.BehindBG {
				if g.backgroundColorIndexAt(screenX, g.line) != 0 {
					continue
				}
			}

			palette := obp0
			if sprite.PaletteOBP1 {
				palette = obp1
			}

			g.framebuffer.SetPixel(uint(screenX), uint(g.line), g.applyPalette(palette, colorIndex))
		}
	}
}

// readTilePixel fetches the color index of one background/window pixel,
// resolving the tile data address per the LCDC tile-data-select bit.
func (g *GPU) readTilePixel(lcdc byte, tileNumber byte, pixelX, pixelY int) byte {
	tileAddr := g.tileDataAddress(lcdc, tileNumber)
	rowAddr := tileAddr + uint16(pixelY*2)

	low := g.memory.Read(rowAddr)
	high := g.memory.Read(rowAddr + 1)

	return extractColorIndex(low, high, pixelX)
}

// tileDataAddress resolves a BG/window tile number to its tile data address.
// Bit 4 of LCDC selects between the unsigned addressing mode (base 0x8000,
// tile numbers 0-255) and the signed mode (base 0x9000, tile numbers -128
// to 127, used for tiles shared with the 0x8800-0x8FFF block).
func (g *GPU) tileDataAddress(lcdc byte, tileNumber byte) uint16 {
	if bit.IsSet(4, lcdc) {
		return addr.TileData0 + uint16(tileNumber)*16
	}

	return uint16(int32(addr.TileData2) + int32(int8(tileNumber))*16)
}

// extractColorIndex decodes the 2-bit color index of the pixel at bitPos
// (0 = leftmost) from a tile row's low/high bit planes.
func extractColorIndex(low, high byte, bitPos int) byte {
	bitIndex := uint8(7 - bitPos)

	var index byte
	if bit.IsSet(bitIndex, low) {
		index |= 1
	}
	if bit.IsSet(bitIndex, high) {
		index |= 2
	}

	return index
}

// applyPalette maps a raw color index through a palette register (BGP,
// OBP0 or OBP1) to its display color.
func (g *GPU) applyPalette(palette byte, colorIndex byte) GBColor {
	shade := (palette >> (colorIndex * 2)) & 0x03
	return ByteToColor(shade)
}
