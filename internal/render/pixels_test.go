package render

import (
	"image/color"
	"testing"
)

func TestFillPaletteClampsToLastColour(t *testing.T) {
	palette := []color.RGBA{{R: 1, A: 255}, {G: 2, A: 255}}
	buf := make([]byte, 12)
	fillPaletteRGBA(buf, []uint8{0, 1, 7}, palette)
	want := []byte{1, 0, 0, 255, 0, 2, 0, 255, 0, 2, 0, 255}
	for i := range want {
		if buf[i] != want[i] {
			t.Fatalf("buf = %v, want %v", buf, want)
		}
	}
}

func TestFillPaletteEmptyClears(t *testing.T) {
	buf := []byte{9, 9, 9, 9, 9, 9, 9, 9}
	fillPaletteRGBA(buf, []uint8{1, 0}, nil)
	for i, b := range buf {
		if b != 0 {
			t.Fatalf("buf[%d] = %d after clearing", i, b)
		}
	}
}

func TestDefaultPaletteIsBinary(t *testing.T) {
	buf := make([]byte, 8)
	fillPaletteRGBA(buf, []uint8{0, 1}, DefaultPalette)
	if buf[0] != 0 || buf[3] != 255 || buf[4] != 255 || buf[7] != 255 {
		t.Fatalf("buf = %v", buf)
	}
}
