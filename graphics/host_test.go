package graphics

import "testing"

func TestPaletteRGBClamps(t *testing.T) {
	r, g, b := PaletteRGB(-1)
	if want := Palette[0]; r != want[0] || g != want[1] || b != want[2] {
		t.Fatalf("PaletteRGB(-1) = %d,%d,%d, want palette[0]", r, g, b)
	}
	r, g, b = PaletteRGB(99)
	if want := Palette[15]; r != want[0] || g != want[1] || b != want[2] {
		t.Fatalf("PaletteRGB(99) = %d,%d,%d, want palette[15]", r, g, b)
	}
}

func TestNullHostTracksPenPosition(t *testing.T) {
	h := &NullHost{}
	h.SetPen(3, 4)
	if x, y := h.PenPosition(); x != 3 || y != 4 {
		t.Fatalf("PenPosition = %v,%v, want 3,4", x, y)
	}
	h.LineTo(10, 20)
	if x, y := h.PenPosition(); x != 10 || y != 20 {
		t.Fatalf("after LineTo, PenPosition = %v,%v, want 10,20", x, y)
	}
}
