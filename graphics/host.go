// Package graphics defines the black-box graphics host interface the VM
// calls through CALLFN for every SCREEN/PSET/LINE/CIRCLE/... statement
// (spec.md §6). The VM never touches pixels itself; it only ever talks to
// a Host.
package graphics

// Host is the interface a graphics backend implements. Every method
// corresponds 1:1 to a spec.md §6 call. Implementations may render
// asynchronously internally, but each call must return before the VM
// fetches its next opcode (spec.md §5, Ordering guarantees).
type Host interface {
	EnsureScreen(w, h int) error
	Cls()
	Flush()
	Save(path string) error

	ColorRGB(r, g, b int)
	ColorPalette(index int)
	ColorHSV(h, s, v float64)

	PSet(x, y float64)
	Line(x1, y1, x2, y2 float64)
	LineTo(x2, y2 float64) // shorthand form, continues from the pen position
	Circle(cx, cy, r float64)
	Box(x1, y1, x2, y2 float64, fill bool)
	Paint(x, y float64)

	PenPosition() (x, y float64)
	SetPen(x, y float64)

	PointNonBlack(x, y float64) bool

	TextLocate(x, y int)
	TextPrint(s string)

	SleepMS(n int)
}

// Palette is the fixed 16-entry DOS-style RGB table spec.md §4.4 calls
// for; palette indices passed to graphics calls are clamped to [0,15].
var Palette = [16][3]int{
	{0, 0, 0}, {0, 0, 170}, {0, 170, 0}, {0, 170, 170},
	{170, 0, 0}, {170, 0, 170}, {170, 85, 0}, {170, 170, 170},
	{85, 85, 85}, {85, 85, 255}, {85, 255, 85}, {85, 255, 255},
	{255, 85, 85}, {255, 85, 255}, {255, 255, 85}, {255, 255, 255},
}

// PaletteRGB clamps idx into [0,15] and returns its RGB triple.
func PaletteRGB(idx int) (r, g, b int) {
	if idx < 0 {
		idx = 0
	}
	if idx > 15 {
		idx = 15
	}
	c := Palette[idx]
	return c[0], c[1], c[2]
}

// NullHost is a no-op Host, used by tests and by programs that never
// issue a graphics statement.
type NullHost struct {
	penX, penY float64
}

func (h *NullHost) EnsureScreen(w, h2 int) error        { return nil }
func (h *NullHost) Cls()                                {}
func (h *NullHost) Flush()                              {}
func (h *NullHost) Save(path string) error              { return nil }
func (h *NullHost) ColorRGB(r, g, b int)                {}
func (h *NullHost) ColorPalette(index int)              {}
func (h *NullHost) ColorHSV(hh, s, v float64)            {}
func (h *NullHost) PSet(x, y float64)                   { h.penX, h.penY = x, y }
func (h *NullHost) Line(x1, y1, x2, y2 float64)         { h.penX, h.penY = x2, y2 }
func (h *NullHost) LineTo(x2, y2 float64)               { h.penX, h.penY = x2, y2 }
func (h *NullHost) Circle(cx, cy, r float64)            {}
func (h *NullHost) Box(x1, y1, x2, y2 float64, fill bool) {}
func (h *NullHost) Paint(x, y float64)                  {}
func (h *NullHost) PenPosition() (float64, float64)     { return h.penX, h.penY }
func (h *NullHost) SetPen(x, y float64)                 { h.penX, h.penY = x, y }
func (h *NullHost) PointNonBlack(x, y float64) bool     { return false }
func (h *NullHost) TextLocate(x, y int)                 {}
func (h *NullHost) TextPrint(s string)                  {}
func (h *NullHost) SleepMS(n int)                       {}
