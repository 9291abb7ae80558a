package assets

import (
	"fmt"

	"github.com/gogpu/gg"
)

// ring fills the area between the canvas edge and an inset window, leaving
// the window transparent so the photo shows through.
func ring(dc *gg.Context, w, h, left, top, right, bottom float64) error {
	dc.DrawRectangle(0, 0, w, h)
	dc.DrawRectangle(left, top, w-left-right, h-top-bottom)
	dc.SetFillRule(gg.FillRuleEvenOdd)
	err := dc.Fill()
	dc.SetFillRule(gg.FillRuleNonZero)
	return err
}

func polaroid(dc *gg.Context, w, h float64) error {
	side := w * 0.06
	dc.SetHexColor("#ffffff")
	if err := ring(dc, w, h, side, side, side, h*0.2); err != nil {
		return err
	}
	dc.DrawRectangle(side, side, w-2*side, h-side-h*0.2)
	return stroke(dc, "#e5e7eb", 2)
}

func vintage(dc *gg.Context, w, h float64) error {
	m := w * 0.08
	dc.SetHexColor("#c2a27a")
	if err := ring(dc, w, h, m, m, m, m); err != nil {
		return err
	}
	dc.DrawRectangle(m/3, m/3, w-2*m/3, h-2*m/3)
	if err := stroke(dc, "#8b6b45", 3); err != nil {
		return err
	}
	dc.DrawRectangle(m, m, w-2*m, h-2*m)
	return stroke(dc, "#5c4630", 2)
}

func gold(dc *gg.Context, w, h float64) error {
	m := w * 0.07
	g := gg.NewLinearGradientBrush(0, 0, w, h).
		AddColorStop(0, gg.Hex("#f9d976")).
		AddColorStop(0.5, gg.Hex("#b8860b")).
		AddColorStop(1, gg.Hex("#f9d976"))
	dc.SetFillBrush(g)
	if err := ring(dc, w, h, m, m, m, m); err != nil {
		return err
	}
	dc.DrawRectangle(m, m, w-2*m, h-2*m)
	return stroke(dc, "#8a6d1d", 3)
}

var frames = []Asset{
	{ID: "none", Name: "None", Kind: KindFrame},
	{ID: "polaroid", Name: "Polaroid", Kind: KindFrame, Paint: polaroid},
	{ID: "vintage", Name: "Vintage", Kind: KindFrame, Paint: vintage},
	{ID: "gold", Name: "Gold", Kind: KindFrame, Paint: gold},
}

// Frames returns the built-in frames, starting with "none".
func Frames() []Asset {
	out := make([]Asset, len(frames))
	copy(out, frames)
	return out
}

// FrameByID finds a built-in frame.
func FrameByID(id string) (Asset, error) {
	for _, f := range frames {
		if f.ID == id {
			return f, nil
		}
	}
	return Asset{}, fmt.Errorf("%w: frame %q", ErrNotFound, id)
}
