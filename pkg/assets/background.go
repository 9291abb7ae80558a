package assets

import (
	"fmt"
	"image"

	"github.com/gogpu/gg"
)

// BackgroundKind discriminates the three background styles.
type BackgroundKind string

const (
	Solid    BackgroundKind = "solid"
	Gradient BackgroundKind = "gradient"
	Pattern  BackgroundKind = "pattern"
)

// PatternKind selects the repeating motif of a pattern background.
type PatternKind string

const (
	Dots    PatternKind = "dots"
	Stripes PatternKind = "stripes"
)

// Stop is one color stop of a gradient, offset in [0,1].
type Stop struct {
	Offset float64 `json:"offset"`
	Color  string  `json:"color"`
}

// Background is a canvas backdrop.
type Background struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Kind  BackgroundKind `json:"kind"`
	Color string         `json:"color,omitempty"` // solid fill, or pattern base

	Stops []Stop `json:"stops,omitempty"`

	Pattern PatternKind `json:"pattern,omitempty"`
	Ink     string      `json:"ink,omitempty"`
	Cell    float64     `json:"cell,omitempty"` // repeat distance
	Mark    float64     `json:"mark,omitempty"` // dot radius or stripe width
}

// Decorates reports whether the background is visible enough that the
// photo should be inset to reveal it.
func (b Background) Decorates() bool {
	if b.Kind != Solid {
		return true
	}
	return b.ID != "white" && b.ID != "transparent" && b.Color != "" && b.Color != "#ffffff"
}

// Fill returns the canvas-level fill of a solid background.
func (b Background) Fill() gg.RGBA {
	if b.Kind != Solid || b.Color == "" || b.ID == "transparent" {
		return gg.Transparent
	}
	return gg.Hex(b.Color)
}

// Rasterize paints a gradient or pattern background at w×h.
func (b Background) Rasterize(w, h int) (image.Image, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("background %q: invalid size %dx%d", b.ID, w, h)
	}
	dc := gg.NewContext(w, h)
	defer closeCanvas(dc)

	fw, fh := float64(w), float64(h)
	switch b.Kind {
	case Solid:
		dc.ClearWithColor(b.Fill())
	case Gradient:
		if len(b.Stops) < 2 {
			return nil, fmt.Errorf("background %q: gradient needs two stops", b.ID)
		}
		g := gg.NewLinearGradientBrush(0, 0, fw, fh)
		for _, s := range b.Stops {
			g.AddColorStop(s.Offset, gg.Hex(s.Color))
		}
		dc.SetFillBrush(g)
		dc.DrawRectangle(0, 0, fw, fh)
		if err := dc.Fill(); err != nil {
			return nil, fmt.Errorf("gradient: %w", err)
		}
	case Pattern:
		if err := b.paintPattern(dc, fw, fh); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("background %q: unknown kind %q", b.ID, b.Kind)
	}
	return dc.Image(), nil
}

func (b Background) paintPattern(dc *gg.Context, w, h float64) error {
	cell, mark := b.Cell, b.Mark
	if cell <= 0 || mark <= 0 {
		return fmt.Errorf("background %q: pattern needs cell and mark sizes", b.ID)
	}
	dc.ClearWithColor(gg.Hex(b.Color))
	dc.SetHexColor(b.Ink)
	switch b.Pattern {
	case Dots:
		for y := cell / 2; y < h+cell; y += cell {
			for x := cell / 2; x < w+cell; x += cell {
				dc.DrawCircle(x, y, mark)
			}
		}
	case Stripes:
		for x := 0.0; x < w; x += cell {
			dc.DrawRectangle(x, 0, mark, h)
		}
	default:
		return fmt.Errorf("background %q: unknown pattern %q", b.ID, b.Pattern)
	}
	if err := dc.Fill(); err != nil {
		return fmt.Errorf("pattern: %w", err)
	}
	return nil
}

var backgrounds = []Background{
	{ID: "white", Name: "White", Kind: Solid, Color: "#ffffff"},
	{ID: "transparent", Name: "Transparent", Kind: Solid},
	{ID: "pink-soft", Name: "Soft Pink", Kind: Solid, Color: "#fce7f3"},
	{ID: "blue-soft", Name: "Soft Blue", Kind: Solid, Color: "#dbeafe"},
	{ID: "yellow-soft", Name: "Soft Yellow", Kind: Solid, Color: "#fef3c7"},
	{ID: "green-soft", Name: "Soft Green", Kind: Solid, Color: "#d1fae5"},
	{ID: "purple-soft", Name: "Soft Purple", Kind: Solid, Color: "#e9d5ff"},
	{ID: "sunset", Name: "Sunset", Kind: Gradient, Stops: []Stop{{0, "#ff9a9e"}, {0.5, "#fecfef"}, {1, "#fecfef"}}},
	{ID: "ocean", Name: "Ocean", Kind: Gradient, Stops: []Stop{{0, "#667eea"}, {1, "#764ba2"}}},
	{ID: "cosmic", Name: "Cosmic", Kind: Gradient, Stops: []Stop{{0, "#667eea"}, {1, "#764ba2"}}},
	{ID: "rainbow", Name: "Rainbow", Kind: Gradient, Stops: []Stop{{0, "#ff9a9e"}, {0.25, "#fecfef"}, {0.5, "#fecfef"}, {0.75, "#a8edea"}, {1, "#fed6e3"}}},
	{ID: "polka-dots", Name: "Polka Dots", Kind: Pattern, Pattern: Dots, Color: "#ffffff", Ink: "#fce7f3", Cell: 20, Mark: 3},
	{ID: "stripes", Name: "Stripes", Kind: Pattern, Pattern: Stripes, Color: "#ffffff", Ink: "#f3e8ff", Cell: 40, Mark: 20},
}

// Backgrounds returns the built-in backgrounds.
func Backgrounds() []Background {
	out := make([]Background, len(backgrounds))
	copy(out, backgrounds)
	return out
}

// BackgroundByID finds a built-in background.
func BackgroundByID(id string) (Background, error) {
	for _, b := range backgrounds {
		if b.ID == id {
			return b, nil
		}
	}
	return Background{}, fmt.Errorf("%w: background %q", ErrNotFound, id)
}
