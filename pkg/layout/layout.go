// Package layout computes strip geometry and composes captured frames into
// a single printable image.
package layout

import (
	"image"

	"github.com/tstromberg/fotoautomat/pkg/template"
)

const (
	// DefaultBorder is the outer border width in pixels.
	DefaultBorder = 4
	// DefaultSpacing is the gap between adjacent photos in pixels.
	DefaultSpacing = 10
)

// Geometry is the per-photo size and decoration used for a composition.
type Geometry struct {
	Width   int
	Height  int
	Border  int
	Spacing int
}

func gridRows(n int) int {
	return (n + 1) / 2
}

// CanvasSize returns the canvas dimensions for t given geometry g.
func CanvasSize(t template.Template, g Geometry) (int, int) {
	w, h, b, s := g.Width, g.Height, g.Border, g.Spacing
	switch t.Arrangement {
	case template.Vertical:
		n := t.PhotoCount
		return w + 2*b, n*h + (n-1)*s + 2*b
	case template.Grid:
		rows := gridRows(t.PhotoCount)
		return 2*w + s + 2*b, rows*h + (rows-1)*s + 2*b
	case template.Triangular:
		return 2*w + s + 2*b, 2*h + s + 2*b
	default:
		return w + 2*b, h + 2*b
	}
}

// Placements returns one rectangle per slot in capture order. Every
// rectangle lies inside the canvas reported by CanvasSize and no two overlap.
func Placements(t template.Template, g Geometry) []image.Rectangle {
	w, h, b, s := g.Width, g.Height, g.Border, g.Spacing
	slot := func(left, top int) image.Rectangle {
		return image.Rect(left, top, left+w, top+h)
	}

	switch t.Arrangement {
	case template.Vertical:
		out := make([]image.Rectangle, 0, t.PhotoCount)
		for i := 0; i < t.PhotoCount; i++ {
			out = append(out, slot(b, b+i*(h+s)))
		}
		return out
	case template.Grid:
		out := make([]image.Rectangle, 0, t.PhotoCount)
		for i := 0; i < t.PhotoCount; i++ {
			col, row := i%2, i/2
			out = append(out, slot(b+col*(w+s), b+row*(h+s)))
		}
		return out
	case template.Triangular:
		cw, _ := CanvasSize(t, g)
		return []image.Rectangle{
			slot((cw-w)/2, b),
			slot(b, b+h+s),
			slot(b+w+s, b+h+s),
		}
	default:
		return []image.Rectangle{slot(b, b)}
	}
}
