// Package template defines print layouts and the built-in catalog.
package template

import (
	"errors"
	"fmt"
)

// Arrangement is the geometric rule used to place photos on a canvas.
type Arrangement string

const (
	Vertical   Arrangement = "vertical-strip"
	Grid       Arrangement = "grid"
	Single     Arrangement = "single"
	Triangular Arrangement = "triangular"
)

// Orientation of the printed output.
type Orientation string

const (
	Portrait  Orientation = "portrait"
	Landscape Orientation = "landscape"
)

// ErrUnknown is returned by Lookup for ids not in the catalog.
var ErrUnknown = errors.New("unknown template")

// Template describes a print layout. Templates are immutable values.
type Template struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	PrintSize     string      `json:"printSize"`
	AspectRatio   float64     `json:"aspectRatio"`
	Orientation   Orientation `json:"orientation"`
	PhotoCount    int         `json:"photoCount"`
	Arrangement   Arrangement `json:"arrangement"`
	HasBorders    bool        `json:"hasBorders"`
	FlattenOutput bool        `json:"flattenOutput"`
}

// Slots returns how many placement rectangles the arrangement produces.
func (t Template) Slots() int {
	switch t.Arrangement {
	case Single:
		return 1
	case Triangular:
		return 3
	case Vertical, Grid:
		return t.PhotoCount
	default:
		return 0
	}
}

// Multi reports whether the template combines several captures.
func (t Template) Multi() bool {
	return t.PhotoCount > 1
}

// Validate checks that the photo count agrees with the arrangement.
func (t Template) Validate() error {
	if t.PhotoCount < 1 {
		return fmt.Errorf("template %q: photo count %d < 1", t.ID, t.PhotoCount)
	}
	if t.AspectRatio <= 0 {
		return fmt.Errorf("template %q: aspect ratio must be positive", t.ID)
	}
	if n := t.Slots(); n != t.PhotoCount {
		return fmt.Errorf("template %q: %s arrangement has %d slots, want %d", t.ID, t.Arrangement, n, t.PhotoCount)
	}
	return nil
}

var catalog = []Template{
	{ID: "4x1", Name: "Classic Strip", PrintSize: "2x6 in", AspectRatio: 1.0 / 3, Orientation: Portrait, PhotoCount: 4, Arrangement: Vertical, HasBorders: true, FlattenOutput: true},
	{ID: "3x1", Name: "Mini Strip", PrintSize: "2x6 in", AspectRatio: 1.0 / 3, Orientation: Portrait, PhotoCount: 3, Arrangement: Vertical, HasBorders: true, FlattenOutput: true},
	{ID: "2x2", Name: "Photo Grid", PrintSize: "4x6 in", AspectRatio: 2.0 / 3, Orientation: Portrait, PhotoCount: 4, Arrangement: Grid, HasBorders: true, FlattenOutput: true},
	{ID: "3x3", Name: "Trio", PrintSize: "4x6 in", AspectRatio: 2.0 / 3, Orientation: Portrait, PhotoCount: 3, Arrangement: Triangular, HasBorders: true, FlattenOutput: true},
	{ID: "1x1", Name: "Single", PrintSize: "4x6 in", AspectRatio: 2.0 / 3, Orientation: Portrait, PhotoCount: 1, Arrangement: Single, HasBorders: true},
	{ID: "2x3", Name: "Six Grid", PrintSize: "4x6 in", AspectRatio: 2.0 / 3, Orientation: Portrait, PhotoCount: 6, Arrangement: Grid, HasBorders: true, FlattenOutput: true},
}

// Default is the template selected when none is configured.
const Default = "4x1"

// Catalog returns a copy of the built-in templates in display order.
func Catalog() []Template {
	out := make([]Template, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the built-in template with the given id.
func Lookup(id string) (Template, error) {
	for _, t := range catalog {
		if t.ID == id {
			return t, nil
		}
	}
	return Template{}, fmt.Errorf("%w: %q", ErrUnknown, id)
}
