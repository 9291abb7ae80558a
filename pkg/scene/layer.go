package scene

import (
	"image"
	"sort"
)

// Kind is the role of a layer. Its order is the stacking order.
type Kind int

const (
	KindBackground Kind = iota
	KindPhoto
	KindFrame
	KindSticker
)

func (k Kind) String() string {
	switch k {
	case KindBackground:
		return "background"
	case KindPhoto:
		return "photo"
	case KindFrame:
		return "frame"
	case KindSticker:
		return "sticker"
	default:
		return "unknown"
	}
}

// Layer is one element of the scene. Geometry is in canvas pixels at 1×.
// For stickers, X and Y are the unrotated top-left corner and rotation is
// about the sticker's center.
type Layer struct {
	Kind    Kind
	ID      string
	AssetID string
	Image   image.Image

	X, Y          float64
	Width, Height float64
	Scale         float64
	Rotation      float64 // degrees, clockwise

	Selectable bool
}

// Size is the displayed size after scaling.
func (l Layer) Size() (float64, float64) {
	s := l.Scale
	if s == 0 {
		s = 1
	}
	return l.Width * s, l.Height * s
}

// Center is the displayed center point.
func (l Layer) Center() (float64, float64) {
	w, h := l.Size()
	return l.X + w/2, l.Y + h/2
}

// normalize restores background < photo < frame < stickers, keeping the
// relative order of stickers.
func normalize(ls []*Layer) {
	sort.SliceStable(ls, func(i, j int) bool {
		return ls[i].Kind < ls[j].Kind
	})
}
