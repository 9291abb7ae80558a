package assets

import (
	"fmt"
	"math"

	"github.com/gogpu/gg"
)

func heart(dc *gg.Context, w, h float64) error {
	p := newPen(dc, w, h)
	p.move(50, 88)
	p.cubic(20, 68, 6, 50, 6, 32)
	p.cubic(6, 16, 18, 8, 30, 8)
	p.cubic(40, 8, 47, 14, 50, 22)
	p.cubic(53, 14, 60, 8, 70, 8)
	p.cubic(82, 8, 94, 16, 94, 32)
	p.cubic(94, 50, 80, 68, 50, 88)
	p.close()
	if err := fill(dc, "#ef4444"); err != nil {
		return err
	}
	p.ellipse(30, 28, 8, 5)
	return fill(dc, "#fca5a5")
}

func starPoints(cx, cy, outer, inner float64, n int) []float64 {
	pts := make([]float64, 0, 4*n)
	for i := 0; i < 2*n; i++ {
		r := outer
		if i%2 == 1 {
			r = inner
		}
		a := -math.Pi/2 + float64(i)*math.Pi/float64(n)
		pts = append(pts, cx+r*math.Cos(a), cy+r*math.Sin(a))
	}
	return pts
}

func star(dc *gg.Context, w, h float64) error {
	p := newPen(dc, w, h)
	p.polygon(starPoints(50, 52, 46, 19, 5)...)
	if err := fill(dc, "#facc15"); err != nil {
		return err
	}
	p.polygon(starPoints(50, 52, 46, 19, 5)...)
	return stroke(dc, "#ca8a04", p.width(3))
}

func sunglasses(dc *gg.Context, w, h float64) error {
	p := newPen(dc, w, h)
	return steps(
		func() error {
			p.rect(10, 38, 80, 5)
			return fill(dc, "#111827")
		},
		func() error {
			p.move(12, 40)
			p.line(44, 40)
			p.quad(44, 66, 28, 66)
			p.quad(12, 66, 12, 40)
			p.close()
			p.move(56, 40)
			p.line(88, 40)
			p.quad(88, 66, 72, 66)
			p.quad(56, 66, 56, 40)
			p.close()
			return fill(dc, "#1f2937")
		},
		func() error {
			p.ellipse(22, 47, 5, 3)
			p.ellipse(66, 47, 5, 3)
			return fill(dc, "#6b7280")
		},
	)
}

func mustache(dc *gg.Context, w, h float64) error {
	p := newPen(dc, w, h)
	p.move(50, 46)
	p.cubic(40, 36, 26, 38, 18, 50)
	p.cubic(12, 58, 4, 58, 2, 50)
	p.cubic(6, 66, 30, 68, 50, 56)
	p.cubic(70, 68, 94, 66, 98, 50)
	p.cubic(96, 58, 88, 58, 82, 50)
	p.cubic(74, 38, 60, 36, 50, 46)
	p.close()
	return fill(dc, "#3f2a14")
}

func crown(dc *gg.Context, w, h float64) error {
	p := newPen(dc, w, h)
	return steps(
		func() error {
			p.polygon(10, 78, 10, 30, 30, 52, 50, 20, 70, 52, 90, 30, 90, 78)
			return fill(dc, "#f59e0b")
		},
		func() error {
			p.rect(10, 70, 80, 10)
			return fill(dc, "#d97706")
		},
		func() error {
			p.circle(30, 62, 5)
			p.circle(50, 60, 6)
			p.circle(70, 62, 5)
			return fill(dc, "#dc2626")
		},
	)
}

func partyHat(dc *gg.Context, w, h float64) error {
	p := newPen(dc, w, h)
	return steps(
		func() error {
			p.polygon(50, 8, 82, 88, 18, 88)
			return fill(dc, "#8b5cf6")
		},
		func() error {
			p.polygon(41, 30, 59, 30, 64, 42, 36, 42)
			p.polygon(31, 56, 69, 56, 74, 68, 26, 68)
			return fill(dc, "#fde68a")
		},
		func() error {
			p.circle(50, 8, 7)
			return fill(dc, "#ec4899")
		},
	)
}

func speechBubble(dc *gg.Context, w, h float64) error {
	p := newPen(dc, w, h)
	outline := func() {
		p.ellipse(50, 42, 44, 30)
		p.polygon(28, 64, 20, 92, 46, 70)
	}
	outline()
	if err := fill(dc, "#ffffff"); err != nil {
		return err
	}
	p.ellipse(50, 42, 44, 30)
	if err := stroke(dc, "#111827", p.width(3)); err != nil {
		return err
	}
	p.circle(34, 42, 5)
	p.circle(50, 42, 5)
	p.circle(66, 42, 5)
	return fill(dc, "#111827")
}

func sparkle(dc *gg.Context, w, h float64) error {
	p := newPen(dc, w, h)
	p.polygon(starPoints(50, 50, 46, 8, 4)...)
	if err := fill(dc, "#38bdf8"); err != nil {
		return err
	}
	p.polygon(starPoints(80, 20, 14, 3, 4)...)
	p.polygon(starPoints(22, 78, 10, 2, 4)...)
	return fill(dc, "#a5f3fc")
}

var stickers = []Asset{
	{ID: "heart", Name: "Heart", Category: "love", Kind: KindSticker, Paint: heart},
	{ID: "star", Name: "Star", Category: "fun", Kind: KindSticker, Paint: star},
	{ID: "sunglasses", Name: "Sunglasses", Category: "accessories", Kind: KindSticker, Paint: sunglasses},
	{ID: "mustache", Name: "Mustache", Category: "accessories", Kind: KindSticker, Paint: mustache},
	{ID: "crown", Name: "Crown", Category: "accessories", Kind: KindSticker, Paint: crown},
	{ID: "party-hat", Name: "Party Hat", Category: "fun", Kind: KindSticker, Paint: partyHat},
	{ID: "speech-bubble", Name: "Speech Bubble", Category: "fun", Kind: KindSticker, Paint: speechBubble},
	{ID: "sparkle", Name: "Sparkle", Category: "fun", Kind: KindSticker, Paint: sparkle},
}

// Stickers returns the built-in vector stickers.
func Stickers() []Asset {
	out := make([]Asset, len(stickers))
	copy(out, stickers)
	return out
}

// StickerByID finds a built-in sticker.
func StickerByID(id string) (Asset, error) {
	for _, s := range stickers {
		if s.ID == id {
			return s, nil
		}
	}
	return Asset{}, fmt.Errorf("%w: sticker %q", ErrNotFound, id)
}
