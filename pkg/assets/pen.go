package assets

import "github.com/gogpu/gg"

// pen maps a 100×100 design grid onto the raster so painters can be
// written once at a fixed scale.
type pen struct {
	dc     *gg.Context
	kx, ky float64
}

func newPen(dc *gg.Context, w, h float64) pen {
	return pen{dc: dc, kx: w / 100, ky: h / 100}
}

func (p pen) move(x, y float64) { p.dc.MoveTo(x*p.kx, y*p.ky) }
func (p pen) line(x, y float64) { p.dc.LineTo(x*p.kx, y*p.ky) }
func (p pen) close()            { p.dc.ClosePath() }

func (p pen) quad(cx, cy, x, y float64) {
	p.dc.QuadraticTo(cx*p.kx, cy*p.ky, x*p.kx, y*p.ky)
}

func (p pen) cubic(c1x, c1y, c2x, c2y, x, y float64) {
	p.dc.CubicTo(c1x*p.kx, c1y*p.ky, c2x*p.kx, c2y*p.ky, x*p.kx, y*p.ky)
}

func (p pen) ellipse(x, y, rx, ry float64) {
	p.dc.DrawEllipse(x*p.kx, y*p.ky, rx*p.kx, ry*p.ky)
}

func (p pen) circle(x, y, r float64) { p.ellipse(x, y, r, r) }

func (p pen) rect(x, y, w, h float64) {
	p.dc.DrawRectangle(x*p.kx, y*p.ky, w*p.kx, h*p.ky)
}

// width scales a stroke width from design units.
func (p pen) width(v float64) float64 {
	return v * (p.kx + p.ky) / 2
}

func (p pen) polygon(pts ...float64) {
	for i := 0; i+1 < len(pts); i += 2 {
		if i == 0 {
			p.move(pts[i], pts[i+1])
			continue
		}
		p.line(pts[i], pts[i+1])
	}
	p.close()
}
