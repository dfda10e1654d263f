package chart

import (
	"fmt"
	"html"
	"math"
	"strings"
)

const (
	svgWidth  = 420
	svgHeight = 240
	pieCX     = 120.0
	pieCY     = 120.0
	pieR      = 100.0
)

// SVG renders the pie with a legend on the right.
func (p Pie) SVG() string {
	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" role="img" aria-label="%s">`,
		svgWidth, svgHeight, html.EscapeString(p.Title))

	if p.Empty() {
		fmt.Fprintf(&b, `<circle cx="%g" cy="%g" r="%g" fill="#ecf0f1"/>`, pieCX, pieCY, pieR)
		fmt.Fprintf(&b, `<text x="%g" y="%g" text-anchor="middle" fill="#7f8c8d">No data</text>`, pieCX, pieCY)
		b.WriteString(`</svg>`)
		return b.String()
	}

	for _, w := range p.Wedges() {
		tip := html.EscapeString(w.Tooltip())
		if w.End-w.Start >= 2*math.Pi-1e-9 {
			fmt.Fprintf(&b, `<circle cx="%g" cy="%g" r="%g" fill="%s" stroke="#f9f9f9" stroke-width="2"><title>%s</title></circle>`,
				pieCX, pieCY, pieR, w.Color, tip)
			continue
		}
		x1, y1 := Point(pieCX, pieCY, pieR, w.Start)
		x2, y2 := Point(pieCX, pieCY, pieR, w.End)
		large := 0
		if w.End-w.Start > math.Pi {
			large = 1
		}
		fmt.Fprintf(&b, `<path d="M%g,%g L%.2f,%.2f A%g,%g 0 %d 1 %.2f,%.2f Z" fill="%s" stroke="#f9f9f9" stroke-width="2"><title>%s</title></path>`,
			pieCX, pieCY, x1, y1, pieR, pieR, large, x2, y2, w.Color, tip)
	}

	for i, s := range p.Slices {
		y := 20 + i*18
		if y > svgHeight-10 {
			break
		}
		fmt.Fprintf(&b, `<circle cx="250" cy="%d" r="6" fill="%s"/>`, y-4, s.Color)
		fmt.Fprintf(&b, `<text x="262" y="%d" font-size="12">%s</text>`, y, html.EscapeString(s.Label))
	}
	b.WriteString(`</svg>`)
	return b.String()
}
