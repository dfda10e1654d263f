// Package chart turns ledger entries into labeled pie series.
package chart

import (
	"fmt"
	"math"
	"strconv"

	"bilancio/internal/core"
)

// Palettes used for the two ledger sequences; colours cycle when there are
// more slices than colours.
var (
	IncomePalette = []string{
		"#3498db", "#2980b9", "#1abc9c", "#16a085",
		"#2ecc71", "#27ae60", "#f1c40f", "#f39c12",
		"#e67e22", "#d35400", "#9b59b6", "#8e44ad",
	}
	ExpensePalette = []string{
		"#e74c3c", "#c0392b", "#f1c40f", "#f39c12",
		"#e67e22", "#d35400", "#3498db", "#2980b9",
		"#9b59b6", "#8e44ad", "#1abc9c", "#16a085",
	}
)

type Slice struct {
	Label   string
	Value   core.Money
	Percent int
	Color   string
}

type Pie struct {
	Title  string
	Total  core.Money
	Slices []Slice
}

// NewPie builds one slice per entry, in entry order.
func NewPie(title string, entries []core.Entry, palette []string) Pie {
	p := Pie{Title: title, Slices: make([]Slice, 0, len(entries))}
	for _, e := range entries {
		p.Total = p.Total.Add(e.Amount)
	}
	for i, e := range entries {
		color := "#95a5a6"
		if len(palette) > 0 {
			color = palette[i%len(palette)]
		}
		p.Slices = append(p.Slices, Slice{
			Label:   e.Title,
			Value:   e.Amount,
			Percent: percent(e.Amount, p.Total),
			Color:   color,
		})
	}
	return p
}

// ForKind picks the title and palette matching the ledger sequence.
func ForKind(kind core.Kind, entries []core.Entry) Pie {
	if kind == core.Income {
		return NewPie("Income Distribution", entries, IncomePalette)
	}
	return NewPie("Expense Distribution", entries, ExpensePalette)
}

func (p Pie) Empty() bool {
	return p.Total.Cents <= 0
}

// Tooltip renders "label: ₹amount (pct%)".
func (s Slice) Tooltip() string {
	return fmt.Sprintf("%s: %s (%d%%)", s.Label, s.Value.Format(), s.Percent)
}

func percent(v, total core.Money) int {
	if total.Cents <= 0 {
		return 0
	}
	return int(math.Floor(float64(v.Cents)*100/float64(total.Cents) + 0.5))
}

// RGB parses a "#rrggbb" colour.
func RGB(hex string) (r, g, b int, err error) {
	if len(hex) != 7 || hex[0] != '#' {
		return 0, 0, 0, fmt.Errorf("invalid colour %q", hex)
	}
	v, err := strconv.ParseUint(hex[1:], 16, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid colour %q: %w", hex, err)
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff), nil
}

// Wedge is one slice in angular form, starting at twelve o'clock and
// running clockwise. Angles are in radians.
type Wedge struct {
	Slice
	Start, End float64
}

// Wedges lays the slices out around the circle.
func (p Pie) Wedges() []Wedge {
	if p.Empty() {
		return nil
	}
	out := make([]Wedge, 0, len(p.Slices))
	angle := 0.0
	for _, s := range p.Slices {
		sweep := 2 * math.Pi * float64(s.Value.Cents) / float64(p.Total.Cents)
		out = append(out, Wedge{Slice: s, Start: angle, End: angle + sweep})
		angle += sweep
	}
	return out
}

// Point returns the coordinates at angle a on a circle of radius r centred
// at (cx, cy), with y growing downwards.
func Point(cx, cy, r, a float64) (float64, float64) {
	return cx + r*math.Sin(a), cy - r*math.Cos(a)
}
