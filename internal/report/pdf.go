package report

import (
	"fmt"
	"io"
	"math"
	"strings"

	"bilancio/internal/chart"
	"bilancio/internal/core"

	"github.com/go-pdf/fpdf"
)

const (
	margin    = 10.0
	rowHeight = 8.0
	// The core PDF fonts have no rupee glyph.
	pdfCurrency = "Rs. "
)

var (
	primary  = [3]int{52, 152, 219}
	positive = [3]int{46, 204, 113}
	negative = [3]int{231, 76, 60}
	muted    = [3]int{100, 100, 100}
	panel    = [3]int{249, 249, 249}
	rule     = [3]int{221, 221, 221}
)

// WritePDF renders r as an A4 portrait document: title, summary and charts
// on the first page, the detailed tables from the second page on, and a
// "Page i of n" footer on every page.
func WritePDF(w io.Writer, r Report) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, margin)
	pdf.AliasNbPages("")
	tr := textTranslator(pdf)

	pageW, pageH := pdf.GetPageSize()
	pdf.SetFooterFunc(func() {
		pdf.SetFont("Helvetica", "", 10)
		setText(pdf, muted)
		pdf.SetXY(margin, pageH-margin-4)
		pdf.CellFormat(pageW-2*margin, 4, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 20)
	setText(pdf, primary)
	centered(pdf, pageW, margin+10, tr(r.Title))

	pdf.SetFont("Helvetica", "", 12)
	setText(pdf, [3]int{0, 0, 0})
	centered(pdf, pageW, margin+20, r.GeneratedOn())

	y := drawSummary(pdf, tr, pageW, margin+30, r.Summary)
	drawCharts(pdf, tr, pageW, y+10, r.IncomePie, r.ExpensePie)

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	setText(pdf, primary)
	centered(pdf, pageW, margin+10, "Detailed Breakdown")
	drawTables(pdf, tr, pageW, pageH, margin+20, r)

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func textTranslator(pdf *fpdf.Fpdf) func(string) string {
	cp1252 := pdf.UnicodeTranslatorFromDescriptor("")
	return func(s string) string {
		return cp1252(strings.ReplaceAll(s, core.CurrencySymbol, pdfCurrency))
	}
}

func setText(pdf *fpdf.Fpdf, c [3]int) { pdf.SetTextColor(c[0], c[1], c[2]) }

func setFill(pdf *fpdf.Fpdf, c [3]int) { pdf.SetFillColor(c[0], c[1], c[2]) }

func centered(pdf *fpdf.Fpdf, pageW, y float64, text string) {
	pdf.SetXY(margin, y-4)
	pdf.CellFormat(pageW-2*margin, 8, text, "", 0, "C", false, 0, "")
}

// drawSummary draws the three total panels and returns the y below them.
func drawSummary(pdf *fpdf.Fpdf, tr func(string) string, pageW, y float64, s core.Summary) float64 {
	pdf.SetFont("Helvetica", "B", 16)
	setText(pdf, primary)
	centered(pdf, pageW, y+4, "Financial Summary")

	boxW := (pageW - 2*margin) * 0.3
	gap := ((pageW - 2*margin) - 3*boxW) / 4
	top := y + 12
	balanceColor := positive
	if s.Balance.IsNegative() {
		balanceColor = negative
	}
	boxes := []struct {
		label string
		value core.Money
		color [3]int
	}{
		{"Total Income", s.Income, [3]int{0, 0, 0}},
		{"Total Expenses", s.Expenses, [3]int{0, 0, 0}},
		{"Remaining Balance", s.Balance, balanceColor},
	}
	for i, b := range boxes {
		x := margin + gap + float64(i)*(boxW+gap)
		setFill(pdf, panel)
		pdf.RoundedRect(x, top, boxW, 22, 2, "1234", "F")

		pdf.SetFont("Helvetica", "B", 11)
		setText(pdf, [3]int{0, 0, 0})
		pdf.SetXY(x, top+3)
		pdf.CellFormat(boxW, 7, b.label, "", 0, "C", false, 0, "")

		pdf.SetFont("Helvetica", "", 13)
		setText(pdf, b.color)
		pdf.SetXY(x, top+11)
		pdf.CellFormat(boxW, 8, tr(b.value.Format()), "", 0, "C", false, 0, "")
	}

	if s.Overspent() {
		pdf.SetFont("Helvetica", "I", 10)
		setText(pdf, negative)
		centered(pdf, pageW, top+30, core.OverspendWarning)
		return top + 34
	}
	return top + 26
}

func drawCharts(pdf *fpdf.Fpdf, tr func(string) string, pageW, y float64, pies ...chart.Pie) {
	colW := (pageW - 3*margin) / 2
	for i, p := range pies {
		x := margin + float64(i)*(colW+margin)
		pdf.SetFont("Helvetica", "B", 13)
		setText(pdf, primary)
		pdf.SetXY(x, y)
		pdf.CellFormat(colW, 8, p.Title, "", 0, "C", false, 0, "")

		const r = 30.0
		cx, cy := x+colW/2, y+14+r
		drawPie(pdf, cx, cy, r, p)

		pdf.SetFont("Helvetica", "", 9)
		ly := cy + r + 8
		for _, s := range p.Slices {
			if ly > 270 {
				break
			}
			setSliceFill(pdf, s.Color)
			pdf.Rect(x+4, ly-3, 4, 4, "F")
			setText(pdf, [3]int{0, 0, 0})
			pdf.SetXY(x+10, ly-4)
			pdf.CellFormat(colW-10, 6, truncate(pdf, tr(s.Tooltip()), colW-12), "", 0, "L", false, 0, "")
			ly += 6
		}
	}
}

func drawPie(pdf *fpdf.Fpdf, cx, cy, r float64, p chart.Pie) {
	if p.Empty() {
		setFill(pdf, [3]int{236, 240, 241})
		pdf.Circle(cx, cy, r, "F")
		pdf.SetFont("Helvetica", "", 10)
		setText(pdf, [3]int{127, 140, 141})
		pdf.SetXY(cx-r, cy-3)
		pdf.CellFormat(2*r, 6, "No data", "", 0, "C", false, 0, "")
		return
	}
	pdf.SetDrawColor(255, 255, 255)
	for _, w := range p.Wedges() {
		setSliceFill(pdf, w.Color)
		if w.End-w.Start >= 2*math.Pi-1e-9 {
			pdf.Circle(cx, cy, r, "F")
			continue
		}
		pdf.Polygon(wedgePoints(cx, cy, r, w.Start, w.End), "FD")
	}
}

// wedgePoints approximates the arc with segments of at most two degrees.
func wedgePoints(cx, cy, r, start, end float64) []fpdf.PointType {
	steps := int(math.Ceil((end - start) / (math.Pi / 90)))
	if steps < 1 {
		steps = 1
	}
	pts := make([]fpdf.PointType, 0, steps+2)
	pts = append(pts, fpdf.PointType{X: cx, Y: cy})
	for i := 0; i <= steps; i++ {
		a := start + (end-start)*float64(i)/float64(steps)
		x, y := chart.Point(cx, cy, r, a)
		pts = append(pts, fpdf.PointType{X: x, Y: y})
	}
	return pts
}

func setSliceFill(pdf *fpdf.Fpdf, hex string) {
	r, g, b, err := chart.RGB(hex)
	if err != nil {
		r, g, b = 149, 165, 166
	}
	pdf.SetFillColor(r, g, b)
}

type tableRow struct {
	label, amount string
	bold, fill    bool
}

type table struct {
	heading string
	rows    []tableRow
}

func newTable(heading, firstColumn string, entries []core.Entry, tr func(string) string) table {
	t := table{heading: heading}
	t.rows = append(t.rows, tableRow{label: firstColumn, amount: "Amount", bold: true, fill: true})
	var sum core.Money
	for _, e := range entries {
		sum = sum.Add(e.Amount)
		t.rows = append(t.rows, tableRow{label: tr(e.Title), amount: tr(e.Amount.Format())})
	}
	t.rows = append(t.rows, tableRow{label: "Total", amount: tr(sum.Format()), bold: true, fill: true})
	return t
}

// drawTables lays both tables out side by side, continuing on new pages in
// lock step when the rows run past the footer.
func drawTables(pdf *fpdf.Fpdf, tr func(string) string, pageW, pageH, y float64, r Report) {
	colW := (pageW - 3*margin) / 2
	tables := []table{
		newTable("Income Details", "Source", r.Income, tr),
		newTable("Expense Details", "Title", r.Expenses, tr),
	}

	pdf.SetFont("Helvetica", "B", 13)
	setText(pdf, primary)
	for i, t := range tables {
		pdf.SetXY(margin+float64(i)*(colW+margin), y)
		pdf.CellFormat(colW, 8, t.heading, "", 0, "C", false, 0, "")
	}
	y += 10

	n := max(len(tables[0].rows), len(tables[1].rows))
	limit := pageH - margin - 8
	pdf.SetDrawColor(rule[0], rule[1], rule[2])
	setFill(pdf, panel)
	setText(pdf, [3]int{0, 0, 0})
	for i := 0; i < n; i++ {
		if y+rowHeight > limit {
			pdf.AddPage()
			y = margin + 10
		}
		for c, t := range tables {
			if i >= len(t.rows) {
				continue
			}
			row := t.rows[i]
			x := margin + float64(c)*(colW+margin)
			style := ""
			if row.bold {
				style = "B"
			}
			pdf.SetFont("Helvetica", style, 10)
			labelW := colW * 0.6
			pdf.SetXY(x, y)
			pdf.CellFormat(labelW, rowHeight, truncate(pdf, row.label, labelW-2), "B", 0, "L", row.fill, 0, "")
			pdf.CellFormat(colW-labelW, rowHeight, row.amount, "B", 0, "R", row.fill, 0, "")
		}
		y += rowHeight
	}
}

// truncate shortens s with an ellipsis so it fits in width w.
func truncate(pdf *fpdf.Fpdf, s string, w float64) string {
	if pdf.GetStringWidth(s) <= w {
		return s
	}
	for len(s) > 0 && pdf.GetStringWidth(s+"...") > w {
		s = s[:len(s)-1]
	}
	return s + "..."
}
