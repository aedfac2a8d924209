package report

import (
	"fmt"

	"github.com/wgomg/aidetector/internal/analysis"
)

// Sink is a drawing surface. Coordinates are in points with the origin at the
// bottom-left corner of the page.
type Sink interface {
	DrawText(x, y float64, s string)
	SetFont(name string, size float64)
	NewPage()
	Finish() ([]byte, error)
}

// A4 portrait, in points.
const (
	PageWidth  = 595.28
	PageHeight = 841.89
	Margin     = 40.0
	WrapWidth  = 90

	// A line is never started below Margin + bottomGuard.
	bottomGuard = 20.0
)

const (
	fontRegular = "Helvetica"
	fontBold    = "Helvetica-Bold"
)

// Paginator emits lines top to bottom and starts a new page whenever the
// cursor has dropped below the bottom margin. It knows nothing about the sink
// beyond the Sink interface.
type Paginator struct {
	sink       Sink
	pageHeight float64
	margin     float64
	y          float64
	pages      int

	font     string
	fontSize float64
}

func NewPaginator(sink Sink, pageHeight, margin float64) *Paginator {
	return &Paginator{
		sink:       sink,
		pageHeight: pageHeight,
		margin:     margin,
		y:          pageHeight - margin,
		pages:      1,
	}
}

func (p *Paginator) SetFont(name string, size float64) {
	p.font, p.fontSize = name, size
	p.sink.SetFont(name, size)
}

// Line draws text at the left margin and moves the cursor down by advance.
func (p *Paginator) Line(text string, advance float64) {
	if p.y < p.margin+bottomGuard {
		p.PageBreak()
	}
	p.sink.DrawText(p.margin, p.y, text)
	p.y -= advance
}

// PageBreak starts a new page with the cursor at the top margin and the
// current font re-applied.
func (p *Paginator) PageBreak() {
	p.sink.NewPage()
	p.pages++
	p.y = p.pageHeight - p.margin
	if p.font != "" {
		p.sink.SetFont(p.font, p.fontSize)
	}
}

func (p *Paginator) Pages() int { return p.pages }

// Layout writes the report for result through p.
func Layout(p *Paginator, result analysis.Result) {
	p.SetFont(fontBold, 20)
	p.Line("AI Content Detector Report", 30)

	p.SetFont(fontRegular, 12)
	p.Line(fmt.Sprintf("Result: %s", result.Label), 16)
	p.Line(fmt.Sprintf("Confidence: %.2f%%", result.Score), 24)

	p.SetFont(fontBold, 14)
	p.Line("Analyzed Text", 18)

	p.SetFont(fontRegular, 10)
	for _, line := range Wrap(result.Text, WrapWidth) {
		p.Line(line, 14)
	}
}

// WritePDF lays the report out on an A4 sink and returns the finished
// document. On failure nothing is returned.
func WritePDF(result analysis.Result, sink Sink) ([]byte, error) {
	Layout(NewPaginator(sink, PageHeight, Margin), result)
	out, err := sink.Finish()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderingFailure, err)
	}
	return out, nil
}
