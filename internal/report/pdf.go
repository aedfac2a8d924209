package report

import (
	"bytes"
	"strings"

	"github.com/go-pdf/fpdf"
)

// PDFSink draws on an fpdf document. It converts the Sink's bottom-left
// coordinates to fpdf's top-left ones.
type PDFSink struct {
	pdf        *fpdf.Fpdf
	translate  func(string) string
	pageHeight float64
}

func NewPDFSink() *PDFSink {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle("AI Content Detector Report", true)
	pdf.AddPage()
	_, h := pdf.GetPageSize()

	return &PDFSink{
		pdf:        pdf,
		translate:  pdf.UnicodeTranslatorFromDescriptor(""),
		pageHeight: h,
	}
}

func (s *PDFSink) DrawText(x, y float64, text string) {
	s.pdf.Text(x, s.pageHeight-y, s.translate(text))
}

// SetFont accepts PostScript style names such as "Helvetica-Bold".
func (s *PDFSink) SetFont(name string, size float64) {
	family, style := splitFontName(name)
	s.pdf.SetFont(family, style, size)
}

func (s *PDFSink) NewPage() {
	s.pdf.AddPage()
}

func (s *PDFSink) Finish() ([]byte, error) {
	if err := s.pdf.Error(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := s.pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func splitFontName(name string) (family, style string) {
	family, variant, _ := strings.Cut(name, "-")
	switch strings.ToLower(variant) {
	case "bold":
		style = "B"
	case "oblique", "italic":
		style = "I"
	case "boldoblique", "bolditalic":
		style = "BI"
	}
	return family, style
}
