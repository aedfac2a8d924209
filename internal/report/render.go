package report

import (
	"errors"

	"github.com/wgomg/aidetector/internal/analysis"
)

var ErrRenderingFailure = errors.New("rendering failure")

type Rendered struct {
	Console string
	PDF     []byte
}

// Render produces both outputs for result.
func Render(result analysis.Result) (Rendered, error) {
	pdf, err := WritePDF(result, NewPDFSink())
	if err != nil {
		return Rendered{}, err
	}
	return Rendered{Console: Summary(result), PDF: pdf}, nil
}
