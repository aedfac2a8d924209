package api

import (
	"errors"
	"net/http"

	"github.com/wgomg/aidetector/internal/analysis"
	"github.com/wgomg/aidetector/internal/classifier"
	"github.com/wgomg/aidetector/internal/extract"
	"github.com/wgomg/aidetector/internal/report"
	"github.com/wgomg/aidetector/internal/utils/httputils"
)

// domainError maps pipeline failures onto HTTP errors. Errors it does not
// recognise are returned unchanged.
func domainError(err error) error {
	switch {
	case errors.Is(err, analysis.ErrEmptyInput):
		return &httputils.HTTPError{Code: http.StatusBadRequest, Message: "Provide text or upload a document."}
	case errors.Is(err, extract.ErrUnsupportedFormat):
		return &httputils.HTTPError{Code: http.StatusUnsupportedMediaType, Message: "Please upload a .docx or .pdf file."}
	case errors.Is(err, classifier.ErrClassificationUnavailable):
		return &httputils.HTTPError{Code: http.StatusServiceUnavailable, Message: "Classification model is unavailable, try again later."}
	case errors.Is(err, report.ErrRenderingFailure):
		return &httputils.HTTPError{Code: http.StatusInternalServerError, Message: "Failed to render the report."}
	default:
		return err
	}
}
