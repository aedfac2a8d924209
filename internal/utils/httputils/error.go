package httputils

import (
	"errors"
	"net/http"
)

type HTTPError struct {
	Code    int
	Message string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// HandleError writes err as a JSON error. Anything that does not wrap an
// *HTTPError is reported as a 500 without leaking its text.
func HandleError(w http.ResponseWriter, err error) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		JSONError(w, httpErr.Code, httpErr.Message)
		return
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		JSONError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}
	JSONError(w, http.StatusInternalServerError, "Internal server error")
}
