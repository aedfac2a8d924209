package httputils

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/wgomg/aidetector/internal/utils"
)

// MediaType returns the request's media type without parameters.
func MediaType(r *http.Request) string {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return mediaType
}

func DecodeJSON(r *http.Request, v any) error {
	if MediaType(r) != "application/json" {
		return &HTTPError{
			Code:    http.StatusUnsupportedMediaType,
			Message: "Content-Type must be application/json",
		}
	}

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return err
		}
		return &HTTPError{
			Code:    http.StatusBadRequest,
			Message: "Invalid JSON payload: " + err.Error(),
		}
	}
	return nil
}

// LimitBody caps the number of bytes the handler may read from the body.
func LimitBody(w http.ResponseWriter, r *http.Request, maxBytes int64) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
}

// ParseMultipart parses a multipart body, keeping up to maxMemory bytes in
// memory. Oversized bodies keep their *http.MaxBytesError.
func ParseMultipart(r *http.Request, maxMemory int64) error {
	err := r.ParseMultipartForm(maxMemory)
	if err == nil {
		return nil
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return err
	}
	return &HTTPError{Code: http.StatusBadRequest, Message: "Invalid multipart form: " + err.Error()}
}

// ReadUpload returns the named file of a parsed multipart form. ok is false
// when the field is absent or was sent without a file name.
func ReadUpload(r *http.Request, field string) (name string, data []byte, ok bool, err error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil, false, nil
	}
	if err != nil {
		return "", nil, false, &HTTPError{Code: http.StatusBadRequest, Message: "Invalid upload: " + err.Error()}
	}
	defer file.Close()

	if header.Filename == "" {
		return "", nil, false, nil
	}
	data, err = io.ReadAll(file)
	if err != nil {
		return "", nil, false, err
	}
	return header.Filename, data, true, nil
}

func LogRequestBody(r *http.Request, logger *utils.Logger, reqID *string) ([]byte, error) {
	if !logger.RawBodyLog {
		return nil, nil
	}

	bodyBytes, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

	logger.Debug(reqID, "Raw request body: %s", string(bodyBytes))

	return bodyBytes, nil
}
