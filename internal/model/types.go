package model

import (
	"fmt"

	"github.com/wgomg/aidetector/internal/classifier"
)

// Backend is a loaded classification capability that owns external resources.
type Backend interface {
	classifier.Capability
	Close() error
}

type APIError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
}
