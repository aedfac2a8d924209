package analysis

import (
	"context"
	"errors"

	"github.com/wgomg/aidetector/internal/classifier"
)

var ErrEmptyInput = errors.New("empty input")

// SentenceResult is the classification of one sentence of the analyzed text.
type SentenceResult struct {
	Sentence    string           `json:"sentence"`
	Label       classifier.Label `json:"label"`
	Score       float64          `json:"score"`
	Originality float64          `json:"originality"`
}

// Result is the outcome of one analysis. Label and Score come from the
// whole-document classification and are never derived from Sentences.
type Result struct {
	Label       classifier.Label `json:"label"`
	Score       float64          `json:"score"`
	Originality float64          `json:"originality"`
	Text        string           `json:"text"`
	Sentences   []SentenceResult `json:"sentences"`
	Paragraphs  []string         `json:"paragraphs"`
}

// Classifier is the part of classifier.Adapter the analyzer needs.
type Classifier interface {
	ClassifyOne(ctx context.Context, text string) (classifier.Prediction, error)
	Classify(ctx context.Context, inputs []string) ([]classifier.Prediction, error)
}

func originality(score float64) float64 {
	return 100 - score
}
