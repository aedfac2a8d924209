package classifier

import (
	"context"
	"errors"
)

// MaxTokens is the truncation ceiling applied to every input of every call.
const MaxTokens = 512

var ErrClassificationUnavailable = errors.New("classification unavailable")

type Label string

const (
	Human Label = "Human"
	AI    Label = "AI"
)

// Raw is one output of the classification capability: its own label
// spelling and a confidence in [0,1].
type Raw struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Prediction is a mapped Raw: Score is a percentage in [0,100].
type Prediction struct {
	Label Label   `json:"label"`
	Score float64 `json:"score"`
}

// Capability is the pretrained model. ClassifyBatch returns exactly one Raw per
// input, in input order, truncating each input to maxLength tokens.
type Capability interface {
	ClassifyBatch(ctx context.Context, texts []string, maxLength int) ([]Raw, error)
}

// ConcurrencySafe is implemented by capabilities that may be called from
// several goroutines at once. Anything else is serialized by the Adapter.
type ConcurrencySafe interface {
	SafeForConcurrentUse() bool
}

// Loader builds the capability on first use.
type Loader func(ctx context.Context) (Capability, error)

// labelTable maps the capability's literal label spellings. The default
// roberta-base-openai-detector head emits "Real" and "Fake".
var labelTable = map[string]Label{
	"Real":  Human,
	"Human": Human,
	"Fake":  AI,
	"AI":    AI,
}

func MapLabel(raw string) (Label, bool) {
	label, ok := labelTable[raw]
	return label, ok
}
