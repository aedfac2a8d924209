package classifier

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wgomg/aidetector/internal/utils"
)

// Adapter normalizes calls to the classification capability. One Adapter is
// meant to live for the whole process; it owns the lazily loaded model.
type Adapter struct {
	model  *utils.Lazy[Capability]
	callMu sync.Mutex
	logger *utils.Logger
}

func NewAdapter(load Loader, logger *utils.Logger) *Adapter {
	if logger == nil {
		logger = utils.NewDiscardLogger()
	}
	a := &Adapter{logger: logger}
	a.model = utils.NewLazy(func(ctx context.Context) (Capability, error) {
		a.logger.Info(nil, "Loading classification model (first use may take a while)")
		start := time.Now()
		capability, err := load(ctx)
		if err != nil {
			a.logger.Error(nil, "Failed to load classification model: %v", err)
			return nil, err
		}
		a.logger.Info(nil, "Classification model ready in %s", time.Since(start).Round(time.Millisecond))
		return capability, nil
	})
	return a
}

// Loaded reports whether the model has been initialized. It never triggers a load.
func (a *Adapter) Loaded() bool {
	return a.model.Loaded()
}

// Loading reports whether the model is being loaded right now.
func (a *Adapter) Loading() bool {
	return a.model.Loading()
}

// CacheHitRate is the share of calls that found the model already loaded.
func (a *Adapter) CacheHitRate() float64 {
	return a.model.HitRate()
}

// Capability returns the loaded model, if any.
func (a *Adapter) Capability() (Capability, bool) {
	return a.model.Peek()
}

// ClassifyOne classifies a single document.
func (a *Adapter) ClassifyOne(ctx context.Context, text string) (Prediction, error) {
	preds, err := a.Classify(ctx, []string{text})
	if err != nil {
		return Prediction{}, err
	}
	return preds[0], nil
}

// Classify classifies a batch in one capability call and returns one
// Prediction per input, in order.
func (a *Adapter) Classify(ctx context.Context, inputs []string) ([]Prediction, error) {
	if len(inputs) == 0 {
		return []Prediction{}, nil
	}

	capability, err := a.model.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load model: %w", ErrClassificationUnavailable, err)
	}

	clipped := make([]string, len(inputs))
	for i, in := range inputs {
		var cut bool
		clipped[i], cut = utils.ClipWords(in, MaxTokens)
		if cut {
			a.logger.Debug(nil, "Input %d clipped before classification: words=%d, estimated_tokens=%d, ceiling=%d",
				i, utils.CountWords(in), utils.EstimateTokensFromWords(utils.CountWords(in)), MaxTokens)
		}
	}

	raws, err := a.call(ctx, capability, clipped)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClassificationUnavailable, err)
	}
	if len(raws) != len(inputs) {
		return nil, fmt.Errorf("%w: capability returned %d results for %d inputs",
			ErrClassificationUnavailable, len(raws), len(inputs))
	}

	preds := make([]Prediction, len(raws))
	for i, raw := range raws {
		label, ok := MapLabel(raw.Label)
		if !ok {
			return nil, fmt.Errorf("%w: unknown label %q", ErrClassificationUnavailable, raw.Label)
		}
		if raw.Score < 0 || raw.Score > 1 {
			return nil, fmt.Errorf("%w: score %f outside [0,1]", ErrClassificationUnavailable, raw.Score)
		}
		preds[i] = Prediction{Label: label, Score: raw.Score * 100}
	}
	return preds, nil
}

func (a *Adapter) call(ctx context.Context, capability Capability, texts []string) ([]Raw, error) {
	if safe, ok := capability.(ConcurrencySafe); ok && safe.SafeForConcurrentUse() {
		return capability.ClassifyBatch(ctx, texts, MaxTokens)
	}
	a.callMu.Lock()
	defer a.callMu.Unlock()
	return capability.ClassifyBatch(ctx, texts, MaxTokens)
}
