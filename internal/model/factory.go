package model

import (
	"context"
	"fmt"

	"github.com/wgomg/aidetector/internal/classifier"
	"github.com/wgomg/aidetector/internal/config"
	"github.com/wgomg/aidetector/internal/utils"
)

// NewLoader returns the loader for the configured backend. Nothing is started
// until the loader runs, which the classifier adapter does on first use.
func NewLoader(cfg *config.Config, logger *utils.Logger) classifier.Loader {
	return func(ctx context.Context) (classifier.Capability, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		backend, err := newBackend(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("%s backend: %w", cfg.Detector.Backend, err)
		}
		return backend, nil
	}
}

func newBackend(cfg *config.Config, logger *utils.Logger) (Backend, error) {
	switch cfg.Detector.Backend {
	case config.BackendONNX:
		return NewOnnxClassifier(&cfg.Detector.Onnx, logger)
	case config.BackendRemote:
		return NewRemoteClient(cfg, logger)
	case config.BackendPython, "":
		pool := NewPythonWorkerPool(logger, cfg.Detector.Model, &cfg.Detector.Python)
		if err := pool.Initialize(); err != nil {
			return nil, fmt.Errorf("failed to initialize python detector: %w", err)
		}
		return pool, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Detector.Backend)
	}
}

// CloseLoaded closes the adapter's backend if it was ever loaded.
func CloseLoaded(adapter *classifier.Adapter) error {
	capability, ok := adapter.Capability()
	if !ok {
		return nil
	}
	if backend, ok := capability.(Backend); ok {
		return backend.Close()
	}
	return nil
}
