package model

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wgomg/aidetector/internal/classifier"
	"github.com/wgomg/aidetector/internal/config"
	"github.com/wgomg/aidetector/internal/utils"
)

func TestLoaderBuildsRemoteBackendLazily(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write([]byte(`[{"label":"Fake","score":0.995}]`))
	}))
	defer srv.Close()

	cfg := &config.Config{
		App:      config.AppConfig{HttpTimeoutSeconds: 5},
		Detector: config.DetectorConfig{Backend: config.BackendRemote, Remote: config.RemoteConfig{URL: srv.URL}},
	}
	adapter := classifier.NewAdapter(NewLoader(cfg, utils.NewDiscardLogger()), utils.NewDiscardLogger())
	if adapter.Loaded() {
		t.Fatal("backend must not load before first use")
	}

	pred, err := adapter.ClassifyOne(context.Background(), "some text")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if pred.Label != classifier.AI {
		t.Fatalf("expected AI label, got %s", pred.Label)
	}
	if hits != 1 {
		t.Fatalf("expected one remote call, got %d", hits)
	}
	if err := CloseLoaded(adapter); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestLoaderErrorIsClassificationUnavailable(t *testing.T) {
	cfg := &config.Config{Detector: config.DetectorConfig{Backend: config.BackendRemote}}
	adapter := classifier.NewAdapter(NewLoader(cfg, utils.NewDiscardLogger()), nil)

	_, err := adapter.ClassifyOne(context.Background(), "text")
	if !errors.Is(err, classifier.ErrClassificationUnavailable) {
		t.Fatalf("expected ErrClassificationUnavailable, got %v", err)
	}
	if err := CloseLoaded(adapter); err != nil {
		t.Fatalf("closing an unloaded adapter should be a no-op: %v", err)
	}
}
