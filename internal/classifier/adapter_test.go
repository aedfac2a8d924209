package classifier

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type stubCapability struct {
	mu        sync.Mutex
	results   []Raw
	err       error
	calls     [][]string
	maxLength []int
}

func (s *stubCapability) ClassifyBatch(_ context.Context, texts []string, maxLength int) ([]Raw, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, append([]string(nil), texts...))
	s.maxLength = append(s.maxLength, maxLength)
	if s.err != nil {
		return nil, s.err
	}
	if s.results != nil {
		return s.results, nil
	}
	out := make([]Raw, len(texts))
	for i := range texts {
		out[i] = Raw{Label: "Real", Score: 0.5}
	}
	return out, nil
}

func loaderFor(c Capability) Loader {
	return func(context.Context) (Capability, error) { return c, nil }
}

func TestClassifyMapsLabelsAndScores(t *testing.T) {
	stub := &stubCapability{results: []Raw{{Label: "Fake", Score: 0.995}, {Label: "Real", Score: 0.1}, {Label: "Human", Score: 0.12}}}
	a := NewAdapter(loaderFor(stub), nil)

	preds, err := a.Classify(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	want := []Prediction{{AI, 99.5}, {Human, 10}, {Human, 12}}
	for i := range want {
		if preds[i].Label != want[i].Label || !approxEqual(preds[i].Score, want[i].Score) {
			t.Fatalf("prediction %d = %+v, want %+v", i, preds[i], want[i])
		}
	}
	if len(stub.calls) != 1 {
		t.Fatalf("expected one batched call, got %d", len(stub.calls))
	}
	if stub.maxLength[0] != MaxTokens {
		t.Fatalf("expected truncation ceiling %d, got %d", MaxTokens, stub.maxLength[0])
	}
}

func TestClassifyClipsLongInputsInsteadOfRejecting(t *testing.T) {
	stub := &stubCapability{}
	a := NewAdapter(loaderFor(stub), nil)

	long := strings.TrimSpace(strings.Repeat("word ", MaxTokens+100))
	if _, err := a.ClassifyOne(context.Background(), long); err != nil {
		t.Fatalf("classify long input: %v", err)
	}
	sent := stub.calls[0][0]
	if got := len(strings.Fields(sent)); got != MaxTokens {
		t.Fatalf("expected input clipped to %d words, got %d", MaxTokens, got)
	}
}

func TestClassifyFailures(t *testing.T) {
	tests := []struct {
		name   string
		loader Loader
	}{
		{"load error", func(context.Context) (Capability, error) { return nil, errors.New("no venv") }},
		{"call error", loaderFor(&stubCapability{err: errors.New("worker died")})},
		{"unknown label", loaderFor(&stubCapability{results: []Raw{{Label: "LABEL_7", Score: 0.9}}})},
		{"length mismatch", loaderFor(&stubCapability{results: []Raw{{Label: "Real", Score: 0.9}, {Label: "Real", Score: 0.9}}})},
		{"score out of range", loaderFor(&stubCapability{results: []Raw{{Label: "Real", Score: 1.5}}})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAdapter(tt.loader, nil)
			_, err := a.ClassifyOne(context.Background(), "text")
			if !errors.Is(err, ErrClassificationUnavailable) {
				t.Fatalf("expected ErrClassificationUnavailable, got %v", err)
			}
		})
	}
}

func TestEmptyBatchSkipsModel(t *testing.T) {
	a := NewAdapter(func(context.Context) (Capability, error) {
		t.Fatal("empty batch must not load the model")
		return nil, nil
	}, nil)
	preds, err := a.Classify(context.Background(), nil)
	if err != nil || len(preds) != 0 {
		t.Fatalf("expected empty result, got %v, %v", preds, err)
	}
	if a.Loaded() {
		t.Fatal("model should not be loaded")
	}
}

func TestModelLoadedOnceAcrossConcurrentRequests(t *testing.T) {
	var loads int32
	stub := &stubCapability{}
	a := NewAdapter(func(context.Context) (Capability, error) {
		atomic.AddInt32(&loads, 1)
		time.Sleep(10 * time.Millisecond)
		return stub, nil
	}, nil)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := a.ClassifyOne(context.Background(), "hello"); err != nil {
				t.Errorf("classify: %v", err)
			}
		}()
	}
	wg.Wait()

	if loads != 1 {
		t.Fatalf("expected a single model load, got %d", loads)
	}
	if !a.Loaded() {
		t.Fatal("expected model to be loaded")
	}
}

type overlapCapability struct {
	active  int32
	overlap int32
	safe    bool
}

func (o *overlapCapability) ClassifyBatch(_ context.Context, texts []string, _ int) ([]Raw, error) {
	if atomic.AddInt32(&o.active, 1) > 1 {
		atomic.StoreInt32(&o.overlap, 1)
	}
	time.Sleep(5 * time.Millisecond)
	atomic.AddInt32(&o.active, -1)
	out := make([]Raw, len(texts))
	for i := range out {
		out[i] = Raw{Label: "Fake", Score: 0.7}
	}
	return out, nil
}

func (o *overlapCapability) SafeForConcurrentUse() bool { return o.safe }

func TestUnsafeCapabilityCallsAreSerialized(t *testing.T) {
	capability := &overlapCapability{safe: false}
	a := NewAdapter(loaderFor(capability), nil)

	var wg sync.WaitGroup
	for range 6 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = a.ClassifyOne(context.Background(), "x")
		}()
	}
	wg.Wait()

	if capability.overlap != 0 {
		t.Fatal("calls to an unsafe capability overlapped")
	}
}

func approxEqual(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}

func TestStatusDuringSlowLoadAndAbandonedWaiter(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	adapter := NewAdapter(func(context.Context) (Capability, error) {
		close(started)
		<-release
		return &stubCapability{}, nil
	}, nil)

	first := make(chan error, 1)
	go func() {
		_, err := adapter.ClassifyOne(context.Background(), "first caller")
		first <- err
	}()
	<-started

	if adapter.Loaded() || !adapter.Loading() {
		t.Fatalf("expected loading state, loaded=%v loading=%v", adapter.Loaded(), adapter.Loading())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := adapter.ClassifyOne(ctx, "impatient caller")
	if !errors.Is(err, ErrClassificationUnavailable) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected unavailable with deadline exceeded, got %v", err)
	}

	close(release)
	if err := <-first; err != nil {
		t.Fatalf("first caller: %v", err)
	}
	if !adapter.Loaded() || adapter.Loading() {
		t.Fatal("expected model loaded after release")
	}
	if rate := adapter.CacheHitRate(); rate != 0 {
		t.Fatalf("only the loading call has completed, hit rate = %f", rate)
	}
}
