package analysis

import (
	"context"
	"errors"
	"math"
	"reflect"
	"sync"
	"testing"

	"github.com/wgomg/aidetector/internal/classifier"
	"github.com/wgomg/aidetector/internal/segment"
	"github.com/wgomg/aidetector/internal/utils"
)

// stubModel answers from a fixed table keyed by input text and records every batch.
type stubModel struct {
	mu       sync.Mutex
	answers  map[string]classifier.Raw
	fallback classifier.Raw
	batches  [][]string
	err      error
}

func (s *stubModel) ClassifyBatch(ctx context.Context, texts []string, maxLength int) ([]classifier.Raw, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, append([]string(nil), texts...))
	if s.err != nil {
		return nil, s.err
	}
	out := make([]classifier.Raw, len(texts))
	for i, text := range texts {
		if raw, ok := s.answers[text]; ok {
			out[i] = raw
			continue
		}
		out[i] = s.fallback
	}
	return out, nil
}

func newTestAnalyzer(model *stubModel) *Analyzer {
	adapter := classifier.NewAdapter(func(ctx context.Context) (classifier.Capability, error) {
		return model, nil
	}, nil)
	return NewAnalyzer(adapter, utils.NewDiscardLogger())
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAnalyzeQuirkyStyleScenario(t *testing.T) {
	text := "This is obviously written by a human with quirky style!! I think so, yes."
	model := &stubModel{answers: map[string]classifier.Raw{
		text: {Label: "Human", Score: 0.12},
		"This is obviously written by a human with quirky style!!": {Label: "Human", Score: 0.10},
		"I think so, yes.": {Label: "Human", Score: 0.15},
	}}

	result, err := newTestAnalyzer(model).Analyze(context.Background(), text)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	if result.Label != classifier.Human {
		t.Errorf("label = %s, want Human", result.Label)
	}
	if !approx(result.Score, 12) || !approx(result.Originality, 88) {
		t.Errorf("score/originality = %f/%f, want 12/88", result.Score, result.Originality)
	}
	if len(result.Sentences) != 2 {
		t.Fatalf("expected 2 sentences, got %d", len(result.Sentences))
	}
	if !approx(result.Sentences[0].Originality, 90) {
		t.Errorf("sentences[0].originality = %f, want 90", result.Sentences[0].Originality)
	}
	if !approx(result.Sentences[1].Score, 15) {
		t.Errorf("sentences[1].score = %f, want 15", result.Sentences[1].Score)
	}
	if result.Text != text {
		t.Errorf("text not preserved")
	}

	if len(model.batches) != 2 {
		t.Fatalf("expected one document call and one sentence batch, got %d calls", len(model.batches))
	}
	if len(model.batches[1]) != 2 {
		t.Errorf("sentences must be classified in one batch, got %v", model.batches[1])
	}
}

func TestAnalyzeEmptyInputMakesNoCalls(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t \n"} {
		model := &stubModel{}
		_, err := newTestAnalyzer(model).Analyze(context.Background(), text)
		if !errors.Is(err, ErrEmptyInput) {
			t.Errorf("Analyze(%q) error = %v, want ErrEmptyInput", text, err)
		}
		if len(model.batches) != 0 {
			t.Errorf("Analyze(%q) made %d classification calls", text, len(model.batches))
		}
	}
}

func TestAnalyzeIdentitiesAndOrder(t *testing.T) {
	texts := []string{
		"Short one.",
		"First sentence. Second sentence? Third sentence!\n\nA new paragraph starts here. And ends.",
		"no terminal punctuation at all",
	}
	model := &stubModel{fallback: classifier.Raw{Label: "Fake", Score: 0.731}}

	for _, text := range texts {
		result, err := newTestAnalyzer(model).Analyze(context.Background(), text)
		if err != nil {
			t.Fatalf("analyze %q: %v", text, err)
		}
		if !approx(result.Originality, 100-result.Score) {
			t.Errorf("%q: document originality %f does not complement score %f", text, result.Originality, result.Score)
		}

		want := segment.SplitSentences(text)
		if len(result.Sentences) != len(want) {
			t.Fatalf("%q: %d sentence results, want %d", text, len(result.Sentences), len(want))
		}
		for i, s := range result.Sentences {
			if s.Sentence != want[i] {
				t.Errorf("%q: sentence %d = %q, want %q", text, i, s.Sentence, want[i])
			}
			if !approx(s.Originality, 100-s.Score) {
				t.Errorf("%q: sentence %d originality %f does not complement %f", text, i, s.Originality, s.Score)
			}
			if s.Label != classifier.AI {
				t.Errorf("%q: sentence %d label %s, want AI", text, i, s.Label)
			}
		}
	}
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	text := "Repeated input. Same answer every time."
	model := &stubModel{fallback: classifier.Raw{Label: "Real", Score: 0.64}}
	analyzer := newTestAnalyzer(model)

	first, err := analyzer.Analyze(context.Background(), text)
	if err != nil {
		t.Fatalf("first analyze: %v", err)
	}
	second, err := analyzer.Analyze(context.Background(), text)
	if err != nil {
		t.Fatalf("second analyze: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("results differ:\n%+v\n%+v", first, second)
	}
}

func TestAnalyzeTwoParagraphs(t *testing.T) {
	text := "  First paragraph line.  \n\n  Second paragraph line.  "
	model := &stubModel{fallback: classifier.Raw{Label: "Real", Score: 0.5}}

	result, err := newTestAnalyzer(model).Analyze(context.Background(), text)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	want := []string{"First paragraph line.", "Second paragraph line."}
	if !reflect.DeepEqual(result.Paragraphs, want) {
		t.Fatalf("paragraphs = %q, want %q", result.Paragraphs, want)
	}
}

func TestAnalyzePropagatesClassificationFailure(t *testing.T) {
	model := &stubModel{err: errors.New("model crashed")}

	_, err := newTestAnalyzer(model).Analyze(context.Background(), "Some text.")
	if !errors.Is(err, classifier.ErrClassificationUnavailable) {
		t.Fatalf("expected ErrClassificationUnavailable, got %v", err)
	}
	if len(model.batches) != 1 {
		t.Fatalf("no retries expected, got %d calls", len(model.batches))
	}
}
