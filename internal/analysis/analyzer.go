package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wgomg/aidetector/internal/classifier"
	"github.com/wgomg/aidetector/internal/segment"
	"github.com/wgomg/aidetector/internal/utils"
)

type Analyzer struct {
	classifier Classifier
	logger     *utils.Logger
}

func NewAnalyzer(classifier Classifier, logger *utils.Logger) *Analyzer {
	if logger == nil {
		logger = utils.NewDiscardLogger()
	}
	return &Analyzer{classifier: classifier, logger: logger}
}

// Analyze classifies the whole text once and its sentences in a single batch.
// Classification errors are returned unchanged.
func (a *Analyzer) Analyze(ctx context.Context, text string) (Result, error) {
	reqID := utils.RequestID(ctx)
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrEmptyInput
	}

	start := time.Now()

	doc, err := a.classifier.ClassifyOne(ctx, text)
	if err != nil {
		return Result{}, err
	}

	sentences := segment.SplitSentences(text)
	sentenceResults := make([]SentenceResult, 0, len(sentences))
	if len(sentences) > 0 {
		preds, err := a.classifier.Classify(ctx, sentences)
		if err != nil {
			return Result{}, err
		}
		if len(preds) != len(sentences) {
			return Result{}, fmt.Errorf("%w: got %d sentence predictions for %d sentences",
				classifier.ErrClassificationUnavailable, len(preds), len(sentences))
		}
		for i, pred := range preds {
			sentenceResults = append(sentenceResults, SentenceResult{
				Sentence:    sentences[i],
				Label:       pred.Label,
				Score:       pred.Score,
				Originality: originality(pred.Score),
			})
		}
	}

	paragraphs := segment.SplitParagraphs(text)
	if paragraphs == nil {
		paragraphs = []string{}
	}

	a.logger.Info(reqID, "Analysis completed: label=%s, score=%.2f, words=%d, sentences=%d, paragraphs=%d, duration=%s",
		doc.Label, doc.Score, utils.CountWords(text), len(sentenceResults), len(paragraphs),
		time.Since(start).Round(time.Millisecond))

	return Result{
		Label:       doc.Label,
		Score:       doc.Score,
		Originality: originality(doc.Score),
		Text:        text,
		Sentences:   sentenceResults,
		Paragraphs:  paragraphs,
	}, nil
}
