package api

import (
	"context"

	"github.com/wgomg/aidetector/internal/analysis"
)

// SnippetLength is how much of the analyzed text the analyze response echoes.
const SnippetLength = 300

const reportFilename = "ai_detection_report.pdf"

type Analyzer interface {
	Analyze(ctx context.Context, text string) (analysis.Result, error)
}

// ModelStatus reports the state of the classification model without loading it.
type ModelStatus interface {
	Loaded() bool
	Loading() bool
	CacheHitRate() float64
}

type AnalyzeRequest struct {
	Text string `json:"text"`
}

type AnalyzeResponse struct {
	Result  analysis.Result `json:"result"`
	Tier    string          `json:"tier"`
	Summary string          `json:"summary"`
	Snippet string          `json:"snippet"`
}

type ModelHealthResponse struct {
	Loaded       bool    `json:"loaded"`
	Loading      bool    `json:"loading"`
	CacheHitRate float64 `json:"cache_hit_rate"`
	Backend      string  `json:"backend"`
	Model        string  `json:"model"`
}
