package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wgomg/aidetector/internal/analysis"
	"github.com/wgomg/aidetector/internal/classifier"
	"github.com/wgomg/aidetector/internal/extract"
	"github.com/wgomg/aidetector/internal/report"
)

type stubAnalyzer struct {
	calls []string
}

func (s *stubAnalyzer) Analyze(ctx context.Context, text string) (analysis.Result, error) {
	s.calls = append(s.calls, text)
	return analysis.Result{Label: classifier.AI, Score: 99.5, Originality: 0.5, Text: text}, nil
}

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"-t", "hello", "--report", "out.pdf", "-json"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if opts.text != "hello" || opts.reportPath != "out.pdf" || !opts.asJSON {
		t.Fatalf("unexpected options %+v", opts)
	}

	if _, err := parseFlags([]string{"--text", "a", "--doc", "b.docx"}); err == nil {
		t.Fatal("expected error for --text with --doc")
	}
}

func TestRunPrintsSummary(t *testing.T) {
	analyzer := &stubAnalyzer{}
	var out bytes.Buffer

	err := run(context.Background(), cliOptions{text: "Some text."}, analyzer, strings.NewReader(""), &out, false)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), report.TierTopModel) {
		t.Fatalf("summary missing tier:\n%s", out.String())
	}
	if len(analyzer.calls) != 1 || analyzer.calls[0] != "Some text." {
		t.Fatalf("unexpected calls %q", analyzer.calls)
	}
}

func TestRunReadsStdinAndWritesJSONAndReport(t *testing.T) {
	analyzer := &stubAnalyzer{}
	var out bytes.Buffer
	reportPath := filepath.Join(t.TempDir(), "report.pdf")

	opts := cliOptions{reportPath: reportPath, asJSON: true}
	if err := run(context.Background(), opts, analyzer, strings.NewReader("Piped text.\n"), &out, false); err != nil {
		t.Fatalf("run: %v", err)
	}

	var result analysis.Result
	if err := json.Unmarshal(out.Bytes(), &result); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if result.Label != classifier.AI {
		t.Fatalf("label = %s", result.Label)
	}

	pdf, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatal("report is not a PDF")
	}
}

func TestRunPromptsInteractiveUntilText(t *testing.T) {
	analyzer := &stubAnalyzer{}
	var out bytes.Buffer

	err := run(context.Background(), cliOptions{}, analyzer, strings.NewReader("\n   \nfinally some text\n"), &out, true)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := strings.Count(out.String(), promptText); got != 1 {
		t.Fatalf("initial prompt shown %d times, want 1", got)
	}
	if got := strings.Count(out.String(), promptRetry); got != 2 {
		t.Fatalf("retry prompt shown %d times, want 2", got)
	}
	if analyzer.calls[0] != "finally some text" {
		t.Fatalf("analyzed %q", analyzer.calls[0])
	}
}

func TestRunWithoutText(t *testing.T) {
	analyzer := &stubAnalyzer{}
	err := run(context.Background(), cliOptions{}, analyzer, strings.NewReader("  \n"), &bytes.Buffer{}, false)
	if !errors.Is(err, errNoText) {
		t.Fatalf("expected errNoText, got %v", err)
	}
	if len(analyzer.calls) != 0 {
		t.Fatal("analyzer must not be called without text")
	}
}

func TestRunDocumentErrors(t *testing.T) {
	analyzer := &stubAnalyzer{}
	dir := t.TempDir()

	err := run(context.Background(), cliOptions{docPath: filepath.Join(dir, "notes.txt")}, analyzer, nil, &bytes.Buffer{}, false)
	if !errors.Is(err, extract.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}

	err = run(context.Background(), cliOptions{docPath: filepath.Join(dir, "missing.docx")}, analyzer, nil, &bytes.Buffer{}, false)
	if err == nil || !strings.Contains(err.Error(), "document not found") {
		t.Fatalf("expected missing document error, got %v", err)
	}
}
