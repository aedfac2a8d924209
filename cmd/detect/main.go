package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/wgomg/aidetector/internal/analysis"
	"github.com/wgomg/aidetector/internal/classifier"
	"github.com/wgomg/aidetector/internal/config"
	"github.com/wgomg/aidetector/internal/extract"
	"github.com/wgomg/aidetector/internal/model"
	"github.com/wgomg/aidetector/internal/report"
	"github.com/wgomg/aidetector/internal/utils"
)

type cliOptions struct {
	text       string
	docPath    string
	reportPath string
	asJSON     bool
}

type textAnalyzer interface {
	Analyze(ctx context.Context, text string) (analysis.Result, error)
}

var errNoText = errors.New("no text provided")

const (
	promptText  = "Enter text to analyze: "
	promptRetry = "Text cannot be empty. Try again: "
)

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "detect: %v\n", err)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "detect: invalid configuration: %v\n", err)
		os.Exit(1)
	}

	level := cfg.App.LogLevel
	if opts.asJSON {
		level = "error"
	}
	logger := utils.NewLogger(level, false)

	adapter := classifier.NewAdapter(model.NewLoader(cfg, logger), logger)
	analyzer := analysis.NewAnalyzer(adapter, logger)

	interactive := isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	err = run(context.Background(), opts, analyzer, os.Stdin, os.Stdout, interactive)
	if closeErr := model.CloseLoaded(adapter); closeErr != nil {
		logger.Error(nil, "Failed to close detector backend: %v", closeErr)
	}
	if errors.Is(err, errNoText) {
		fmt.Fprintln(os.Stdout, "No text provided. Exiting.")
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "detect: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("detect", flag.ContinueOnError)
	fs.StringVar(&opts.text, "text", "", "Text to analyze")
	fs.StringVar(&opts.text, "t", "", "Shorthand for --text")
	fs.StringVar(&opts.docPath, "doc", "", "Path to a .docx or .pdf document to analyze")
	fs.StringVar(&opts.docPath, "d", "", "Shorthand for --doc")
	fs.StringVar(&opts.reportPath, "report", "", "Write a PDF report to this file")
	fs.BoolVar(&opts.asJSON, "json", false, "Print the full analysis as JSON")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s [--text TEXT | --doc FILE] [options]\n\n", filepath.Base(os.Args[0]))
		fmt.Fprintln(fs.Output(), "Without --text or --doc the text is read from standard input.")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	opts.docPath = strings.TrimSpace(opts.docPath)
	opts.reportPath = strings.TrimSpace(opts.reportPath)
	if opts.text != "" && opts.docPath != "" {
		fs.Usage()
		return opts, errors.New("--text and --doc are mutually exclusive")
	}
	return opts, nil
}

func run(ctx context.Context, opts cliOptions, analyzer textAnalyzer, in io.Reader, out io.Writer, interactive bool) error {
	text, err := readInput(opts, in, out, interactive)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return errNoText
	}

	result, err := analyzer.Analyze(ctx, text)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
	} else {
		fmt.Fprint(out, "\n"+report.Summary(result))
	}

	if opts.reportPath == "" {
		return nil
	}
	rendered, err := report.Render(result)
	if err != nil {
		return err
	}
	if err := os.WriteFile(opts.reportPath, rendered.PDF, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if !opts.asJSON {
		fmt.Fprintf(out, "Report saved to %s\n", opts.reportPath)
	}
	return nil
}

// readInput resolves the text from --text, --doc or standard input. An
// interactive terminal is prompted until it enters something.
func readInput(opts cliOptions, in io.Reader, out io.Writer, interactive bool) (string, error) {
	switch {
	case opts.text != "":
		return opts.text, nil
	case opts.docPath != "":
		if !extract.Supported(opts.docPath) {
			return "", fmt.Errorf("%w: only .docx and .pdf files are supported", extract.ErrUnsupportedFormat)
		}
		if _, err := os.Stat(opts.docPath); err != nil {
			return "", fmt.Errorf("document not found: %s", opts.docPath)
		}
		return extract.FromFile(opts.docPath)
	case interactive:
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
		fmt.Fprint(out, promptText)
		for {
			if !scanner.Scan() {
				return "", scanner.Err()
			}
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				return line, nil
			}
			fmt.Fprint(out, promptRetry)
		}
	default:
		raw, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(raw), nil
	}
}
