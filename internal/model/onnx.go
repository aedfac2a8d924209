package model

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/wgomg/aidetector/internal/classifier"
	"github.com/wgomg/aidetector/internal/config"
	"github.com/wgomg/aidetector/internal/utils"
)

// OnnxClassifier runs an exported sequence-classification model in process.
// The model must take input_ids and attention_mask (int64, [batch, seq]) and
// return logits ([batch, len(labels)]).
type OnnxClassifier struct {
	mu         sync.Mutex
	session    *ort.DynamicAdvancedSession
	tk         *tokenizer.Tokenizer
	labels     []string
	padID      int64
	truncation int
	logger     *utils.Logger
}

func NewOnnxClassifier(cfg *config.OnnxConfig, logger *utils.Logger) (*OnnxClassifier, error) {
	if cfg.LibraryPath != "" {
		ort.SetSharedLibraryPath(cfg.LibraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize onnxruntime: %w", err)
		}
	}

	tk, err := pretrained.FromFile(cfg.TokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer %s: %w", cfg.TokenizerPath, err)
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{"input_ids", "attention_mask"}, []string{"logits"}, nil)
	if err != nil {
		return nil, fmt.Errorf("open onnx session %s: %w", cfg.ModelPath, err)
	}

	logger.Info(nil, "ONNX detector loaded from %s (labels=%v)", cfg.ModelPath, cfg.Labels)
	return &OnnxClassifier{
		session: session,
		tk:      tk,
		labels:  cfg.Labels,
		padID:   int64(cfg.PadTokenID),
		logger:  logger,
	}, nil
}

func (o *OnnxClassifier) ClassifyBatch(ctx context.Context, texts []string, maxLength int) ([]classifier.Raw, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.session == nil {
		return nil, errors.New("onnx classifier is closed")
	}
	if len(texts) == 0 {
		return []classifier.Raw{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if o.truncation != maxLength {
		o.tk.WithTruncation(&tokenizer.TruncationParams{
			MaxLength: maxLength,
			Strategy:  tokenizer.LongestFirst,
		})
		o.truncation = maxLength
	}

	ids := make([][]int, len(texts))
	masks := make([][]int, len(texts))
	for i, text := range texts {
		enc, err := o.tk.EncodeSingle(text, true)
		if err != nil {
			return nil, fmt.Errorf("tokenize input %d: %w", i, err)
		}
		ids[i] = enc.Ids
		masks[i] = enc.AttentionMask
	}

	flatIDs, flatMask, seqLen := padBatch(ids, masks, o.padID)
	shape := ort.NewShape(int64(len(texts)), int64(seqLen))

	idsTensor, err := ort.NewTensor(shape, flatIDs)
	if err != nil {
		return nil, fmt.Errorf("input_ids tensor: %w", err)
	}
	defer idsTensor.Destroy()

	maskTensor, err := ort.NewTensor(shape, flatMask)
	if err != nil {
		return nil, fmt.Errorf("attention_mask tensor: %w", err)
	}
	defer maskTensor.Destroy()

	logits, err := ort.NewEmptyTensor[float32](ort.NewShape(int64(len(texts)), int64(len(o.labels))))
	if err != nil {
		return nil, fmt.Errorf("logits tensor: %w", err)
	}
	defer logits.Destroy()

	if err := o.session.Run([]ort.Value{idsTensor, maskTensor}, []ort.Value{logits}); err != nil {
		return nil, fmt.Errorf("run onnx session: %w", err)
	}

	return decodeLogits(logits.GetData(), len(texts), o.labels)
}

func (o *OnnxClassifier) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil {
		return nil
	}
	err := o.session.Destroy()
	o.session = nil
	return err
}

// padBatch right-pads every sequence to the longest one and flattens the batch.
func padBatch(ids, masks [][]int, padID int64) ([]int64, []int64, int) {
	seqLen := 1
	for _, seq := range ids {
		seqLen = max(seqLen, len(seq))
	}
	flatIDs := make([]int64, 0, len(ids)*seqLen)
	flatMask := make([]int64, 0, len(ids)*seqLen)
	for i, seq := range ids {
		for j := 0; j < seqLen; j++ {
			if j < len(seq) {
				flatIDs = append(flatIDs, int64(seq[j]))
				flatMask = append(flatMask, int64(masks[i][j]))
				continue
			}
			flatIDs = append(flatIDs, padID)
			flatMask = append(flatMask, 0)
		}
	}
	return flatIDs, flatMask, seqLen
}

// decodeLogits applies a softmax per row and keeps the most probable label.
func decodeLogits(data []float32, rows int, labels []string) ([]classifier.Raw, error) {
	width := len(labels)
	if width == 0 || len(data) != rows*width {
		return nil, fmt.Errorf("logits size %d does not match %d rows x %d labels", len(data), rows, width)
	}
	out := make([]classifier.Raw, rows)
	for r := 0; r < rows; r++ {
		row := data[r*width : (r+1)*width]
		maxLogit := math.Inf(-1)
		for _, v := range row {
			maxLogit = math.Max(maxLogit, float64(v))
		}
		sum := 0.0
		best, bestExp := 0, 0.0
		for i, v := range row {
			e := math.Exp(float64(v) - maxLogit)
			sum += e
			if e > bestExp {
				best, bestExp = i, e
			}
		}
		out[r] = classifier.Raw{Label: labels[best], Score: bestExp / sum}
	}
	return out, nil
}
