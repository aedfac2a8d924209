package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/wgomg/aidetector/internal/config"
	"github.com/wgomg/aidetector/internal/extract"
	"github.com/wgomg/aidetector/internal/report"
	"github.com/wgomg/aidetector/internal/utils"
	"github.com/wgomg/aidetector/internal/utils/httputils"
)

type Handler struct {
	logger   *utils.Logger
	analyzer Analyzer
	model    ModelStatus
	cfg      *config.Config
}

func NewHandler(
	logger *utils.Logger,
	analyzer Analyzer,
	model ModelStatus,
	cfg *config.Config,
) *Handler {
	return &Handler{
		logger:   logger,
		analyzer: analyzer,
		model:    model,
		cfg:      cfg,
	}
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "AI Content Detector is running\n")
}

func (h *Handler) HandleModelHealth(w http.ResponseWriter, r *http.Request) {
	reqID := utils.RequestID(r.Context())

	response := ModelHealthResponse{
		Loaded:       h.model.Loaded(),
		Loading:      h.model.Loading(),
		CacheHitRate: h.model.CacheHitRate(),
		Backend:      string(h.cfg.Detector.Backend),
		Model:        h.cfg.Detector.Model,
	}
	if err := httputils.JSONResponse(w, http.StatusOK, response); err != nil {
		h.logger.Error(reqID, "Error sending response: %v", err)
	}
}

func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := utils.RequestID(ctx)

	text, err := h.readText(w, r)
	if err != nil {
		h.logger.Error(reqID, "Failed to read input: %v", err)
		httputils.HandleError(w, domainError(err))
		return
	}

	result, err := h.analyzer.Analyze(ctx, text)
	if err != nil {
		h.logger.Error(reqID, "Analysis failed: %v", err)
		httputils.HandleError(w, domainError(err))
		return
	}

	response := AnalyzeResponse{
		Result:  result,
		Tier:    report.Tier(result.Label, result.Score),
		Summary: report.Summary(result),
		Snippet: utils.Snippet(result.Text, SnippetLength),
	}
	if err := httputils.SuccessResponse(w, "Analysis completed", response); err != nil {
		h.logger.Error(reqID, "Error sending response: %v", err)
	}
}

func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := utils.RequestID(ctx)

	text, err := h.readText(w, r)
	if err != nil {
		h.logger.Error(reqID, "Failed to read input: %v", err)
		httputils.HandleError(w, domainError(err))
		return
	}

	result, err := h.analyzer.Analyze(ctx, text)
	if err != nil {
		h.logger.Error(reqID, "Analysis failed: %v", err)
		httputils.HandleError(w, domainError(err))
		return
	}

	rendered, err := report.Render(result)
	if err != nil {
		h.logger.Error(reqID, "Report rendering failed: %v", err)
		httputils.HandleError(w, domainError(err))
		return
	}
	h.logger.Info(reqID, "Report generated: bytes=%d", len(rendered.PDF))

	if err := httputils.Attachment(w, "application/pdf", reportFilename, rendered.PDF); err != nil {
		h.logger.Error(reqID, "Error sending report: %v", err)
	}
}

// readText accepts a JSON body, a urlencoded form or a multipart form. An
// uploaded document takes precedence over the text field.
func (h *Handler) readText(w http.ResponseWriter, r *http.Request) (string, error) {
	reqID := utils.RequestID(r.Context())
	maxBytes := int64(h.cfg.App.MaxUploadMB) << 20
	httputils.LimitBody(w, r, maxBytes)

	switch httputils.MediaType(r) {
	case "multipart/form-data":
		if err := httputils.ParseMultipart(r, maxBytes); err != nil {
			return "", err
		}
		name, data, ok, err := httputils.ReadUpload(r, "document")
		if err != nil {
			return "", err
		}
		if ok {
			h.logger.Info(reqID, "Extracting uploaded document: name=%s, bytes=%d", name, len(data))
			return extract.FromBytes(name, data)
		}
		return strings.TrimSpace(r.FormValue("text")), nil
	case "application/x-www-form-urlencoded":
		return strings.TrimSpace(r.FormValue("text")), nil
	default:
		if _, err := httputils.LogRequestBody(r, h.logger, reqID); err != nil {
			return "", err
		}
		var req AnalyzeRequest
		if err := httputils.DecodeJSON(r, &req); err != nil {
			return "", err
		}
		return req.Text, nil
	}
}
