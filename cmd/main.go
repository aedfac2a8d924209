package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wgomg/aidetector/internal/analysis"
	"github.com/wgomg/aidetector/internal/api"
	"github.com/wgomg/aidetector/internal/classifier"
	"github.com/wgomg/aidetector/internal/config"
	"github.com/wgomg/aidetector/internal/model"
	"github.com/wgomg/aidetector/internal/utils"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log := utils.NewLogger("error", false)
		log.Fatal("Failed to load configuration: ", err)
	}
	if err := cfg.Validate(); err != nil {
		log := utils.NewLogger("error", cfg.App.RawBodyLog)
		log.Fatal("Invalid configuration: ", err)
	}

	logger := utils.NewLogger(cfg.App.LogLevel, cfg.App.RawBodyLog)
	logger.Info(nil, "Starting AI Content Detector")
	logger.Info(nil, "Environment: %s", cfg.App.Env)
	logger.Info(nil, "Log level: %s", cfg.App.LogLevel)
	logger.Info(nil, "Detector backend: %s, model: %s", cfg.Detector.Backend, cfg.Detector.Model)

	adapter := classifier.NewAdapter(model.NewLoader(cfg, logger), logger)
	defer func() {
		if err := model.CloseLoaded(adapter); err != nil {
			logger.Error(nil, "Failed to close detector backend: %v", err)
		}
	}()

	handler := api.NewHandler(logger, analysis.NewAnalyzer(adapter, logger), adapter, cfg)

	mux := http.NewServeMux()
	api.RegisterRoutes(mux, handler)

	ln, err := listen(cfg.App.ServerPort, logger)
	if err != nil {
		logger.Error(nil, "Failed to listen: %v", err)
		return
	}

	srv := &http.Server{
		Handler:           api.WithRequestID(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info(nil, "Starting server on %s", ln.Addr())
		logger.Info(nil, "Endpoints:")
		logger.Info(nil, "  GET  /health")
		logger.Info(nil, "  GET  /health/model")
		logger.Info(nil, "  POST /analyze")
		logger.Info(nil, "  POST /report")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed: ", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info(nil, "Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error(nil, "Server forced to shutdown: %v", err)
	}
	logger.Info(nil, "Server exited")
}

// listen binds the configured port, or any free port when it is taken.
func listen(port string, logger *utils.Logger) (net.Listener, error) {
	ln, err := net.Listen("tcp", "0.0.0.0:"+port)
	if err == nil {
		return ln, nil
	}
	if !errors.Is(err, syscall.EADDRINUSE) {
		return nil, err
	}
	logger.Info(nil, "Port %s is busy. Falling back to a free port.", port)
	return net.Listen("tcp", "0.0.0.0:0")
}
