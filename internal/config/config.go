package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

type Backend string

const (
	BackendPython Backend = "python"
	BackendONNX   Backend = "onnx"
	BackendRemote Backend = "remote"
)

type AppConfig struct {
	Env                Environment
	LogLevel           string
	ServerPort         string
	RawBodyLog         bool
	HttpTimeoutSeconds int
	MaxUploadMB        int
}

type PythonConfig struct {
	ConfigDir              string
	WorkerCount            int
	SkipSetup              bool
	ProcessShutdownTimeout int
}

type OnnxConfig struct {
	LibraryPath   string
	ModelPath     string
	TokenizerPath string
	Labels        []string
	PadTokenID    int
}

type RemoteConfig struct {
	URL   string
	Token string
}

type DetectorConfig struct {
	Backend Backend
	Model   string
	Python  PythonConfig
	Onnx    OnnxConfig
	Remote  RemoteConfig
}

type Config struct {
	App      AppConfig
	Detector DetectorConfig
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	appEnv := getEnv("APP_ENV", "development")
	env := parseEnvironment(appEnv)

	logLevel := getLogLevel(env)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	defaultPythonDir := filepath.Join(homeDir, ".config", "aidetector")

	backend, err := parseBackend(getEnv("DETECTOR_BACKEND", string(BackendPython)))
	if err != nil {
		return nil, err
	}

	return &Config{
		App: AppConfig{
			Env:                env,
			LogLevel:           logLevel,
			ServerPort:         getEnv("APP_SERVER_PORT", getEnv("AI_DETECTOR_PORT", "8090")),
			RawBodyLog:         getEnvBool("APP_RAW_BODY_LOG", false),
			HttpTimeoutSeconds: getEnvInt("APP_HTTP_TIMEOUT_SECONDS", 30),
			MaxUploadMB:        getEnvInt("APP_MAX_UPLOAD_MB", 20),
		},
		Detector: DetectorConfig{
			Backend: backend,
			Model:   getEnv("DETECTOR_MODEL_NAME", "roberta-base-openai-detector"),
			Python: PythonConfig{
				ConfigDir:              getEnv("DETECTOR_PYTHON_CONFIG_DIR", defaultPythonDir),
				WorkerCount:            getEnvInt("DETECTOR_PYTHON_WORKER_COUNT", calculateDefaultWorkerCount()),
				SkipSetup:              getEnvBool("DETECTOR_PYTHON_SKIP_SETUP", false),
				ProcessShutdownTimeout: getEnvInt("DETECTOR_PYTHON_SHUTDOWN_TIMEOUT", 5),
			},
			Onnx: OnnxConfig{
				LibraryPath:   getEnv("DETECTOR_ONNX_LIBRARY_PATH", ""),
				ModelPath:     getEnv("DETECTOR_ONNX_MODEL_PATH", ""),
				TokenizerPath: getEnv("DETECTOR_ONNX_TOKENIZER_PATH", ""),
				Labels:        getEnvList("DETECTOR_ONNX_LABELS", []string{"Fake", "Real"}),
				PadTokenID:    getEnvInt("DETECTOR_ONNX_PAD_ID", 1),
			},
			Remote: RemoteConfig{
				URL:   getEnv("DETECTOR_REMOTE_URL", ""),
				Token: getEnv("DETECTOR_REMOTE_TOKEN", ""),
			},
		},
	}, nil
}

func (c *Config) Validate() error {
	if _, err := strconv.Atoi(c.App.ServerPort); err != nil {
		return fmt.Errorf("APP_SERVER_PORT must be numeric, got %q", c.App.ServerPort)
	}
	if c.App.MaxUploadMB <= 0 {
		return fmt.Errorf("APP_MAX_UPLOAD_MB must be positive")
	}

	switch c.Detector.Backend {
	case BackendPython:
		if c.Detector.Python.WorkerCount <= 0 {
			return fmt.Errorf("DETECTOR_PYTHON_WORKER_COUNT must be positive")
		}
	case BackendONNX:
		if c.Detector.Onnx.ModelPath == "" || c.Detector.Onnx.TokenizerPath == "" {
			return fmt.Errorf("DETECTOR_ONNX_MODEL_PATH and DETECTOR_ONNX_TOKENIZER_PATH are required")
		}
		if len(c.Detector.Onnx.Labels) < 2 {
			return fmt.Errorf("DETECTOR_ONNX_LABELS needs one label per model output, got %v", c.Detector.Onnx.Labels)
		}
	case BackendRemote:
		if c.Detector.Remote.URL == "" {
			return fmt.Errorf("DETECTOR_REMOTE_URL is required")
		}
	}
	return nil
}

func parseEnvironment(envStr string) Environment {
	env := Environment(strings.ToLower(envStr))

	switch env {
	case Development, Production:
		return env
	default:
		return Development
	}
}

func parseBackend(s string) (Backend, error) {
	b := Backend(strings.ToLower(strings.TrimSpace(s)))
	switch b {
	case BackendPython, BackendONNX, BackendRemote:
		return b, nil
	default:
		return "", fmt.Errorf("unknown DETECTOR_BACKEND %q (want python, onnx or remote)", s)
	}
}

// A transformers pipeline for a roberta-base classifier holds roughly 500MB resident,
// so workers are bounded by memory before CPU.
func calculateDefaultWorkerCount() int {
	cpuCores := runtime.NumCPU()
	modelMemoryMB := 500

	var availableMemoryMB int64 = 4096

	if memInfo, err := os.ReadFile("/proc/meminfo"); err == nil {
		lines := strings.Split(string(memInfo), "\n")
		for _, line := range lines {
			if strings.HasPrefix(line, "MemTotal:") {
				fields := strings.Fields(line)
				if len(fields) >= 2 {
					if kb, err := strconv.ParseInt(fields[1], 10, 64); err == nil {
						availableMemoryMB = kb / 1024
						break
					}
				}
			}
		}
	}

	workersByCPU := min(cpuCores, 4)

	systemReservedMB := 2048
	usableMemoryMB := int(availableMemoryMB) - systemReservedMB
	if usableMemoryMB < 0 {
		usableMemoryMB = modelMemoryMB
	}

	workersByMemory := max(min(usableMemoryMB/modelMemoryMB, 4), 1)
	return min(max(min(workersByMemory, workersByCPU), 1), 4)
}

func getLogLevel(env Environment) string {
	if env == Production {
		return getEnv("APP_LOG_LEVEL", "info")
	}

	return getEnv("APP_LOG_LEVEL", "debug")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
