package model

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/wgomg/aidetector/internal/classifier"
	"github.com/wgomg/aidetector/internal/config"
	"github.com/wgomg/aidetector/internal/utils"
)

const maxResponseLine = 16 * 1024 * 1024

var errPoolClosed = errors.New("python worker pool is closed")

type Task struct {
	Texts     []string
	MaxLength int
	Result    chan<- TaskResult
}

type TaskResult struct {
	Results []classifier.Raw
	Err     error
}

type PythonWorkerPool struct {
	logger    *utils.Logger
	script    string
	venv      string
	model     string
	cfg       *config.PythonConfig
	taskQueue chan Task
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

type PythonWorker struct {
	id      int
	process *exec.Cmd
	stdin   io.WriteCloser
	stdout  io.ReadCloser
	scanner *bufio.Scanner
	mu      sync.Mutex
	logger  *utils.Logger
	timeout time.Duration
}

type PythonConfigMessage struct {
	ModelName string `json:"model_name"`
	Task      string `json:"task"`
}

type PythonReady struct {
	Status string   `json:"status"`
	Labels []string `json:"labels"`
	Error  string   `json:"error,omitempty"`
}

type PythonRequest struct {
	Texts     []string `json:"texts"`
	MaxLength int      `json:"max_length"`
}

type PythonResponse struct {
	Results   []classifier.Raw     `json:"results"`
	Error     string               `json:"error,omitempty"`
	DebugInfo *PythonResponseDebug `json:"debug_info"`
}

type PythonResponseDebug struct {
	ProcessingTimeMS int `json:"processing_time_ms"`
	BatchSize        int `json:"batch_size"`
}

func NewPythonWorkerPool(logger *utils.Logger, modelName string, cfg *config.PythonConfig) *PythonWorkerPool {
	pythonDir := filepath.Join(cfg.ConfigDir, "python")
	script := filepath.Join(pythonDir, "detector_worker.py")
	venv := filepath.Join(cfg.ConfigDir, "venv")

	return &PythonWorkerPool{
		logger:    logger,
		script:    script,
		venv:      venv,
		model:     modelName,
		cfg:       cfg,
		taskQueue: make(chan Task, 100),
		done:      make(chan struct{}),
	}
}

// Initialize prepares the environment and starts every worker. Each worker
// loads the model before it reports ready, so this is the expensive step.
func (p *PythonWorkerPool) Initialize() error {
	p.logger.Info(nil, "Initializing Python detector with %d workers (model=%s)", p.cfg.WorkerCount, p.model)

	if err := p.setupEnvironment(); err != nil {
		return fmt.Errorf("failed to setup environment: %w", err)
	}

	workers := make([]*PythonWorker, 0, p.cfg.WorkerCount)
	for i := 0; i < p.cfg.WorkerCount; i++ {
		w, err := p.startWorker(i)
		if err != nil {
			for _, started := range workers {
				started.close()
			}
			return fmt.Errorf("failed to start worker %d: %w", i, err)
		}
		workers = append(workers, w)
	}

	for _, w := range workers {
		p.wg.Add(1)
		go p.runWorker(w)
	}

	p.logger.Info(nil, "Python detector initialized successfully")
	return nil
}

func (p *PythonWorkerPool) SafeForConcurrentUse() bool { return true }

func (p *PythonWorkerPool) ClassifyBatch(ctx context.Context, texts []string, maxLength int) ([]classifier.Raw, error) {
	result := make(chan TaskResult, 1)
	task := Task{Texts: texts, MaxLength: maxLength, Result: result}

	select {
	case p.taskQueue <- task:
	case <-p.done:
		return nil, errPoolClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-result:
		return res.Results, res.Err
	case <-p.done:
		return nil, errPoolClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// runWorker serves tasks until the pool closes. A worker whose process broke
// is restarted on the next task.
func (p *PythonWorkerPool) runWorker(w *PythonWorker) {
	defer p.wg.Done()
	id := w.id
	defer func() {
		if w != nil {
			w.close()
		}
	}()

	for {
		select {
		case <-p.done:
			return
		case task := <-p.taskQueue:
			if w == nil {
				restarted, err := p.startWorker(id)
				if err != nil {
					p.logger.Error(nil, "Failed to restart worker %d: %v", id, err)
					task.Result <- TaskResult{Err: fmt.Errorf("worker %d unavailable: %w", id, err)}
					continue
				}
				w = restarted
			}

			results, err := w.processTask(task)
			if err != nil {
				p.logger.Error(nil, "Worker %d failed, restarting on next task: %v", id, err)
				w.close()
				w = nil
			}
			task.Result <- TaskResult{Results: results, Err: err}
		}
	}
}

func (p *PythonWorkerPool) pythonBinary() string {
	if p.cfg.SkipSetup {
		return "python3"
	}
	return filepath.Join(p.venv, "bin", "python")
}

func (p *PythonWorkerPool) startWorker(id int) (*PythonWorker, error) {
	cmd := exec.Command(p.pythonBinary(), p.script)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		return nil, fmt.Errorf("start process: %w", err)
	}

	w := newPythonWorker(id, stdin, stdout, p.logger)
	w.process = cmd
	w.timeout = time.Duration(p.cfg.ProcessShutdownTimeout) * time.Second

	ready, err := w.handshake(PythonConfigMessage{ModelName: p.model, Task: "text-classification"})
	if err != nil {
		w.close()
		return nil, err
	}

	p.logger.Debug(nil, "Python worker %d ready (labels=%v)", id, ready.Labels)
	return w, nil
}

func newPythonWorker(id int, stdin io.WriteCloser, stdout io.ReadCloser, logger *utils.Logger) *PythonWorker {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), maxResponseLine)
	return &PythonWorker{
		id:      id,
		stdin:   stdin,
		stdout:  stdout,
		scanner: scanner,
		logger:  logger,
	}
}

func (w *PythonWorker) handshake(msg PythonConfigMessage) (*PythonReady, error) {
	if err := w.writeLine(msg); err != nil {
		return nil, fmt.Errorf("send config: %w", err)
	}

	if !w.scanner.Scan() {
		if err := w.scanner.Err(); err != nil {
			return nil, fmt.Errorf("read READY message: %w", err)
		}
		return nil, fmt.Errorf("failed to read READY message")
	}

	var ready PythonReady
	if err := json.Unmarshal(w.scanner.Bytes(), &ready); err != nil {
		return nil, fmt.Errorf("failed to parse ready message: %w", err)
	}
	if ready.Status != "ready" {
		return nil, fmt.Errorf("unexpected startup status %q: %s", ready.Status, ready.Error)
	}
	return &ready, nil
}

func (w *PythonWorker) processTask(task Task) ([]classifier.Raw, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writeLine(PythonRequest{Texts: task.Texts, MaxLength: task.MaxLength}); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}

	if !w.scanner.Scan() {
		if err := w.scanner.Err(); err != nil {
			return nil, fmt.Errorf("read stdout: %w", err)
		}
		return nil, fmt.Errorf("stdout closed")
	}

	var resp PythonResponse
	if err := json.Unmarshal(w.scanner.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("python error: %s", resp.Error)
	}

	if resp.DebugInfo != nil {
		w.logger.Debug(nil, "Detector worker %d stats: process_ms=%d, batch_size=%d",
			w.id, resp.DebugInfo.ProcessingTimeMS, resp.DebugInfo.BatchSize)
	}
	return resp.Results, nil
}

func (w *PythonWorker) writeLine(v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	line = append(line, '\n')
	_, err = w.stdin.Write(line)
	return err
}

// close ends the worker's stdin so the script exits its read loop, then kills
// the process if it has not exited within the shutdown timeout.
func (w *PythonWorker) close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stdin != nil {
		w.stdin.Close()
	}
	if w.process != nil && w.process.Process != nil {
		exited := make(chan struct{})
		go func() {
			_ = w.process.Wait()
			close(exited)
		}()
		select {
		case <-exited:
		case <-time.After(w.timeout):
			_ = w.process.Process.Kill()
			<-exited
		}
	}
	if w.stdout != nil {
		w.stdout.Close()
	}
}

func (p *PythonWorkerPool) Close() error {
	p.closeOnce.Do(func() {
		close(p.done)
	})
	p.wg.Wait()
	return nil
}

func (p *PythonWorkerPool) setupEnvironment() error {
	if err := os.MkdirAll(p.cfg.ConfigDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := p.extractScriptIfNeeded(); err != nil {
		return fmt.Errorf("failed to extract script: %w", err)
	}

	if p.cfg.SkipSetup {
		p.logger.Debug(nil, "Skipping virtual environment setup, using python3 from PATH")
		return nil
	}

	if err := p.checkPython(); err != nil {
		return fmt.Errorf("python check failed: %w", err)
	}

	if err := p.createVenv(); err != nil {
		return fmt.Errorf("failed to create venv: %w", err)
	}

	if err := p.installRequirements(); err != nil {
		return fmt.Errorf("failed to install requirements: %w", err)
	}

	return nil
}

func (p *PythonWorkerPool) checkPython() error {
	cmd := exec.Command("python3", "--version")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("python3 not found: %w", err)
	}

	p.logger.Debug(nil, "Python3 found")
	return nil
}

func (p *PythonWorkerPool) createVenv() error {
	venvPython := filepath.Join(p.venv, "bin", "python")

	if _, err := os.Stat(venvPython); err == nil {
		p.logger.Debug(nil, "Virtual environment already exists at %s", p.venv)
		return nil
	}

	p.logger.Info(nil, "Creating virtual environment at %s", p.venv)

	cmd := exec.Command("python3", "-m", "venv", p.venv)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("failed to create venv: %s: %w", output, err)
	}

	p.logger.Info(nil, "Virtual environment created successfully")
	return nil
}

func (p *PythonWorkerPool) installRequirements() error {
	venvPip := filepath.Join(p.venv, "bin", "pip")
	requirementsPath := filepath.Join(p.cfg.ConfigDir, "python", "requirements.txt")

	p.logger.Info(nil, "Installing Python requirements from %s", requirementsPath)

	cmd := exec.Command(venvPip, "install", "-r", requirementsPath)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("failed to install requirements: %s: %w", output, err)
	}

	p.logger.Info(nil, "Python requirements installed successfully")
	return nil
}

func (p *PythonWorkerPool) extractScriptIfNeeded() error {
	pythonDir := filepath.Join(p.cfg.ConfigDir, "python")

	if err := os.MkdirAll(pythonDir, 0755); err != nil {
		return fmt.Errorf("failed to create python directory: %w", err)
	}

	requirementsPath := filepath.Join(pythonDir, "requirements.txt")
	if _, err := os.Stat(requirementsPath); err != nil {
		requirementsContent := embeddedRequirements
		if requirementsContent == "" {
			requirementsContent = defaultRequirements
		}
		if err := os.WriteFile(requirementsPath, []byte(requirementsContent), 0644); err != nil {
			return fmt.Errorf("failed to write requirements file: %w", err)
		}
	}

	if _, err := os.Stat(p.script); err == nil {
		p.logger.Debug(nil, "Python script already exists at %s", p.script)
		return nil
	}

	p.logger.Info(nil, "Extracting embedded Python script to %s", p.script)

	if err := os.WriteFile(p.script, []byte(embeddedPythonScript), 0755); err != nil {
		return fmt.Errorf("failed to write python script: %w", err)
	}

	p.logger.Info(nil, "Python script extracted successfully")
	return nil
}
