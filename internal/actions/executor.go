package actions

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/semaphore"

	apperrors "snapmaster-gcp/internal/common/errors"
	"snapmaster-gcp/internal/common/logging"
	"snapmaster-gcp/internal/common/validation"
	"snapmaster-gcp/internal/credentials"
	"snapmaster-gcp/internal/models"
)

// ExecutorConfig holds action execution settings
type ExecutorConfig struct {
	ScriptDir     string
	MaxConcurrent int64
	Timeout       time.Duration
}

// Executor runs action scripts with a bounded number in flight
type Executor struct {
	runner    Runner
	scriptDir string
	timeout   time.Duration
	sem       *semaphore.Weighted
	environ   func() []string
	logger    logging.Logger
}

// NewExecutor creates an executor. A relative ScriptDir is resolved against
// the working directory at construction time.
func NewExecutor(runner Runner, config ExecutorConfig, logger logging.Logger) *Executor {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 1
	}
	if abs, err := filepath.Abs(config.ScriptDir); err == nil {
		config.ScriptDir = abs
	}
	return &Executor{
		runner:    runner,
		scriptDir: config.ScriptDir,
		timeout:   config.Timeout,
		sem:       semaphore.NewWeighted(config.MaxConcurrent),
		environ:   os.Environ,
		logger:    logger,
	}
}

type actionName struct {
	Action string `json:"action" validate:"required,script_name"`
}

// ScriptPath returns the script that implements action
func (e *Executor) ScriptPath(action string) string {
	return filepath.Join(e.scriptDir, action+".sh")
}

// Invoke runs the script named by param["action"]. It never returns nil.
func (e *Executor) Invoke(ctx context.Context, activeSnapID string, param models.Params, key *credentials.ServiceAccountKey) *models.ExecutionResult {
	action := param.String("action")
	if err := validation.First(actionName{Action: action}, validation.ScopeParam); err != nil {
		return &models.ExecutionResult{Error: err, ExitCode: -1}
	}

	logger := e.logger.WithContext(ctx).WithFields(logging.Field{Key: "action", Value: action})

	if err := e.sem.Acquire(ctx, 1); err != nil {
		return &models.ExecutionResult{Error: apperrors.FromContext(ctx, "waiting for an action slot", err), ExitCode: -1}
	}
	defer e.sem.Release(1)

	runCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	script := e.ScriptPath(action)
	if _, err := os.Stat(script); err != nil {
		logger.Warn("Action script not found", logging.Field{Key: "script", Value: script})
		return &models.ExecutionResult{Error: apperrors.NotFoundError(fmt.Sprintf("action %q", action)), ExitCode: -1}
	}

	env := BuildEnvironment(e.environ(), activeSnapID, param, key)
	logger.Info("Executing action",
		logging.Field{Key: "env_count", Value: len(env)},
		logging.Redacted(EnvServiceCreds, key != nil),
	)

	start := time.Now()
	result := e.runner.Run(runCtx, script, env)
	if result == nil {
		result = &models.ExecutionResult{Error: apperrors.InternalError("action runner returned no result", nil), ExitCode: -1}
	}
	if result.Error != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		result.Error = apperrors.TimeoutError(fmt.Sprintf("action %s", action), result.Error)
	}

	fields := []logging.Field{
		{Key: "exit_code", Value: result.ExitCode},
		{Key: "duration", Value: time.Since(start).String()},
	}
	if result.Error != nil {
		logger.Error("Action failed", result.Error, fields...)
	} else {
		logger.Info("Action completed", fields...)
	}
	return result
}
