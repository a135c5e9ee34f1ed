package actions

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"time"

	apperrors "snapmaster-gcp/internal/common/errors"
	"snapmaster-gcp/internal/models"
)

// Runner executes one action script. Implementations must always return a
// non-nil result and report every failure through ExecutionResult.Error.
type Runner interface {
	Run(ctx context.Context, script string, env []string) *models.ExecutionResult
}

// ShellRunner runs scripts with a POSIX shell
type ShellRunner struct {
	Shell string
	// WaitDelay bounds how long output pipes are drained after the context
	// kills the shell
	WaitDelay time.Duration
}

// NewShellRunner creates a runner using /bin/sh
func NewShellRunner() *ShellRunner {
	return &ShellRunner{Shell: "/bin/sh", WaitDelay: 5 * time.Second}
}

// Run executes script with env as its complete environment, in the script's
// directory
func (r *ShellRunner) Run(ctx context.Context, script string, env []string) *models.ExecutionResult {
	// cmd.Dir changes how a relative path resolves for the shell
	if abs, err := filepath.Abs(script); err == nil {
		script = abs
	}
	cmd := exec.CommandContext(ctx, r.Shell, script)
	cmd.Env = env
	cmd.Dir = filepath.Dir(script)
	cmd.WaitDelay = r.WaitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := &models.ExecutionResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err == nil {
		return result
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		result.Error = apperrors.InternalError(fmt.Sprintf("action script exited with code %d", result.ExitCode), err)
		return result
	}

	result.ExitCode = -1
	result.Error = apperrors.InternalError("could not start action script", err)
	return result
}
