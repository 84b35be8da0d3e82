// Package process runs external conversion engines and makes sure a timed-out
// engine does not leave helper processes behind.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Sentinel errors for process execution.
var (
	ErrStart   = errors.New("failed to start process")
	ErrTimeout = errors.New("process timed out")
	ErrExit    = errors.New("process exited with non-zero status")
)

// Result holds the outcome of a finished command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Run executes name with args in its own process group and waits for it.
// When ctx is done before the command exits, the whole group is killed and
// ErrTimeout is returned.
func Run(ctx context.Context, dir, name string, args ...string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTimeout, name, err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(name, args...) // #nosec G204 -- engine binary comes from trusted config
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	setProcessGroup(cmd)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrStart, name, err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var waitErr error
	select {
	case waitErr = <-done:
	case <-ctx.Done():
		KillProcessGroup(cmd.Process.Pid)
		<-done
		res := &Result{
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
			ExitCode: -1,
			Duration: time.Since(start),
		}
		return res, fmt.Errorf("%w: %s after %s", ErrTimeout, name, res.Duration.Round(time.Millisecond))
	}

	res := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, fmt.Errorf("%w: %s exited %d: %s", ErrExit, name, res.ExitCode, strings.TrimSpace(res.Stderr))
		}
		return res, fmt.Errorf("%w: %s: %v", ErrExit, name, waitErr)
	}
	return res, nil
}
