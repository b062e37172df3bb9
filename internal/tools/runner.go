package tools

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
)

// Runner executes external tools. Production code uses ExecRunner; tests
// substitute fakes.
type Runner interface {
	// Run executes a command and returns its combined output. A non-zero
	// exit is reported as an error with the output attached.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
	// RunStream executes a command and delivers each stdout line to onLine
	// as it is produced. Stderr is discarded.
	RunStream(ctx context.Context, name string, args []string, onLine func(string)) error
	// Look resolves a tool name to an absolute path.
	Look(name string) (string, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return output, fmt.Errorf("%s failed: %w: %s", name, err, output)
	}
	return output, nil
}

func (ExecRunner) RunStream(ctx context.Context, name string, args []string, onLine func(string)) error {
	cmd := exec.CommandContext(ctx, name, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%s stdout pipe: %w", name, err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%s start: %w", name, err)
	}
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if onLine != nil {
			onLine(scanner.Text())
		}
	}
	scanErr := scanner.Err()
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("%s failed: %w", name, err)
	}
	if scanErr != nil {
		return fmt.Errorf("%s output scan: %w", name, scanErr)
	}
	return nil
}

func (ExecRunner) Look(name string) (string, error) {
	return exec.LookPath(name)
}
