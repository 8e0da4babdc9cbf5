package tools

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

var ErrTimeout = errors.New("process timed out")

// waitDelay caps how long a killed process may hold its output pipes open.
const waitDelay = 5 * time.Second

// Result holds trimmed process output. A non-zero ExitCode is not an error.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

func (r Result) OK() bool {
	return r.ExitCode == 0
}

// ErrText returns stderr, or fallback when the tool printed nothing.
func (r Result) ErrText(fallback string) string {
	if r.Stderr != "" {
		return r.Stderr
	}
	return fallback
}

type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
	Stream(ctx context.Context, lineFn func(string), name string, args ...string) (Result, error)
}

// Exec runs real subprocesses. Binaries maps logical tool names such as
// "ffmpeg" to the executable actually invoked.
type Exec struct {
	Binaries map[string]string
}

func NewExec(binaries map[string]string) *Exec {
	if binaries == nil {
		binaries = map[string]string{}
	}
	return &Exec{Binaries: binaries}
}

func (e *Exec) resolve(name string) string {
	if bin, ok := e.Binaries[name]; ok && bin != "" {
		return bin
	}
	return name
}

func (e *Exec) Run(ctx context.Context, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, e.resolve(name), args...)
	cmd.WaitDelay = waitDelay
	log.Debug().Str("op", "tools/runner").Msgf("Executing command: %s", cmd.String())
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	res := Result{
		Stdout: strings.TrimSpace(stdout.String()),
		Stderr: strings.TrimSpace(stderr.String()),
	}
	return finish(ctx, cmd, res, err)
}

func (e *Exec) Stream(ctx context.Context, lineFn func(string), name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, e.resolve(name), args...)
	cmd.WaitDelay = waitDelay
	log.Debug().Str("op", "tools/runner").Msgf("Streaming command: %s", cmd.String())
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{ExitCode: -1}, fmt.Errorf("error creating stdout pipe: %v", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return Result{ExitCode: -1}, fmt.Errorf("error starting %s: %v", name, err)
	}
	processStream(stdout, lineFn)
	err = cmd.Wait()
	res := Result{Stderr: strings.TrimSpace(stderr.String())}
	return finish(ctx, cmd, res, err)
}

// RunWithTimeout bounds a single invocation.
func RunWithTimeout(ctx context.Context, r Runner, timeout time.Duration, name string, args ...string) (Result, error) {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return r.Run(tctx, name, args...)
}

func finish(ctx context.Context, cmd *exec.Cmd, res Result, err error) (Result, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		res.ExitCode = -1
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return res, ErrTimeout
		}
		return res, ctxErr
	}
	if err == nil {
		return res, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		log.Debug().Str("op", "tools/runner").Msgf("%s exited with code %d", cmd.Path, res.ExitCode)
		return res, nil
	}
	res.ExitCode = -1
	return res, fmt.Errorf("error running %s: %v", cmd.Path, err)
}

func processStream(reader io.Reader, lineFn func(string)) {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && lineFn != nil {
			lineFn(line)
		}
	}
}
