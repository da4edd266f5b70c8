// Package probe checks whether a named process is running.
package probe

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Result is the outcome of a process check.
type Result int

const (
	NotRunning Result = iota
	Running
	CheckFailed
)

func (r Result) String() string {
	switch r {
	case Running:
		return "running"
	case NotRunning:
		return "not running"
	case CheckFailed:
		return "check failed"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// ExitCode maps the result to a process exit status: 0 running, 1 not
// running, 2 failure.
func (r Result) ExitCode() int {
	switch r {
	case Running:
		return 0
	case NotRunning:
		return 1
	default:
		return 2
	}
}

// Runner executes a command and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Checker lists processes through Run.
type Checker struct {
	Run Runner
	// Err holds the error of the last failed check.
	Err error
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Check reports whether any other running process has name in its command
// line. Failures are reported as CheckFailed, never as an error.
func Check(ctx context.Context, name string) Result {
	c := &Checker{}
	return c.Check(ctx, name)
}

// Check reports whether any running process other than the current one has
// name in its command line.
func (c *Checker) Check(ctx context.Context, name string) Result {
	run := c.Run
	if run == nil {
		run = execRunner
	}
	c.Err = nil

	out, err := run(ctx, "ps", "-eo", "pid=,args=")
	if err != nil {
		c.Err = fmt.Errorf("failed to list processes: %w", err)
		return CheckFailed
	}
	if containsProcess(out, name, os.Getpid()) {
		return Running
	}
	return NotRunning
}

// containsProcess scans "pid args" lines for name, skipping the line of
// process self since its own arguments may carry the name.
func containsProcess(out []byte, name string, self int) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	sc := bufio.NewScanner(bytes.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if pidField, args, ok := strings.Cut(line, " "); ok {
			if pid, err := strconv.Atoi(pidField); err == nil {
				if pid == self {
					continue
				}
				line = args
			}
		}
		if strings.Contains(line, name) {
			return true
		}
	}
	return false
}
