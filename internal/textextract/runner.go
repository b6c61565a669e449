package textextract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

// maxToolOutput caps what is kept from a tool's stdout.
const maxToolOutput = 32 << 20

// ErrToolMissing is returned when the external binary is not installed.
var ErrToolMissing = errors.New("text extraction tool not found")

// Runner runs an external tool and returns its output. Tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, name string, logger *slog.Logger, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, logger *slog.Logger, args ...string) ([]byte, []byte, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		logger.Warn("textextract.exec.missing", "cmd", name)
		return nil, nil, fmt.Errorf("%w: %s", ErrToolMissing, name)
	}

	stdout := &cappedBuffer{max: maxToolOutput}
	stderr := &cappedBuffer{max: 8 << 10}
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdout, cmd.Stderr = stdout, stderr

	start := time.Now()
	err = cmd.Run()
	attrs := []any{"cmd", name, "args", len(args), "elapsed_ms", time.Since(start).Milliseconds(),
		"stdout_bytes", len(stdout.buf)}
	switch {
	case ctx.Err() != nil:
		logger.Warn("textextract.exec.canceled", append(attrs, "error", ctx.Err())...)
		return nil, stderr.buf, ctx.Err()
	case err != nil:
		logger.Error("textextract.exec.failed", append(attrs, "error", err, "stderr", string(stderr.buf))...)
		return stdout.buf, stderr.buf, err
	}
	if stdout.dropped > 0 {
		attrs = append(attrs, "dropped_bytes", stdout.dropped)
	}
	logger.Debug("textextract.exec.ok", attrs...)
	return stdout.buf, stderr.buf, nil
}

// cappedBuffer keeps the first max bytes written and counts the rest.
type cappedBuffer struct {
	buf     []byte
	max     int
	dropped int
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	room := c.max - len(c.buf)
	switch {
	case room <= 0:
		c.dropped += len(p)
	case len(p) > room:
		c.buf = append(c.buf, p[:room]...)
		c.dropped += len(p) - room
	default:
		c.buf = append(c.buf, p...)
	}
	return len(p), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
