package adb

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/droidpilot/internal/config"
)

// commandRunner abstracts process execution so device behavior can be tested
// without a connected phone.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// execRunner runs real processes.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s %v: %w (stderr: %s)", name, args, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return stdout.Bytes(), nil
}

// Transport issues adb commands against one device serial. It is safe for
// sequential use by a single session; concurrent gestures on the same device
// are the caller's responsibility to prevent.
type Transport struct {
	adbPath string
	serial  string
	timeout time.Duration
	runner  commandRunner
	logger  *zap.Logger
}

// NewTransport builds a Transport from the device configuration.
func NewTransport(cfg config.DeviceConfig, logger *zap.Logger) *Transport {
	path := cfg.ADBPath
	if path == "" {
		path = "adb"
	}
	timeout := cfg.CommandTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Transport{
		adbPath: path,
		serial:  cfg.Serial,
		timeout: timeout,
		runner:  execRunner{},
		logger:  logger.Named("adb"),
	}
}

// args prefixes the serial selector when one is configured.
func (t *Transport) args(rest ...string) []string {
	if t.serial == "" {
		return rest
	}
	return append([]string{"-s", t.serial}, rest...)
}

// Command runs a raw adb command and returns its stdout.
func (t *Transport) Command(ctx context.Context, rest ...string) ([]byte, error) {
	cmdCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	full := t.args(rest...)
	out, err := t.runner.Run(cmdCtx, t.adbPath, full...)
	if err != nil {
		return nil, err
	}
	t.logger.Debug("adb command complete", zap.Strings("args", full), zap.Int("stdout_bytes", len(out)))
	return out, nil
}

// Shell runs an `adb shell` command.
func (t *Transport) Shell(ctx context.Context, rest ...string) ([]byte, error) {
	return t.Command(ctx, append([]string{"shell"}, rest...)...)
}

// ExecOut runs an `adb exec-out` command, which returns binary output
// without the shell's tty mangling. Used for screenshots and file reads.
func (t *Transport) ExecOut(ctx context.Context, rest ...string) ([]byte, error) {
	return t.Command(ctx, append([]string{"exec-out"}, rest...)...)
}
