package atlas

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const maxStderrBytes = 4 << 10

var chmod = os.Chmod

// Runner runs the generator with the given argv.
type Runner interface {
	Run(ctx context.Context, args []string) error
}

// BinaryName is the msdf-atlas-gen executable shipped for goos.
func BinaryName(goos string) string {
	switch goos {
	case "darwin":
		return "msdf-atlas-gen-macos"
	case "windows":
		return "msdf-atlas-gen-windows.exe"
	default:
		return "msdf-atlas-gen-linux"
	}
}

// Generator invokes the external msdf-atlas-gen binary.
type Generator struct {
	Binary string
	// Timeout bounds a single run. Zero means no limit.
	Timeout time.Duration
}

// NewGenerator returns a Generator for the binary matching goos in dir.
func NewGenerator(dir, goos string, timeout time.Duration) *Generator {
	return &Generator{
		Binary:  filepath.Join(dir, BinaryName(goos)),
		Timeout: timeout,
	}
}

// Run makes the binary executable, then runs it with args and waits for it
// to exit. A failed permission change aborts the run.
func (g *Generator) Run(ctx context.Context, args []string) error {
	if err := ensureExecutable(g.Binary); err != nil {
		return err
	}

	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, g.Binary, args...)
	cmd.Stderr = &stderr
	cmd.WaitDelay = 5 * time.Second

	err := cmd.Run()
	if err == nil {
		return nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("Command failed: %s timed out after %s", filepath.Base(g.Binary), g.Timeout)
	}

	msg := strings.TrimSpace(stderr.String())
	if len(msg) > maxStderrBytes {
		msg = msg[len(msg)-maxStderrBytes:]
	}
	if msg == "" {
		return fmt.Errorf("Command failed: %w", err)
	}
	return fmt.Errorf("Command failed: %w\n%s", err, msg)
}

// ensureExecutable adds execute bits to path. It is a no-op when they are
// already set.
func ensureExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat generator: %w", err)
	}
	mode := info.Mode().Perm()
	if mode&0o111 == 0o111 {
		return nil
	}
	if err := chmod(path, mode|0o111); err != nil {
		return fmt.Errorf("failed to make generator executable: %w", err)
	}
	return nil
}
