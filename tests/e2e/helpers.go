package main

import (
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/grovetools/tend/pkg/fs"
	"github.com/grovetools/tend/pkg/harness"
)

// findNudgeBinary finds the nudge binary under test.
// It relies on the Makefile setting the PATH to include the local ./bin directory.
func findNudgeBinary() (string, error) {
	path, err := exec.LookPath("nudge")
	if err != nil {
		return "", fmt.Errorf("could not find 'nudge' binary in PATH. Ensure 'make test-e2e' is used")
	}
	return path, nil
}

// writeProjectConfig creates a project directory holding nudge.yml. The daemon
// socket and PID file are pointed into the sandbox.
func writeProjectConfig(ctx *harness.Context, name, body string) (string, error) {
	dir := ctx.NewDir(name)
	header := fmt.Sprintf("version: \"1.0\"\ndaemon:\n  socket: %s\n  pid_file: %s\n",
		filepath.Join(dir, "nudged.sock"), filepath.Join(dir, "nudged.pid"))
	if err := fs.WriteString(filepath.Join(dir, "nudge.yml"), header+body); err != nil {
		return "", err
	}
	return dir, nil
}

// run executes nudge in dir and returns the result.
func run(ctx *harness.Context, dir string, args ...string) (stdout, stderr string, err error) {
	bin, err := findNudgeBinary()
	if err != nil {
		return "", "", err
	}
	cmd := ctx.Command(bin, args...).Dir(dir)
	result := cmd.Run()
	ctx.ShowCommandOutput(cmd.String(), result.Stdout, result.Stderr)
	return result.Stdout, result.Stderr, result.Error
}
