//go:build !unix

package local

import (
	"errors"
	"os"
	"os/exec"
)

func startOwnGroup(*exec.Cmd) {}

// killGroup kills the direct child only; descendants are not tracked here.
func killGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}
