//go:build windows

package powershell

import (
	"os/exec"
	"syscall"
)

// hideWindow keeps the spawned console from flashing on screen.
func hideWindow(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{HideWindow: true}
}
