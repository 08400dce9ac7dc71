//go:build !windows

package powershell

import "os/exec"

// hideWindow is a no-op off Windows; there is no console window to hide.
func hideWindow(_ *exec.Cmd) {}
