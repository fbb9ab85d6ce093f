//go:build !windows

package proc

import "syscall"

// detachAttr puts the child in its own session so it survives the launcher's
// exit and ignores the launcher's controlling terminal.
func detachAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
