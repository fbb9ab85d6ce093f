//go:build windows

package proc

import "syscall"

// DETACHED_PROCESS is not exposed by the syscall package.
const detachedProcess = 0x00000008

// detachAttr detaches the child from the launcher's console and process
// group so it survives the launcher's exit.
func detachAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP | detachedProcess,
	}
}
