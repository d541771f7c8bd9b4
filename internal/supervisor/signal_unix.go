//go:build !windows

package supervisor

import "syscall"

// killProcess sends SIGTERM to a Unix process.
func killProcess(pid int) error {
	return syscall.Kill(pid, syscall.SIGTERM)
}
