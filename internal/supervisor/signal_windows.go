//go:build windows

package supervisor

import "os"

// killProcess terminates a Windows process; there is no SIGTERM analogue.
func killProcess(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return p.Kill()
}
