//go:build windows

package runner

// Windows re-exec isolation is not wired up; execution is always
// in-process and a fault in executed code takes the driver down.
func platformDefault(pidFile string) Strategy {
	return Direct{PIDFile: pidFile}
}
