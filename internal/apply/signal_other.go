//go:build !unix

package apply

import "fmt"

// signalProcesses is not supported without Unix signals.
func signalProcesses(process, _ string) (int, error) {
	return 0, fmt.Errorf("reloading %s by signal is not supported on this platform", process)
}
