//go:build unix

package apply

import (
	"fmt"
	"syscall"

	"github.com/mitchellh/go-ps"
)

var signals = map[string]syscall.Signal{
	"SIGHUP":  syscall.SIGHUP,
	"SIGINT":  syscall.SIGINT,
	"SIGTERM": syscall.SIGTERM,
	"SIGUSR1": syscall.SIGUSR1,
	"SIGUSR2": syscall.SIGUSR2,
}

// signalProcesses sends the named signal to every process whose executable
// is process. It returns how many processes were signalled.
func signalProcesses(process, signal string) (int, error) {
	name, err := NormalizeSignal(signal)
	if err != nil {
		return 0, err
	}
	sig := signals[name]

	pids, err := findProcessByName(process)
	if err != nil {
		return 0, err
	}

	for i, pid := range pids {
		if err := syscall.Kill(pid, sig); err != nil {
			return i, fmt.Errorf("failed to send %s to PID %d: %w", name, pid, err)
		}
	}
	return len(pids), nil
}

// findProcessByName finds all processes with the given executable name.
func findProcessByName(name string) ([]int, error) {
	processes, err := ps.Processes()
	if err != nil {
		return nil, fmt.Errorf("failed to get process list: %w", err)
	}

	var pids []int
	for _, p := range processes {
		if p.Executable() == name {
			pids = append(pids, p.Pid())
		}
	}
	return pids, nil
}
