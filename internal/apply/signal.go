package apply

import (
	"fmt"
	"slices"
	"strings"
)

var signalNames = []string{"SIGHUP", "SIGINT", "SIGTERM", "SIGUSR1", "SIGUSR2"}

// NormalizeSignal returns the canonical name of a reload signal. It accepts
// "usr1", "USR1" and "SIGUSR1".
func NormalizeSignal(name string) (string, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	if !strings.HasPrefix(n, "SIG") {
		n = "SIG" + n
	}
	if !slices.Contains(signalNames, n) {
		return "", fmt.Errorf("unsupported signal %q (want one of %s)", name, strings.Join(signalNames, ", "))
	}
	return n, nil
}
