//go:build !windows

package cmd

import (
	"os"
	"syscall"
)

// gracefulSignals returns the signals serve shuts down on, the same set
// the teacher's cmd/sentinel-gate/cmd/process_unix.go forwards.
func gracefulSignals() []os.Signal {
	return []os.Signal{syscall.SIGINT, syscall.SIGTERM}
}
