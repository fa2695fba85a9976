//go:build windows

package cmd

import "os"

// gracefulSignals returns the signals serve shuts down on. Windows has no
// SIGTERM; os.Interrupt is the closest analogue, matching the teacher's
// cmd/sentinel-gate/cmd/process_windows.go.
func gracefulSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}
