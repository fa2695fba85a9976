//go:build windows

package main

import (
	"os"
	"os/exec"
)

// gracefulSignals returns the OS signals the wrapper forwards to its
// child. On Windows, only os.Interrupt (Ctrl+C) is reliably delivered;
// SIGTERM does not exist.
func gracefulSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}

func forwardSignal(proc *os.Process, sig os.Signal) {
	// Windows cannot deliver arbitrary signals to another process;
	// the closest equivalent to a forwarded interrupt is termination.
	proc.Kill()
}

// terminatingSignal is always false on Windows: there is no
// WaitStatus.Signaled() equivalent, only a numeric exit code.
func terminatingSignal(exitErr *exec.ExitError) (os.Signal, bool) {
	return nil, false
}

func raiseSelf(sig os.Signal) {}
