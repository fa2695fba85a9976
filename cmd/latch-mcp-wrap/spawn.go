package main

import (
	"os"
	"os/exec"
	"os/signal"
)

// spawn execs name with args and childEnv, passing stdio through
// untouched (the child is an MCP server talking to the harness over
// stdin/stdout) and forwarding every signal the wrapper receives to the
// child for the lifetime of the call (spec.md §4.6 step 5-6).
func spawn(name string, args []string, childEnv []string) (int, error) {
	cmd := exec.Command(name, args...)
	cmd.Env = childEnv
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return 0, err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, gracefulSignals()...)
	defer signal.Stop(sigCh)

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	for {
		select {
		case sig := <-sigCh:
			forwardSignal(cmd.Process, sig)
		case err := <-done:
			return exitCodeFromWait(cmd, err)
		}
	}
}

// exitCodeFromWait extracts the child's exit code, or re-raises the
// signal that killed the child against the wrapper itself when the child
// did not exit normally — preserving the exit
// semantics a harness watching the wrapper's own process would expect.
func exitCodeFromWait(cmd *exec.Cmd, waitErr error) (int, error) {
	if waitErr == nil {
		return cmd.ProcessState.ExitCode(), nil
	}

	exitErr, ok := waitErr.(*exec.ExitError)
	if !ok {
		return 0, waitErr
	}

	if sig, ok := terminatingSignal(exitErr); ok {
		raiseSelf(sig)
		return 128, nil
	}

	return exitErr.ExitCode(), nil
}
