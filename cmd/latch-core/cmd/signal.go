package cmd

import (
	"context"
	"os/signal"
	"time"
)

// shutdownGracePeriod bounds how long serve waits for in-flight requests
// (and any parked approvals) to drain before the process exits anyway.
const shutdownGracePeriod = 10 * time.Second

// signalContext returns a context cancelled on the first of
// gracefulSignals(), mirroring the teacher's
// signal.NotifyContext(context.Background(), gracefulSignals()...) in
// cmd/sentinel-gate/cmd/start.go.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), gracefulSignals()...)
}
