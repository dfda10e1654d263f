//go:build unix

package cli

import (
	"bytes"
	"context"
	"os"
	"syscall"
	"testing"
	"time"

	"bilancio/internal/log"
)

func TestGracefulShutdownRunsCleanup(t *testing.T) {
	logger := log.New(log.Config{Output: &bytes.Buffer{}})
	cleaned := make(chan struct{})
	ctx, done := gracefulShutdown(logger, time.Second, func(context.Context) { close(cleaned) }, syscall.SIGUSR1)

	if err := syscall.Kill(os.Getpid(), syscall.SIGUSR1); err != nil {
		t.Fatalf("kill: %v", err)
	}

	select {
	case <-cleaned:
	case <-time.After(2 * time.Second):
		t.Fatal("cleanup did not run")
	}
	WaitForShutdown(ctx, done)
	if ctx.Err() == nil {
		t.Fatal("context should be cancelled")
	}
}
