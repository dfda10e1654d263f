package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"

	"bilancio/internal/backend"
	"bilancio/internal/config"
	"bilancio/internal/log"
	"bilancio/internal/services"
)

// env carries what every command needs to reach the ledger and the
// terminal.
type env struct {
	open   func(ctx context.Context, write bool) (*services.LedgerService, func(), error)
	stdout io.Writer
	stderr io.Writer
	now    func() time.Time
	raw    bool
}

func newEnv() *env {
	return &env{
		open:   openConfigured,
		stdout: os.Stdout,
		stderr: os.Stderr,
		now:    time.Now,
	}
}

// errVolatileBackend rejects mutations that the memory backend would drop
// when the process exits.
var errVolatileBackend = errors.New("the memory backend does not keep changes between runs; set DATA_BACKEND=sqlite")

// openConfigured builds a LedgerService over the backend selected by the
// environment, the same way the server does. Opening for write requires a
// persistent backend.
func openConfigured(ctx context.Context, write bool) (*services.LedgerService, func(), error) {
	logger := log.New(log.Config{Level: slog.LevelWarn, Component: log.ComponentCLI, Output: os.Stderr})

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	if write && bcfg.Type == backend.MemoryBackend {
		return nil, nil, errVolatileBackend
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if res.Cleanup == nil {
			return
		}
		if err := res.Cleanup(); err != nil {
			logger.Warn("Backend cleanup failed", log.FieldError, err)
		}
	}
	svc, err := services.NewLedgerService(ctx, res.Store,
		services.WithNotifier(res.Notifier),
		services.WithLogger(logger.WithComponent(log.ComponentLedger)))
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return svc, closeFn, nil
}

// withLedger opens the ledger read-only, runs fn and maps its error to an
// exit status.
func (e *env) withLedger(ctx context.Context, fn func(*services.LedgerService) error) subcommands.ExitStatus {
	return e.run(ctx, false, fn)
}

// mutate is withLedger for commands that change the ledger.
func (e *env) mutate(ctx context.Context, fn func(*services.LedgerService) error) subcommands.ExitStatus {
	return e.run(ctx, true, fn)
}

func (e *env) run(ctx context.Context, write bool, fn func(*services.LedgerService) error) subcommands.ExitStatus {
	svc, closeFn, err := e.open(ctx, write)
	if errors.Is(err, errVolatileBackend) {
		return e.usage("%v", err)
	}
	if err != nil {
		return e.fail(err)
	}
	defer closeFn()
	if err := fn(svc); err != nil {
		return e.fail(err)
	}
	return subcommands.ExitSuccess
}

func (e *env) fail(err error) subcommands.ExitStatus {
	fmt.Fprintf(e.stderr, "Error: %v\n", err)
	return subcommands.ExitFailure
}

func (e *env) usage(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(e.stderr, "Error: "+format+"\n", args...)
	return subcommands.ExitUsageError
}

func (e *env) warn(out services.Outcome) {
	if out.Warning != "" {
		fmt.Fprintln(e.stderr, out.Warning)
	}
}

// printMarkdown renders md for the terminal unless raw output was asked for.
func (e *env) printMarkdown(md string) {
	if !e.raw {
		if styled, err := glamour.Render(md, "auto"); err == nil {
			md = styled
		}
	}
	fmt.Fprint(e.stdout, md)
}
