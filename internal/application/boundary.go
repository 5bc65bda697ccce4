package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"
)

// PanicError carries a recovered panic and the stack it was raised on.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Boundary is the single place where faults become alerts.
type Boundary struct {
	notifier      Notifier
	source        string
	notifyTimeout time.Duration
	logger        *slog.Logger
}

func NewBoundary(notifier Notifier, source string, logger *slog.Logger) *Boundary {
	return &Boundary{
		notifier:      notifier,
		source:        source,
		notifyTimeout: 30 * time.Second,
		logger:        logger,
	}
}

// Run calls fn. Routine outcomes (see IsRoutine) are swallowed since fn has
// already logged them. Any other error, or a panic, is logged with its
// detail, reported to the notifier exactly once and returned.
func (b *Boundary) Run(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}

		if err == nil {
			return
		}
		if IsRoutine(err) {
			err = nil
			return
		}

		detail := Describe(err)
		b.logger.Error("invocation failed", "error", err, "detail", detail)

		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.notifyTimeout)
		defer cancel()

		if notifyErr := b.notifier.Notify(nctx, b.source, detail); notifyErr != nil {
			b.logger.Error("sending alert", "error", notifyErr)
		}
	}()

	return fn(ctx)
}

// Describe renders err and its causes one per line, followed by the stack
// when err carries a recovered panic.
func Describe(err error) string {
	var sb strings.Builder

	sb.WriteString(err.Error())
	for cause := errors.Unwrap(err); cause != nil; cause = errors.Unwrap(cause) {
		sb.WriteString("\ncaused by: ")
		sb.WriteString(cause.Error())
	}

	var pe *PanicError
	if errors.As(err, &pe) {
		sb.WriteString("\n\n")
		sb.Write(pe.Stack)
	}

	return sb.String()
}
