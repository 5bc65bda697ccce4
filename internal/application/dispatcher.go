package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"ledir/internal/domain"
)

var (
	ErrInvalidInvocation = errors.New("invalid invocation: expected exactly one command")
	ErrUnknownCommand    = errors.New("unknown command")
)

type UnknownCommandError struct {
	Code domain.Command
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command: %s", e.Code)
}

func (e *UnknownCommandError) Unwrap() error {
	return ErrUnknownCommand
}

// TransmissionError records which send failed. Pulse is 1-based within the
// step that failed.
type TransmissionError struct {
	Code  domain.Command
	Pulse int
	Err   error
}

func (e *TransmissionError) Error() string {
	return fmt.Sprintf("sending %s (pulse %d): %v", e.Code, e.Pulse, e.Err)
}

func (e *TransmissionError) Unwrap() error {
	return e.Err
}

// IsRoutine reports whether err is a usage mistake that is logged but does
// not warrant an alert.
func IsRoutine(err error) bool {
	return errors.Is(err, ErrInvalidInvocation) || errors.Is(err, ErrUnknownCommand)
}

type RampConfig struct {
	Pulses   int
	Interval time.Duration
	Commands []domain.Command
}

// DefaultRampConfig steps the brightness 50 times at 100ms, enough to reach
// either extreme from any starting level.
func DefaultRampConfig() RampConfig {
	return RampConfig{
		Pulses:   50,
		Interval: 100 * time.Millisecond,
		Commands: domain.DefaultRampCommands,
	}
}

// WaitFunc blocks for d or until ctx is done.
type WaitFunc func(ctx context.Context, d time.Duration) error

func Wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type Option func(*Dispatcher)

func WithWait(wait WaitFunc) Option {
	return func(d *Dispatcher) {
		d.wait = wait
	}
}

type Dispatcher struct {
	tx     Transmitter
	codes  CodeChecker
	ramp   RampConfig
	wait   WaitFunc
	logger *slog.Logger
}

func NewDispatcher(
	tx Transmitter,
	codes CodeChecker,
	ramp RampConfig,
	logger *slog.Logger,
	opts ...Option,
) *Dispatcher {
	d := &Dispatcher{
		tx:     tx,
		codes:  codes,
		ramp:   ramp,
		wait:   Wait,
		logger: logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ParseCommand returns the single command in args, unchanged. It fails with
// ErrInvalidInvocation unless args holds exactly one non-blank value.
func ParseCommand(args []string) (domain.Command, error) {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return "", ErrInvalidInvocation
	}
	return domain.Command(args[0]), nil
}

// Dispatch sends the single command in args. Nothing is transmitted unless
// args holds exactly one non-blank command and every code of its plan is
// known.
func (d *Dispatcher) Dispatch(ctx context.Context, args []string) error {
	cmd, err := ParseCommand(args)
	if err != nil {
		d.logger.Error("invalid args", "count", len(args), "args", args)
		return err
	}

	plan := d.Plan(cmd)

	if err := d.checkCodes(plan); err != nil {
		d.logger.Error("refusing to send", "code", cmd, "error", err)
		return err
	}

	d.logger.Info("send IR code", "code", cmd, "steps", len(plan))

	for _, step := range plan {
		if err := d.run(ctx, step); err != nil {
			return err
		}
	}

	return nil
}

// Plan returns the sends Dispatch performs for cmd, in order.
func (d *Dispatcher) Plan(cmd domain.Command) []domain.Step {
	var plan []domain.Step

	if cmd.RequiresPower() {
		plan = append(plan, domain.Step{Code: domain.CommandOn, Repeat: 1})
	}

	if d.isRamp(cmd) {
		return append(plan, domain.Step{
			Code:     cmd,
			Repeat:   d.ramp.Pulses,
			Interval: d.ramp.Interval,
		})
	}

	return append(plan, domain.Step{Code: cmd, Repeat: 1})
}

func (d *Dispatcher) isRamp(cmd domain.Command) bool {
	return slices.Contains(d.ramp.Commands, cmd)
}

func (d *Dispatcher) checkCodes(plan []domain.Step) error {
	if d.codes == nil {
		return nil
	}
	for _, step := range plan {
		if !d.codes.Has(step.Code) {
			return &UnknownCommandError{Code: step.Code}
		}
	}
	return nil
}

func (d *Dispatcher) run(ctx context.Context, step domain.Step) error {
	sends := step.Sends()
	if sends > 1 {
		d.logger.Info("ramping", "code", step.Code, "pulses", sends, "interval", step.Interval)
	}

	for pulse := 1; pulse <= sends; pulse++ {
		if err := d.tx.Send(ctx, step.Code); err != nil {
			return &TransmissionError{Code: step.Code, Pulse: pulse, Err: err}
		}

		if step.Interval > 0 {
			if err := d.wait(ctx, step.Interval); err != nil {
				return fmt.Errorf("ramp %s stopped after pulse %d: %w", step.Code, pulse, err)
			}
		}
	}

	return nil
}
