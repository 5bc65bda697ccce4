package application_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"ledir/internal/application"
	"ledir/internal/domain"
)

type recordingNotifier struct {
	calls   int
	source  string
	detail  string
	failure error
}

func (r *recordingNotifier) Notify(_ context.Context, source, detail string) error {
	r.calls++
	r.source = source
	r.detail = detail
	return r.failure
}

func TestBoundary_TransmissionFailureAlertsOnce(t *testing.T) {
	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(logs, nil))
	notifier := &recordingNotifier{}

	events := &[]event{}
	tx := &recordingTransmitter{events: events, failAt: 4, err: errors.New("ir led not responding")}
	d := application.NewDispatcher(tx, nil, application.DefaultRampConfig(), logger,
		application.WithWait(func(context.Context, time.Duration) error { return nil }))

	b := application.NewBoundary(notifier, "ledir", logger)
	err := b.Run(context.Background(), func(ctx context.Context) error {
		return d.Dispatch(ctx, []string{"light_min"})
	})

	var txErr *application.TransmissionError
	if !errors.As(err, &txErr) {
		t.Fatalf("got %v, want *TransmissionError", err)
	}

	if notifier.calls != 1 {
		t.Errorf("notify calls: got %d, want 1", notifier.calls)
	}
	if notifier.source != "ledir" {
		t.Errorf("source: got %q, want ledir", notifier.source)
	}
	if !strings.Contains(notifier.detail, "ir led not responding") {
		t.Errorf("detail should carry the cause, got %q", notifier.detail)
	}

	if got := sent(*events); len(got) != 3 {
		t.Errorf("successful sends: got %d, want 3", len(got))
	}

	if !strings.Contains(logs.String(), "invocation failed") {
		t.Errorf("expected failure to be logged, got %q", logs.String())
	}
}

func TestBoundary_RoutineOutcomesDoNotAlert(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	for _, routine := range []error{
		application.ErrInvalidInvocation,
		&application.UnknownCommandError{Code: domain.Command("purple")},
		nil,
	} {
		notifier := &recordingNotifier{}
		b := application.NewBoundary(notifier, "ledir", logger)

		err := b.Run(context.Background(), func(context.Context) error { return routine })
		if err != nil {
			t.Errorf("Run(%v): got %v, want nil", routine, err)
		}
		if notifier.calls != 0 {
			t.Errorf("Run(%v): notify calls %d, want 0", routine, notifier.calls)
		}
	}
}

func TestBoundary_RecoversPanic(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	notifier := &recordingNotifier{}
	b := application.NewBoundary(notifier, "ledir", logger)

	err := b.Run(context.Background(), func(context.Context) error {
		panic("codeset index out of range")
	})

	var pe *application.PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("got %v, want *PanicError", err)
	}
	if notifier.calls != 1 {
		t.Errorf("notify calls: got %d, want 1", notifier.calls)
	}
	if !strings.Contains(notifier.detail, "goroutine") {
		t.Errorf("detail should include the stack, got %q", notifier.detail)
	}
}

func TestBoundary_NotifierFailureIsLogged(t *testing.T) {
	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(logs, nil))
	notifier := &recordingNotifier{failure: errors.New("smtp: connection refused")}
	b := application.NewBoundary(notifier, "ledir", logger)

	sendErr := errors.New("serial port closed")
	err := b.Run(context.Background(), func(context.Context) error { return sendErr })
	if !errors.Is(err, sendErr) {
		t.Fatalf("got %v, want original error", err)
	}

	if !strings.Contains(logs.String(), "sending alert") {
		t.Errorf("expected notifier failure to be logged, got %q", logs.String())
	}
}

func TestMultiNotifier(t *testing.T) {
	a := &recordingNotifier{}
	b := &recordingNotifier{failure: errors.New("pushover error: 500")}
	c := &recordingNotifier{}

	err := application.MultiNotifier{a, b, c}.Notify(context.Background(), "ledir", "boom")
	if err == nil || !strings.Contains(err.Error(), "pushover") {
		t.Errorf("got %v, want joined pushover error", err)
	}

	for i, n := range []*recordingNotifier{a, b, c} {
		if n.calls != 1 {
			t.Errorf("notifier %d: calls %d, want 1", i, n.calls)
		}
	}

	if err := (application.MultiNotifier{}).Notify(context.Background(), "ledir", "boom"); err != nil {
		t.Errorf("empty MultiNotifier: got %v, want nil", err)
	}
}

func TestDescribe(t *testing.T) {
	base := errors.New("write /dev/ttyUSB0: input/output error")
	err := &application.TransmissionError{Code: "blue", Pulse: 1, Err: base}

	got := application.Describe(err)
	if !strings.HasPrefix(got, "sending blue (pulse 1)") {
		t.Errorf("got %q", got)
	}
	if !strings.Contains(got, "caused by: write /dev/ttyUSB0") {
		t.Errorf("missing cause line in %q", got)
	}
}
