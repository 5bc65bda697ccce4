package dryrun

import (
	"context"
	"log/slog"

	"ledir/internal/domain"
)

// Transmitter logs each code instead of emitting it.
type Transmitter struct {
	logger *slog.Logger
	sent   int
}

func NewTransmitter(logger *slog.Logger) *Transmitter {
	return &Transmitter{logger: logger}
}

func (t *Transmitter) Send(_ context.Context, code domain.Command) error {
	t.sent++
	t.logger.Info("dry run: would send", "code", code, "n", t.sent)
	return nil
}

// Sent returns how many codes were accepted.
func (t *Transmitter) Sent() int {
	return t.sent
}

func (t *Transmitter) Close() error {
	t.logger.Info("dry run finished", "sent", t.sent)
	return nil
}
