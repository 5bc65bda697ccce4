package serialir

import (
	"context"
	"fmt"
	"io"

	"github.com/tarm/serial"

	"ledir/internal/domain"
)

// Transmitter writes decoded key bytes to a USB/serial IR blaster. The
// blaster firmware modulates the bytes itself.
type Transmitter struct {
	name  string
	port  io.WriteCloser
	codes *domain.Codeset
}

// Open opens the serial port once; it stays open until Close.
func Open(name string, baud int, codes *domain.Codeset) (*Transmitter, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name: name,
		Baud: baud,
	})
	if err != nil {
		return nil, fmt.Errorf("opening serial port %s: %w", name, err)
	}

	return New(name, port, codes), nil
}

func New(name string, port io.WriteCloser, codes *domain.Codeset) *Transmitter {
	return &Transmitter{
		name:  name,
		port:  port,
		codes: codes,
	}
}

func (t *Transmitter) Send(ctx context.Context, code domain.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := t.codes.Bytes(code)
	if err != nil {
		return err
	}

	n, err := t.port.Write(data)
	if err != nil {
		return fmt.Errorf("writing %s to %s: %w", code, t.name, err)
	}
	if n != len(data) {
		return fmt.Errorf("writing %s to %s: %w", code, t.name, io.ErrShortWrite)
	}

	return nil
}

func (t *Transmitter) Close() error {
	return t.port.Close()
}
