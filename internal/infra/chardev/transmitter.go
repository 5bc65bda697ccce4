package chardev

import (
	"context"
	"fmt"
	"os"

	"ledir/internal/domain"
)

// Transmitter drives an IR LED through a kernel character device such as
// /dev/irblaster. Each Send is a single write of one Frame.
type Transmitter struct {
	file  *os.File
	codes *domain.Codeset
}

func Open(path string, codes *domain.Codeset) (*Transmitter, error) {
	f, err := os.OpenFile(path, os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	return &Transmitter{file: f, codes: codes}, nil
}

func (t *Transmitter) Send(ctx context.Context, code domain.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := t.codes.Bytes(code)
	if err != nil {
		return err
	}

	frame, err := NewFrame(t.codes.Format, data)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", code, err)
	}

	raw, err := frame.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encoding %s: %w", code, err)
	}

	if _, err := t.file.Write(raw); err != nil {
		return fmt.Errorf("writing %s to %s: %w", code, t.file.Name(), err)
	}

	return nil
}

func (t *Transmitter) Close() error {
	return t.file.Close()
}
