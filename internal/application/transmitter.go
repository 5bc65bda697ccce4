package application

import (
	"context"

	"ledir/internal/domain"
)

// Transmitter emits one IR code per Send. A nil error means the code was
// handed to the hardware or bridge, not that the device acted on it.
type Transmitter interface {
	Send(ctx context.Context, code domain.Command) error
	Close() error
}

// CodeChecker reports whether a code can be transmitted. A nil CodeChecker
// means the backend resolves names itself.
type CodeChecker interface {
	Has(code domain.Command) bool
}
