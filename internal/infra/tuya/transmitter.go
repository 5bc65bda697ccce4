package tuya

import (
	"context"

	"ledir/internal/domain"
)

// Transmitter emits codeset keys through a Tuya IR hub. Key values are the
// learned codes reported by the Tuya app.
type Transmitter struct {
	client     *Client
	infraredID string
	remoteID   string
	categoryID int
	codes      *domain.Codeset
}

func NewTransmitter(client *Client, infraredID, remoteID string, categoryID int, codes *domain.Codeset) *Transmitter {
	return &Transmitter{
		client:     client,
		infraredID: infraredID,
		remoteID:   remoteID,
		categoryID: categoryID,
		codes:      codes,
	}
}

func (t *Transmitter) Send(ctx context.Context, code domain.Command) error {
	learned, err := t.codes.Raw(code)
	if err != nil {
		return err
	}
	return t.client.SendLearnedCode(ctx, t.infraredID, t.remoteID, t.categoryID, learned)
}

func (t *Transmitter) Close() error {
	t.client.httpClient.CloseIdleConnections()
	return nil
}
