package mqttir

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	"github.com/google/uuid"

	"ledir/internal/domain"
)

type Options struct {
	Broker      string
	Device      string
	TopicPrefix string
	Username    string
	Password    string
	QoS         byte
	Timeout     time.Duration
}

// Transmitter publishes IRSend commands for a Tasmota style IR bridge.
type Transmitter struct {
	cm      *autopaho.ConnectionManager
	stop    context.CancelFunc
	topic   string
	qos     byte
	timeout time.Duration
	codes   *domain.Codeset
	logger  *slog.Logger
}

// IRSend is the payload Tasmota expects on cmnd/<device>/IRSend.
type IRSend struct {
	Protocol string `json:"Protocol"`
	Bits     int    `json:"Bits"`
	Data     string `json:"Data"`
}

// Connect dials the broker and waits up to opts.Timeout for the session.
func Connect(ctx context.Context, opts Options, codes *domain.Codeset, logger *slog.Logger) (*Transmitter, error) {
	u, err := url.Parse(opts.Broker)
	if err != nil {
		return nil, fmt.Errorf("parsing broker url: %w", err)
	}

	cfg := autopaho.ClientConfig{
		ServerUrls:                    []*url.URL{u},
		KeepAlive:                     20,
		CleanStartOnInitialConnection: true,
		SessionExpiryInterval:         0,
		OnConnectionUp: func(_ *autopaho.ConnectionManager, _ *paho.Connack) {
			logger.Debug("mqtt connection up", "broker", opts.Broker)
		},
		OnConnectError: func(err error) {
			logger.Warn("mqtt connection attempt failed", "broker", opts.Broker, "error", err)
		},
		ClientConfig: paho.ClientConfig{
			ClientID: "ledir-" + uuid.NewString(),
		},
	}
	if opts.Username != "" {
		cfg.ConnectUsername = opts.Username
		cfg.ConnectPassword = []byte(opts.Password)
	}

	cmCtx, stop := context.WithCancel(context.WithoutCancel(ctx))

	cm, err := autopaho.NewConnection(cmCtx, cfg)
	if err != nil {
		stop()
		return nil, fmt.Errorf("starting mqtt client: %w", err)
	}

	awaitCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	if err := cm.AwaitConnection(awaitCtx); err != nil {
		stop()
		select {
		case <-cm.Done():
		case <-time.After(opts.Timeout):
		}
		return nil, fmt.Errorf("connecting to %s: %w", opts.Broker, err)
	}

	return &Transmitter{
		cm:      cm,
		stop:    stop,
		topic:   Topic(opts.TopicPrefix, opts.Device),
		qos:     opts.QoS,
		timeout: opts.Timeout,
		codes:   codes,
		logger:  logger,
	}, nil
}

func Topic(prefix, device string) string {
	return strings.TrimSuffix(prefix, "/") + "/" + device + "/IRSend"
}

// Payload renders key data as an IRSend command.
func Payload(format domain.CodeFormat, data []byte) ([]byte, error) {
	return json.Marshal(IRSend{
		Protocol: format.Protocol,
		Bits:     len(data) * 8,
		Data:     fmt.Sprintf("0x%X", data),
	})
}

func (t *Transmitter) Send(ctx context.Context, code domain.Command) error {
	data, err := t.codes.Bytes(code)
	if err != nil {
		return err
	}

	payload, err := Payload(t.codes.Format, data)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", code, err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	if _, err := t.cm.Publish(pubCtx, &paho.Publish{
		Topic:   t.topic,
		QoS:     t.qos,
		Payload: payload,
	}); err != nil {
		return fmt.Errorf("publishing %s to %s: %w", code, t.topic, err)
	}

	return nil
}

// Close disconnects and waits for the client goroutines to finish.
func (t *Transmitter) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()

	err := t.cm.Disconnect(ctx)
	t.stop()

	select {
	case <-t.cm.Done():
	case <-ctx.Done():
		t.logger.Warn("mqtt client did not stop in time")
	}

	if err != nil {
		return fmt.Errorf("disconnecting: %w", err)
	}
	return nil
}
