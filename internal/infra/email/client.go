package email

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
)

// Client mails failure reports through an SMTP relay.
type Client struct {
	host     string
	port     int
	username string
	password string
	from     string
	to       []string
}

func NewClient(host string, port int, username, password, from string, to []string) *Client {
	return &Client{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		to:       to,
	}
}

func (c *Client) Notify(ctx context.Context, source, detail string) error {
	msg, err := c.Message(source, detail)
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(c.port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if c.username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(c.username),
			mail.WithPassword(c.password),
		)
	}

	client, err := mail.NewClient(c.host, opts...)
	if err != nil {
		return fmt.Errorf("creating smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending mail: %w", err)
	}

	return nil
}

// Message builds the alert mail for source with detail as the plain text body.
func (c *Client) Message(source, detail string) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(c.from); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := m.To(c.to...); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}

	m.Subject(fmt.Sprintf("[%s] command failed", source))
	m.SetDate()
	m.SetBodyString(mail.TypeTextPlain, detail)

	return m, nil
}
