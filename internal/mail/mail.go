package mail

import (
	"fmt"

	gomail "github.com/wneessen/go-mail"
)

// Sender sends a formatted message to a recipient address.
type Sender interface {
	Send(to, subject, body string) error
}

// Mailer sends mail over SMTP.
type Mailer struct {
	client *gomail.Client
	from   string
}

// NewMailer creates an SMTP mailer.
func NewMailer(host string, port int, username, password, from string) (*Mailer, error) {
	options := []gomail.Option{
		gomail.WithPort(port),
	}
	if username != "" {
		options = append(options,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(username),
			gomail.WithPassword(password),
		)
	}

	client, err := gomail.NewClient(host, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	return &Mailer{client: client, from: from}, nil
}

// Send delivers one plain-text message.
func (m *Mailer) Send(to, subject, body string) error {
	msg := gomail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)

	return m.client.DialAndSend(msg)
}
