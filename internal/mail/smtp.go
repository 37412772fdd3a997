package mail

import (
	"io"

	gomail "gopkg.in/gomail.v2"

	"ra-resale/internal/config"
)

const qrFilename = "event-qr.png"

// SMTP delivers alert messages over an authenticated SMTP connection.
type SMTP struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTP(cfg config.EmailConfig) *SMTP {
	return &SMTP{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		from:   cfg.From,
	}
}

func (s *SMTP) Send(msg Message) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	m.AddAlternative("text/html", msg.HTML)

	if len(msg.QRCode) > 0 {
		m.Embed(qrFilename, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(msg.QRCode)
			return err
		}))
	}

	return s.dialer.DialAndSend(m)
}
