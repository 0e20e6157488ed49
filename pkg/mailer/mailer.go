package mailer

import (
	"io"

	"github.com/opsdesk/fulfillment-service/pkg/logger"
	"go.uber.org/zap"
	gomail "gopkg.in/gomail.v2"
)

// Attachment is an in-memory file attached to an outgoing message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Mailer sends operator-facing report and manifest emails.
type Mailer interface {
	Send(to, subject, body string, attachments ...Attachment) error
}

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	// Debug suppresses the real send and logs a warning instead.
	Debug bool
}

type smtpMailer struct {
	cfg    Config
	dialer *gomail.Dialer
	logger logger.Logger
}

func NewSMTPMailer(cfg Config, log logger.Logger) Mailer {
	return &smtpMailer{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		logger: log,
	}
}

func (m *smtpMailer) Send(to, subject, body string, attachments ...Attachment) error {
	if m.cfg.Debug {
		m.logger.Warn("debug mode, not sending email",
			zap.String("to", to), zap.String("subject", subject))
		return nil
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	for _, a := range attachments {
		a := a
		settings := []gomail.FileSetting{
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(a.Data)
				return err
			}),
		}
		if a.ContentType != "" {
			settings = append(settings, gomail.SetHeader(map[string][]string{
				"Content-Type": {a.ContentType},
			}))
		}
		msg.Attach(a.Filename, settings...)
	}

	return m.dialer.DialAndSend(msg)
}
