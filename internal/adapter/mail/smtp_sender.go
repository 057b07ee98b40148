package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"

	"github.com/aq2208/goshop-api/configs"
)

type SMTPSender struct {
	host, port, username, password, from string
}

func NewSMTPSender(cfg configs.Config) (*SMTPSender, error) {
	if cfg.SMTP.Host == "" {
		return nil, fmt.Errorf("smtp.host not set")
	}
	return &SMTPSender{
		host:     cfg.SMTP.Host,
		port:     cfg.SMTP.Port,
		username: cfg.SMTP.Username,
		password: cfg.SMTP.Password,
		from:     cfg.SMTP.From,
	}, nil
}

func (s *SMTPSender) Send(_ context.Context, to, subject, body string) error {
	msg := []byte("From: " + s.from + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n" +
		body)

	auth := smtp.PlainAuth("", s.username, s.password, s.host)
	if err := smtp.SendMail(s.host+":"+s.port, auth, s.from, []string{to}, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// LogSender is the local-dev stand-in: it logs the mail instead of sending it.
type LogSender struct {
	Log *slog.Logger
}

func (s LogSender) Send(_ context.Context, to, subject, _ string) error {
	s.Log.Info("simulated email send", "to", to, "subject", subject)
	return nil
}

var (
	_ Sender = (*SMTPSender)(nil)
	_ Sender = LogSender{}
)
