package email

import (
	"strings"

	"gopkg.in/gomail.v2"
)

type Sender interface {
	Send(to, toName, subject, body string) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// SMTPSender delivers plain-text mail. Without a username the relay is used unauthenticated (Mailpit).
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
	name   string
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	from := strings.TrimSpace(cfg.From)
	if from == "" {
		from = "no-reply@llcportal.local"
	}
	return &SMTPSender{
		dialer: gomail.NewDialer(strings.TrimSpace(cfg.Host), cfg.Port, cfg.Username, cfg.Password),
		from:   from,
		name:   cfg.FromName,
	}
}

func (s *SMTPSender) Send(to, toName, subject, body string) error {
	return s.dialer.DialAndSend(s.message(to, toName, subject, body))
}

func (s *SMTPSender) message(to, toName, subject, body string) *gomail.Message {
	m := gomail.NewMessage(gomail.SetCharset("UTF-8"))
	if s.name != "" {
		m.SetAddressHeader("From", s.from, s.name)
	} else {
		m.SetHeader("From", s.from)
	}
	if toName != "" {
		m.SetAddressHeader("To", to, toName)
	} else {
		m.SetHeader("To", to)
	}
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	return m
}
