// Package email sends transactional mail.
package email

import (
	"fmt"
	"sync"

	"gopkg.in/gomail.v2"

	"github.com/utleieskade/backend/internal/config"
	"github.com/utleieskade/backend/internal/logger"
)

type Message struct {
	To        string
	Subject   string
	PlainBody string
	HTMLBody  string
}

type Mailer interface {
	Send(msg Message) error
}

type SMTPMailer struct {
	from   string
	dialer *gomail.Dialer
}

func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		from:   fmt.Sprintf("%s <%s>", cfg.FromName, cfg.From),
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

func (s *SMTPMailer) Send(msg Message) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.PlainBody)
	if msg.HTMLBody != "" {
		m.AddAlternative("text/html", msg.HTMLBody)
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// OutboxMailer logs messages instead of sending them and keeps the most
// recent ones in memory. Used when SMTP is not configured.
type OutboxMailer struct {
	mu   sync.Mutex
	sent []Message
}

func NewOutboxMailer() *OutboxMailer {
	return &OutboxMailer{}
}

func (o *OutboxMailer) Send(msg Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	logger.Info("Email not sent (SMTP disabled)", map[string]interface{}{
		"to":      msg.To,
		"subject": msg.Subject,
	})
	o.sent = append(o.sent, msg)
	if len(o.sent) > 100 {
		o.sent = o.sent[len(o.sent)-100:]
	}
	return nil
}

// Sent returns a copy of the retained messages.
func (o *OutboxMailer) Sent() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Message(nil), o.sent...)
}

// Last returns the most recent message sent to addr.
func (o *OutboxMailer) Last(addr string) (Message, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := len(o.sent) - 1; i >= 0; i-- {
		if o.sent[i].To == addr {
			return o.sent[i], true
		}
	}
	return Message{}, false
}

// New picks the SMTP mailer when configured.
func New(cfg config.SMTPConfig) Mailer {
	if cfg.Enabled() {
		return NewSMTPMailer(cfg)
	}
	return NewOutboxMailer()
}
