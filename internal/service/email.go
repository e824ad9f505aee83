package service

import (
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

const emailDrainTimeout = 10 * time.Second

type EmailService interface{ Send(to, subject, body string) error }

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	Workers  int    `yaml:"workers"`
}

type smtpEmail struct {
	dialer *gomail.Dialer
	from   string
}

func NewEmailService(cfg SMTPConfig) EmailService {
	if cfg.Host == "" {
		return noopEmail{}
	}
	if cfg.Port == 0 {
		cfg.Port = 25
	}
	// MailHog and similar dev relays accept empty credentials
	return &smtpEmail{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *smtpEmail) Send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	return s.dialer.DialAndSend(m)
}

type noopEmail struct{}

func (noopEmail) Send(string, string, string) error { return nil }

// AsyncEmail hands messages to a bounded worker pool so slow SMTP relays
// never hold up a request. Send only fails when the pool is saturated or
// closed; delivery errors are logged.
type AsyncEmail struct {
	inner EmailService
	pool  *ants.Pool
}

func NewAsyncEmailService(inner EmailService, workers int) (*AsyncEmail, error) {
	if workers <= 0 {
		workers = 4
	}
	pool, err := ants.NewPool(workers, ants.WithNonblocking(true))
	if err != nil {
		return nil, errors.Wrap(err, "email worker pool")
	}
	return &AsyncEmail{inner: inner, pool: pool}, nil
}

func (a *AsyncEmail) Send(to, subject, body string) error {
	err := a.pool.Submit(func() {
		if err := a.inner.Send(to, subject, body); err != nil {
			zap.L().Warn("send mail", zap.String("to", to), zap.String("subject", subject), zap.Error(err))
		}
	})
	return errors.Wrap(err, "queue mail")
}

// Close waits for queued messages up to the pool's release timeout.
func (a *AsyncEmail) Close() {
	if err := a.pool.ReleaseTimeout(emailDrainTimeout); err != nil {
		zap.L().Warn("email pool drain", zap.Error(err))
	}
}
