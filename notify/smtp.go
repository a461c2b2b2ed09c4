package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/sessionauth"
)

// SMTPConfig is the relay the SMTP notifier submits to.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTP renders the message template and submits it with PLAIN auth over
// STARTTLS when the server offers it.
type SMTP struct {
	cfg       SMTPConfig
	templates *Templates
	logger    *slog.Logger
	send      func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	now       func() time.Time
}

var _ sessionauth.Notifier = (*SMTP)(nil)

func NewSMTP(cfg SMTPConfig, templates *Templates, logger *slog.Logger) (*SMTP, error) {
	if cfg.Host == "" || cfg.Port <= 0 {
		return nil, errors.New("smtp host and port required")
	}
	if cfg.From == "" {
		return nil, errors.New("smtp from address required")
	}
	if templates == nil {
		templates = DefaultTemplates()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SMTP{
		cfg:       cfg,
		templates: templates,
		logger:    logger,
		send:      smtp.SendMail,
		now:       time.Now,
	}, nil
}

func (s *SMTP) Send(ctx context.Context, msg sessionauth.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg.To == "" {
		return errors.New("message has no recipient")
	}

	body, err := s.templates.Render(msg.Template, msg.Data)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	raw := s.compose(msg.To, msg.Subject, body)
	if err := s.send(addr, auth, s.cfg.From, []string{msg.To}, raw); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	s.logger.InfoContext(ctx, "email sent",
		slog.String("template", msg.Template),
		slog.String("subject", msg.Subject),
	)
	return nil
}

func (s *SMTP) compose(to, subject, htmlBody string) []byte {
	var b strings.Builder
	b.WriteString("From: " + s.cfg.From + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	b.WriteString("Date: " + s.now().UTC().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}
