// Package mailer sends plain text notification mails.
package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	gutils "github.com/Laisky/go-utils/v6"
	"github.com/Laisky/zap"
)

const dialTimeout = 10 * time.Second

// Mailer sends one message to one recipient
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Options smtp server settings
type Options struct {
	Host string
	Port int
	User string
	Pwd  string
	From string
}

// client is the part of *smtp.Client used to deliver a message
type client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// SMTP delivers mails through an smtp relay with STARTTLS
type SMTP struct {
	opt     Options
	connect func(ctx context.Context) (client, error)
}

// New creates a Mailer.
// When no host is configured, the returned mailer only logs messages.
func New(opt Options) Mailer {
	if strings.TrimSpace(opt.Host) == "" {
		return LogMailer{}
	}
	if opt.Port == 0 {
		opt.Port = 587
	}
	if opt.From == "" {
		opt.From = opt.User
	}

	m := &SMTP{opt: opt}
	m.connect = m.dial
	return m
}

func (m *SMTP) dial(ctx context.Context) (client, error) {
	addr := net.JoinHostPort(m.opt.Host, fmt.Sprint(m.opt.Port))
	dialer := &net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "dial smtp %q", addr)
	}

	cli, err := smtp.NewClient(conn, m.opt.Host)
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "new smtp client")
	}

	if ok, _ := cli.Extension("STARTTLS"); ok {
		if err = cli.StartTLS(&tls.Config{
			ServerName: m.opt.Host,
			MinVersion: tls.VersionTLS12,
		}); err != nil {
			_ = cli.Close()
			return nil, errors.Wrap(err, "start tls")
		}
	}

	if m.opt.User != "" {
		if err = cli.Auth(smtp.PlainAuth("", m.opt.User, m.opt.Pwd, m.opt.Host)); err != nil {
			_ = cli.Close()
			return nil, errors.Wrap(err, "smtp auth")
		}
	}

	return cli, nil
}

// Send delivers a plain text mail
func (m *SMTP) Send(ctx context.Context, to, subject, body string) error {
	if strings.ContainsAny(to, "\r\n") || strings.ContainsAny(subject, "\r\n") {
		return errors.New("invalid header value")
	}

	cli, err := m.connect(ctx)
	if err != nil {
		return errors.Wrap(err, "connect")
	}
	defer func() {
		_ = cli.Close()
	}()

	if err = cli.Mail(m.opt.From); err != nil {
		return errors.Wrap(err, "mail from")
	}
	if err = cli.Rcpt(to); err != nil {
		return errors.Wrapf(err, "rcpt to %q", to)
	}

	w, err := cli.Data()
	if err != nil {
		return errors.Wrap(err, "data")
	}
	if _, err = io.WriteString(w, buildMessage(m.opt.From, to, subject, body)); err != nil {
		_ = w.Close()
		return errors.Wrap(err, "write message")
	}
	if err = w.Close(); err != nil {
		return errors.Wrap(err, "close data")
	}

	if err = cli.Quit(); err != nil {
		return errors.Wrap(err, "quit")
	}

	gmw.GetLogger(ctx).Info("sent mail", zap.String("to", to), zap.String("subject", subject))
	return nil
}

func buildMessage(from, to, subject, body string) string {
	var sb strings.Builder
	sb.WriteString("From: " + from + "\r\n")
	sb.WriteString("To: " + to + "\r\n")
	sb.WriteString("Subject: " + subject + "\r\n")
	sb.WriteString("Date: " + gutils.Clock.GetUTCNow().Format(time.RFC1123Z) + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return sb.String()
}

// LogMailer writes mails to the log instead of sending them
type LogMailer struct{}

// Send logs the mail
func (LogMailer) Send(ctx context.Context, to, subject, body string) error {
	gmw.GetLogger(ctx).Info("smtp is not configured, mail not sent",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body))
	return nil
}
