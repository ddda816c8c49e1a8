package mailer

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/Laisky/errors/v2"
	"github.com/stretchr/testify/require"
)

type bufCloser struct {
	*bytes.Buffer
}

func (bufCloser) Close() error { return nil }

type fakeClient struct {
	from, to string
	buf      bytes.Buffer
	rcptErr  error
	quit     bool
	closed   bool
}

func (c *fakeClient) Mail(from string) error { c.from = from; return nil }
func (c *fakeClient) Rcpt(to string) error   { c.to = to; return c.rcptErr }
func (c *fakeClient) Data() (io.WriteCloser, error) {
	return bufCloser{&c.buf}, nil
}
func (c *fakeClient) Quit() error  { c.quit = true; return nil }
func (c *fakeClient) Close() error { c.closed = true; return nil }

func newTestSMTP(cli *fakeClient) *SMTP {
	m := New(Options{Host: "smtp.example.com", User: "bot@example.com"}).(*SMTP)
	m.connect = func(context.Context) (client, error) { return cli, nil }
	return m
}

func TestNewWithoutHost(t *testing.T) {
	m := New(Options{})
	_, ok := m.(LogMailer)
	require.True(t, ok)
	require.NoError(t, m.Send(context.Background(), "a@example.com", "s", "b"))
}

func TestSMTPSend(t *testing.T) {
	cli := new(fakeClient)
	m := newTestSMTP(cli)
	require.Equal(t, 587, m.opt.Port)

	err := m.Send(context.Background(), "alice@example.com", "Reset password", "line1\nline2")
	require.NoError(t, err)
	require.Equal(t, "bot@example.com", cli.from)
	require.Equal(t, "alice@example.com", cli.to)
	require.True(t, cli.quit)
	require.True(t, cli.closed)

	msg := cli.buf.String()
	require.Contains(t, msg, "Subject: Reset password\r\n")
	require.True(t, strings.HasSuffix(msg, "\r\n\r\nline1\r\nline2"))
}

func TestSMTPSendErrors(t *testing.T) {
	cli := &fakeClient{rcptErr: errors.New("mailbox unavailable")}
	m := newTestSMTP(cli)
	err := m.Send(context.Background(), "alice@example.com", "s", "b")
	require.ErrorContains(t, err, "mailbox unavailable")
	require.True(t, cli.closed)

	err = m.Send(context.Background(), "alice@example.com\r\nBcc: x@example.com", "s", "b")
	require.ErrorContains(t, err, "invalid header")
}
