package transport

import (
	"context"
	"io"
	"net"
	"strconv"
	gosync "sync"
	"testing"

	"github.com/emersion/go-smtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/kilamea/internal/model"
)

// recordingBackend is an in-process SMTP server that keeps what it is given.
type recordingBackend struct {
	mu       gosync.Mutex
	user     string
	password string
	from     string
	rcpts    []string
	data     []byte
}

func (b *recordingBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &recordingSession{b: b}, nil
}

type recordingSession struct {
	b      *recordingBackend
	authed bool
}

func (s *recordingSession) AuthPlain(username, password string) error {
	if username != s.b.user || password != s.b.password {
		return smtp.ErrAuthFailed
	}
	s.authed = true
	return nil
}

func (s *recordingSession) Mail(from string, _ *smtp.MailOptions) error {
	if !s.authed {
		return smtp.ErrAuthRequired
	}
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	s.b.from = from
	return nil
}

func (s *recordingSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	s.b.rcpts = append(s.b.rcpts, to)
	return nil
}

func (s *recordingSession) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	s.b.data = data
	return nil
}

func (s *recordingSession) Reset()        {}
func (s *recordingSession) Logout() error { return nil }

func startSMTPServer(t *testing.T, be *recordingBackend) (string, int) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := smtp.NewServer(be)
	srv.Domain = "localhost"
	srv.AllowInsecureAuth = true
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Close() })

	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)
	return host, p
}

func plainSMTPAccount(host string, port int) *model.Account {
	a := model.NewAccount("me@example.com")
	a.User = "me"
	a.Password = "secret"
	a.OutgoingHost = host
	a.OutgoingPort = port
	a.SSLActive = false
	return a
}

func TestDeliverSMTPSendsToEveryRecipient(t *testing.T) {
	be := &recordingBackend{user: "me", password: "secret"}
	host, port := startSMTPServer(t, be)

	raw := []byte("Subject: hi\r\n\r\nhello\r\n")
	err := deliverSMTP(context.Background(), plainSMTPAccount(host, port),
		"me@example.com", []string{"you@example.com", "them@example.com"}, raw)
	require.NoError(t, err)

	be.mu.Lock()
	defer be.mu.Unlock()
	assert.Equal(t, "me@example.com", be.from)
	assert.Equal(t, []string{"you@example.com", "them@example.com"}, be.rcpts)
	assert.Contains(t, string(be.data), "hello")
}

func TestDeliverSMTPWrongPasswordIsAuthError(t *testing.T) {
	be := &recordingBackend{user: "me", password: "other"}
	host, port := startSMTPServer(t, be)

	err := deliverSMTP(context.Background(), plainSMTPAccount(host, port),
		"me@example.com", []string{"you@example.com"}, []byte("x\r\n"))
	require.Error(t, err)
	assert.True(t, IsAuthError(err))

	be.mu.Lock()
	defer be.mu.Unlock()
	assert.Empty(t, be.rcpts)
}
