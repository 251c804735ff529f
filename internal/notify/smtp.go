// Package notify mails the team when a public application arrives.
package notify

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/tls"
	"encoding/hex"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"github.com/orangehats/orangehats/internal/config"
	"github.com/orangehats/orangehats/internal/service"
)

// Mailer delivers application notifications through a submission server
type Mailer struct {
	cfg    config.SMTPConfig
	logger *slog.Logger
	now    func() time.Time
	tls    *tls.Config
}

func NewMailer(cfg config.SMTPConfig, logger *slog.Logger) *Mailer {
	return &Mailer{
		cfg:    cfg,
		logger: logger.With("component", "notify"),
		now:    time.Now,
	}
}

// ApplicationSubmitted implements service.Notifier
func (m *Mailer) ApplicationSubmitted(ctx context.Context, s service.Submission) error {
	msg, err := m.compose(s)
	if err != nil {
		return err
	}
	if err := m.send(ctx, msg); err != nil {
		return fmt.Errorf("notify %s application %s: %w", s.Kind, s.ID, err)
	}

	m.logger.Info("application notification sent", "kind", s.Kind, "id", s.ID, "to", m.cfg.To)
	return nil
}

func (m *Mailer) send(ctx context.Context, msg []byte) error {
	if _, ok := ctx.Deadline(); !ok && m.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.Timeout)
		defer cancel()
	}

	client, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	if m.cfg.Username != "" {
		if err := client.Auth(sasl.NewPlainClient("", m.cfg.Username, m.cfg.Password)); err != nil {
			return fmt.Errorf("AUTH failed: %w", err)
		}
	}

	from, err := mail.ParseAddress(m.cfg.From)
	if err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := client.SendMail(from.Address, m.cfg.To, bytes.NewReader(msg)); err != nil {
		return err
	}
	return client.Quit()
}

// connect opens a session, upgrading it with STARTTLS according to the
// configured mode. In auto mode the server's EHLO reply decides; a client
// cannot upgrade after EHLO, so an upgrade reconnects.
func (m *Mailer) connect(ctx context.Context) (*smtp.Client, error) {
	if m.cfg.StartTLS == config.StartTLSRequired {
		return m.connectStartTLS(ctx)
	}

	conn, err := m.dial(ctx)
	if err != nil {
		return nil, err
	}
	client := smtp.NewClient(conn)
	if err := client.Hello("localhost"); err != nil {
		client.Close()
		return nil, fmt.Errorf("HELO failed: %w", err)
	}
	if m.cfg.StartTLS == config.StartTLSDisabled {
		return client, nil
	}
	if ok, _ := client.Extension("STARTTLS"); !ok {
		return client, nil
	}

	client.Quit()
	return m.connectStartTLS(ctx)
}

func (m *Mailer) connectStartTLS(ctx context.Context) (*smtp.Client, error) {
	conn, err := m.dial(ctx)
	if err != nil {
		return nil, err
	}
	client, err := smtp.NewClientStartTLS(conn, m.tlsConfig())
	if err != nil {
		return nil, fmt.Errorf("STARTTLS failed: %w", err)
	}
	return client, nil
}

func (m *Mailer) dial(ctx context.Context) (net.Conn, error) {
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connection failed to %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	return conn, nil
}

func (m *Mailer) tlsConfig() *tls.Config {
	if m.tls != nil {
		return m.tls.Clone()
	}
	return &tls.Config{
		ServerName: m.cfg.Host,
		MinVersion: tls.VersionTLS12,
	}
}

func (m *Mailer) compose(s service.Submission) ([]byte, error) {
	title := string(s.Kind)
	subject := fmt.Sprintf("New %s application: %s", title, s.Name)

	msgID, err := messageID(m.cfg.From)
	if err != nil {
		return nil, err
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(m.cfg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&b, "Date: %s\r\n", m.now().Format(time.RFC1123Z))
	fmt.Fprintf(&b, "Message-ID: %s\r\n", msgID)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "A new %s application was submitted.\r\n\r\n", title)
	fmt.Fprintf(&b, "Name:  %s\r\n", s.Name)
	fmt.Fprintf(&b, "Email: %s\r\n", s.Email)
	fmt.Fprintf(&b, "ID:    %s\r\n", s.ID)

	return b.Bytes(), nil
}

func messageID(from string) (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate message id: %w", err)
	}
	domain := "localhost"
	if i := strings.LastIndexByte(from, '@'); i >= 0 {
		domain = strings.TrimRight(from[i+1:], ">")
	}
	return "<" + hex.EncodeToString(buf) + "@" + domain + ">", nil
}
