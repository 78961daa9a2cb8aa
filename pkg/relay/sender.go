// Package relay sends composed mail through the configured outbound SMTP
// relay.
package relay

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/jhillyerd/enmime/v2"
	"github.com/rs/zerolog/log"

	"github.com/hookbox/hookbox/pkg/config"
)

// Message is an outbound email to be relayed.
type Message struct {
	FromName string
	FromAddr string
	To       []string
	Cc       []string
	Bcc      []string
	Subject  string
	HTML     string
}

// Recipients returns the union of To, Cc and Bcc addresses, deduplicated.
func (m *Message) Recipients() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range [][]string{m.To, m.Cc, m.Bcc} {
		for _, addr := range list {
			key := strings.ToLower(addr)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, addr)
		}
	}
	return out
}

// Credentials authenticate against the relay.
type Credentials struct {
	Username string
	Password string
}

// Sender delivers outbound messages. Implementations must not persist
// anything; storing the sent copy is the caller's concern.
type Sender interface {
	Send(ctx context.Context, creds Credentials, msg *Message) error
}

// SMTPSender is a Sender speaking SMTP to a fixed relay host. Security
// selects the connection mode: "starttls" upgrades a plain connection,
// "tls" connects over implicit TLS.
type SMTPSender struct {
	Host     string
	Port     int
	Security string
	Timeout  time.Duration
}

// NewSMTPSender builds a sender from the relay configuration.
func NewSMTPSender(c config.Relay) *SMTPSender {
	return &SMTPSender{
		Host:     c.Host,
		Port:     c.Port,
		Security: c.Security,
		Timeout:  c.Timeout,
	}
}

var _ Sender = &SMTPSender{}

// buildMIME encodes the message as multipart MIME. Bcc addresses are kept
// out of the headers; they only appear in the SMTP envelope.
func buildMIME(msg *Message) ([]byte, error) {
	b := enmime.Builder().
		From(msg.FromName, msg.FromAddr).
		Subject(msg.Subject).
		Date(time.Now()).
		HTML([]byte(msg.HTML))
	for _, addr := range msg.To {
		b = b.To("", addr)
	}
	for _, addr := range msg.Cc {
		b = b.CC("", addr)
	}
	part, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("build message: %w", err)
	}
	buf := &bytes.Buffer{}
	if err := part.Encode(buf); err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return buf.Bytes(), nil
}

// heloDomain extracts the domain portion of the sender address.
func heloDomain(addr string) string {
	if i := strings.LastIndex(addr, "@"); i >= 0 && i < len(addr)-1 {
		return addr[i+1:]
	}
	return "localhost"
}

// Send relays the message to the union of To, Cc and Bcc recipients. On any
// failure the message is not delivered and the error is returned unwrapped
// of any partial state.
func (s *SMTPSender) Send(ctx context.Context, creds Credentials, msg *Message) error {
	if s.Host == "" {
		return fmt.Errorf("no outbound relay host configured")
	}
	recipients := msg.Recipients()
	if len(recipients) == 0 {
		return fmt.Errorf("no recipients")
	}
	raw, err := buildMIME(msg)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(s.Host, fmt.Sprint(s.Port))
	dialer := &net.Dialer{Timeout: s.Timeout}
	var conn net.Conn
	if s.Security == "tls" {
		conn, err = tls.DialWithDialer(dialer, "tcp", addr, &tls.Config{ServerName: s.Host})
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	client, err := smtp.NewClient(conn, s.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if err := client.Hello(heloDomain(msg.FromAddr)); err != nil {
		return fmt.Errorf("hello: %w", err)
	}
	if s.Security == "starttls" {
		if err := client.StartTLS(&tls.Config{ServerName: s.Host}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	auth := smtp.PlainAuth("", creds.Username, creds.Password, s.Host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := client.Mail(msg.FromAddr); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	for _, rcpt := range recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("rcpt to %s: %w", rcpt, err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	log.Info().Str("module", "relay").Str("from", msg.FromAddr).
		Int("recipients", len(recipients)).Msg("Message relayed")
	return client.Quit()
}
