package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"mime"
	"mime/quotedprintable"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tripeco/identity-service/internal/core/ports"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const (
	SecurityStartTLS = "starttls"
	SecuritySSL      = "ssl"
	SecurityNone     = "none"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	Security string
	From     string
	Subject  string
	// Production enables delivery to any recipient. Otherwise only
	// addresses containing TestRecipient receive mail.
	Production    bool
	TestRecipient string
}

// SMTPMailer sends HTML notifications over SMTP.
type SMTPMailer struct {
	cfg Config
	log zerolog.Logger
}

func NewSMTPMailer(cfg Config, log zerolog.Logger) *SMTPMailer {
	if cfg.Security == "" {
		cfg.Security = SecurityStartTLS
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPMailer{cfg: cfg, log: log}
}

type newUserView struct {
	Subject   string
	FirstName string
	Email     string
	Password  string
}

// SendNewUser renders the welcome mail and delivers it.
func (m *SMTPMailer) SendNewUser(ctx context.Context, msg ports.NewUserMessage) error {
	if !m.allowed(msg.Email) {
		m.log.Warn().Str("user_id", msg.UserID).Msg("mail not sent: recipient is not the test inbox")
		return ports.ErrDeliverySkipped
	}

	var body bytes.Buffer
	err := templates.ExecuteTemplate(&body, "new_user.html", newUserView{
		Subject:   m.cfg.Subject,
		FirstName: msg.FirstName,
		Email:     msg.Email,
		Password:  msg.Password,
	})
	if err != nil {
		return fmt.Errorf("render new user mail: %w", err)
	}

	raw, err := buildMessage(m.cfg.From, msg.Email, m.cfg.Subject, body.Bytes())
	if err != nil {
		return err
	}
	return m.send(ctx, msg.Email, raw)
}

func (m *SMTPMailer) allowed(to string) bool {
	if m.cfg.Production {
		return true
	}
	test := strings.ToLower(strings.TrimSpace(m.cfg.TestRecipient))
	return test != "" && strings.Contains(strings.ToLower(to), test)
}

func (m *SMTPMailer) send(ctx context.Context, to string, raw []byte) error {
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	tlsConfig := &tls.Config{ServerName: m.cfg.Host, MinVersion: tls.VersionTLS12}
	if m.cfg.Security == SecuritySSL {
		conn = tls.Client(conn, tlsConfig)
	}

	c, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if m.cfg.Security == SecurityStartTLS {
		if err := c.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}
	if m.cfg.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := c.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := c.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close data: %w", err)
	}
	return c.Quit()
}

func buildMessage(from, to, subject string, html []byte) ([]byte, error) {
	if strings.ContainsAny(from+to, "\r\n") {
		return nil, errors.New("mail: header injection in address")
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	buf.WriteString("Content-Transfer-Encoding: quoted-printable\r\n\r\n")

	qp := quotedprintable.NewWriter(&buf)
	if _, err := qp.Write(html); err != nil {
		return nil, fmt.Errorf("mail: encode body: %w", err)
	}
	if err := qp.Close(); err != nil {
		return nil, fmt.Errorf("mail: encode body: %w", err)
	}
	return buf.Bytes(), nil
}

// NoopMailer stands in when no SMTP host is configured.
type NoopMailer struct {
	log zerolog.Logger
}

func NewNoopMailer(log zerolog.Logger) *NoopMailer {
	return &NoopMailer{log: log}
}

func (m *NoopMailer) SendNewUser(_ context.Context, msg ports.NewUserMessage) error {
	m.log.Warn().Str("user_id", msg.UserID).Msg("mail not sent: SMTP is not configured")
	return ports.ErrDeliverySkipped
}
