package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/roach88/ledgerguard/internal/config"
)

// SMTPGateway sends plain-text mail through one SMTP relay.
type SMTPGateway struct {
	addr   string
	host   string
	auth   smtp.Auth
	from   string
	logger *slog.Logger

	// sendMail is smtp.SendMail, replaceable in tests.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPGateway creates a gateway from the email settings. PLAIN auth is
// used when a username is configured.
func NewSMTPGateway(s config.EmailSettings, logger *slog.Logger) *SMTPGateway {
	if logger == nil {
		logger = slog.Default()
	}
	g := &SMTPGateway{
		addr:     net.JoinHostPort(s.Host, strconv.Itoa(s.Port)),
		host:     s.Host,
		from:     s.From,
		logger:   logger,
		sendMail: smtp.SendMail,
	}
	if s.Username != "" {
		g.auth = smtp.PlainAuth("", s.Username, s.Password, s.Host)
	}
	return g
}

// Send implements Gateway. net/smtp has no context support, so ctx is only
// checked before dialing.
func (g *SMTPGateway) Send(ctx context.Context, to, subject, body string) bool {
	if g.host == "" || g.from == "" || to == "" {
		g.logger.Warn("smtp gateway not configured", "to", to)
		return false
	}
	if strings.ContainsAny(to, "\r\n") || strings.ContainsAny(subject, "\r\n") {
		g.logger.Warn("smtp header injection refused", "to", to)
		return false
	}
	if ctx.Err() != nil {
		return false
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		g.from, to, subject, strings.ReplaceAll(body, "\n", "\r\n"))
	if err := g.sendMail(g.addr, g.auth, g.from, []string{to}, []byte(msg)); err != nil {
		g.logger.Warn("smtp send failed", "to", to, "error", err)
		return false
	}
	return true
}

// LogGateway writes messages to the log instead of sending them. It is
// used when no SMTP host is configured.
type LogGateway struct {
	logger *slog.Logger
}

// NewLogGateway creates a LogGateway.
func NewLogGateway(logger *slog.Logger) *LogGateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogGateway{logger: logger}
}

// Send implements Gateway.
func (g *LogGateway) Send(_ context.Context, to, subject, body string) bool {
	g.logger.Info("email", "to", to, "subject", subject, "bytes", len(body))
	return true
}

// GatewayFromSettings picks the SMTP gateway when a host is configured and
// the log gateway otherwise.
func GatewayFromSettings(s config.EmailSettings, logger *slog.Logger) Gateway {
	if s.Host == "" {
		return NewLogGateway(logger)
	}
	return NewSMTPGateway(s, logger)
}
