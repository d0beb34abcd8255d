// internal/mail/transport.go
//
// FormPlant – Mail subsystem: delivery transports.
//
// Context
//   The pipeline treats delivery as best effort: a failed send is logged and
//   never fails the submission.  Transport is the seam; production uses the
//   SMTP implementation, development and tests use the logging no-op.
//
//------------------------------------------------------------------------------

package mail

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Transport delivers one message.
type Transport interface {
	Send(ctx context.Context, msg *Message) error
}

// SMTP sends through a single relay with optional PLAIN auth.
type SMTP struct {
	Host     string
	Port     int
	Username string
	Password string
}

// Send assembles a MIME message and hands it to the relay.  Attachments are
// base64-encoded into a multipart/mixed body; an unreadable attachment file
// is skipped with a log line rather than failing the whole send.
func (s *SMTP) Send(_ context.Context, msg *Message) error {
	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)
	var auth smtp.Auth
	if s.Username != "" {
		auth = smtp.PlainAuth("", s.Username, s.Password, s.Host)
	}

	rcpt := append(append([]string{}, msg.To...), msg.CC...)
	rcpt = append(rcpt, msg.BCC...)

	raw := encodeMessage(msg)
	if err := smtp.SendMail(addr, auth, msg.FromEmail, rcpt, raw); err != nil {
		return fmt.Errorf("mail: smtp send: %w", err)
	}
	return nil
}

const boundary = "fplant-mixed-1a2b3c"

func encodeMessage(msg *Message) []byte {
	var b strings.Builder
	from := msg.FromEmail
	if msg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", msg.FromName), msg.FromEmail)
	}
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + strings.Join(msg.To, ", ") + "\r\n")
	if len(msg.CC) > 0 {
		b.WriteString("Cc: " + strings.Join(msg.CC, ", ") + "\r\n")
	}
	if msg.ReplyTo != "" {
		b.WriteString("Reply-To: " + msg.ReplyTo + "\r\n")
	}
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", msg.Subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")

	if len(msg.Attachments) == 0 {
		b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		b.WriteString(msg.Body)
		return []byte(b.String())
	}

	b.WriteString(`Content-Type: multipart/mixed; boundary="` + boundary + `"` + "\r\n\r\n")
	b.WriteString("--" + boundary + "\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(msg.Body + "\r\n")

	for _, path := range msg.Attachments {
		data, err := os.ReadFile(path)
		if err != nil {
			zap.S().Warnw("mail attachment unreadable", "path", path, "error", err)
			continue
		}
		name := filepath.Base(path)
		b.WriteString("--" + boundary + "\r\n")
		b.WriteString(fmt.Sprintf("Content-Type: application/octet-stream; name=%q\r\n", name))
		b.WriteString("Content-Transfer-Encoding: base64\r\n")
		b.WriteString(fmt.Sprintf("Content-Disposition: attachment; filename=%q\r\n\r\n", name))
		enc := base64.StdEncoding.EncodeToString(data)
		for len(enc) > 76 {
			b.WriteString(enc[:76] + "\r\n")
			enc = enc[76:]
		}
		b.WriteString(enc + "\r\n")
	}
	b.WriteString("--" + boundary + "--\r\n")
	return []byte(b.String())
}

// LogTransport logs instead of sending.  Used in development and as the
// fallback when no relay is configured.
type LogTransport struct{}

func (LogTransport) Send(_ context.Context, msg *Message) error {
	zap.S().Infow("mail send (log transport)",
		"to", msg.To, "subject", msg.Subject, "attachments", len(msg.Attachments))
	return nil
}
