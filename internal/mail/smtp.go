package mail

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/smtp"
	"time"

	"sickfits-be/internal/logger"

	"go.uber.org/zap"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender delivers mail through an SMTP relay with PLAIN auth.
type SMTPSender struct {
	addr     string
	from     string
	auth     smtp.Auth
	sendMail sendMailFunc
}

func NewSMTPSender(host, port, user, password, from string) *SMTPSender {
	var a smtp.Auth
	if user != "" {
		a = smtp.PlainAuth("", user, password, host)
	}
	return &SMTPSender{
		addr:     net.JoinHostPort(host, port),
		from:     from,
		auth:     a,
		sendMail: smtp.SendMail,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	log := logger.FromCtx(ctx).With(zap.String("to", msg.To), zap.String("subject", msg.Subject))

	if err := s.sendMail(s.addr, s.auth, s.from, []string{msg.To}, s.build(msg)); err != nil {
		log.Error("failed to send email", zap.Error(err))
		return fmt.Errorf("send mail: %w", err)
	}

	log.Info("email sent")
	return nil
}

func (s *SMTPSender) build(msg Message) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", s.from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(msg.HTML)
	return b.Bytes()
}

// LogSender only logs outgoing mail; used when no SMTP relay is configured.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, msg Message) error {
	logger.FromCtx(ctx).Info("email not sent: no SMTP relay configured",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}
