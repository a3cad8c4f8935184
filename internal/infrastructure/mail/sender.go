package mail

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"gopkg.in/gomail.v2"

	"github.com/AdityaKushwaha94/Email-Sender/domain"
)

// Sender sends email over SMTP using the shared system identity, or a user's
// own server when the message carries SMTP credentials.
type Sender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string

	// Timeout bounds each send; the SMTP dialer has no native deadline so
	// the call is raced against it. A timeout counts as a send failure.
	Timeout time.Duration
}

// NewSender builds the system SMTP transport.
func NewSender(host string, port int, user, password, from string, timeout time.Duration) *Sender {
	if from == "" {
		from = user
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Sender{Host: host, Port: port, User: user, Password: password, From: from, Timeout: timeout}
}

// Send implements domain.MailSender.
func (s *Sender) Send(ctx context.Context, msg *domain.MailMessage) (string, error) {
	m := gomail.NewMessage()

	from := msg.From
	if from == "" {
		from = s.From
	}
	m.SetHeader("From", from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	if msg.ReplyTo != "" {
		m.SetHeader("Reply-To", msg.ReplyTo)
	}

	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), mailDomain(from))
	m.SetHeader("Message-ID", messageID)
	for k, v := range msg.Headers {
		m.SetHeader(k, v)
	}
	m.SetBody("text/html", msg.HTML)

	d := s.dialer(msg.SMTP)

	errCh := make(chan error, 1)
	go func() { errCh <- d.DialAndSend(m) }()

	timer := time.NewTimer(s.Timeout)
	defer timer.Stop()

	select {
	case err := <-errCh:
		if err != nil {
			return "", fmt.Errorf("smtp send error: %w", err)
		}
		return messageID, nil
	case <-timer.C:
		return "", fmt.Errorf("smtp send timeout after %s", s.Timeout)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// SendWithRetry retries transient send failures with exponential backoff.
func (s *Sender) SendWithRetry(ctx context.Context, msg *domain.MailMessage, retries int) (string, error) {
	var messageID string

	operation := func() error {
		id, err := s.Send(ctx, msg)
		if err != nil {
			return err
		}
		messageID = id
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxElapsedTime = time.Duration(retries) * s.Timeout

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return "", err
	}
	return messageID, nil
}

// CheckCredentials dials the given SMTP server to prove the credentials work.
func (s *Sender) CheckCredentials(ctx context.Context, creds *domain.EmailCredentials) error {
	d := s.dialer(creds)

	errCh := make(chan error, 1)
	go func() {
		closer, err := d.Dial()
		if err == nil {
			closer.Close()
		}
		errCh <- err
	}()

	timer := time.NewTimer(s.Timeout)
	defer timer.Stop()

	select {
	case err := <-errCh:
		return err
	case <-timer.C:
		return fmt.Errorf("smtp connection timeout after %s", s.Timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sender) dialer(creds *domain.EmailCredentials) *gomail.Dialer {
	if creds != nil && creds.SMTPHost != "" {
		return gomail.NewDialer(creds.SMTPHost, creds.SMTPPort, creds.SenderEmail, creds.SenderPassword)
	}
	return gomail.NewDialer(s.Host, s.Port, s.User, s.Password)
}

func mailDomain(addr string) string {
	if i := strings.LastIndex(addr, "@"); i >= 0 && i < len(addr)-1 {
		return strings.TrimSuffix(addr[i+1:], ">")
	}
	return "localhost"
}
