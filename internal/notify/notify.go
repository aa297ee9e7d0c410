// Package notify tells humans when a long run finishes. Runs take
// hours, so completion and abort signals go out through a Discord
// style webhook, email, or both. The zero collaborator is a Nop.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

// RunInfo describes a finished run.
type RunInfo struct {
	Input       string
	Output      string
	Resolved    int
	Skipped     int
	Unresolved  int
	Aborted     bool
	AbortReason string
	Duration    time.Duration
}

// Notifier receives run completions.
type Notifier interface {
	RunCompleted(ctx context.Context, info *RunInfo) error
}

// Nop discards notifications. Used when nothing is configured.
type Nop struct{}

func (Nop) RunCompleted(context.Context, *RunInfo) error { return nil }

// Message renders the one-line summary shared by all channels.
func (info *RunInfo) Message() string {
	if info.Aborted {
		return fmt.Sprintf(
			"⚠️ phonehunt aborted on `%s`: %s. %d resolved before the abort, output preserved at `%s`.",
			info.Input, info.AbortReason, info.Resolved, info.Output,
		)
	}
	return fmt.Sprintf(
		"✅ phonehunt finished `%s`: %d resolved, %d skipped, %d unresolved in %s. Output at `%s`.",
		info.Input, info.Resolved, info.Skipped, info.Unresolved,
		info.Duration.Round(time.Second), info.Output,
	)
}

// WebhookNotifier posts run completions to a Discord-compatible
// webhook.
type WebhookNotifier struct {
	url    string
	client *http.Client
	log    zerolog.Logger
}

func NewWebhookNotifier(url string, log zerolog.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
	}
}

func (n *WebhookNotifier) RunCompleted(ctx context.Context, info *RunInfo) error {
	payload, err := json.Marshal(map[string]string{"content": info.Message()})
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}
	n.log.Debug().Str("url", n.url).Msg("webhook notification sent")
	return nil
}

// EmailNotifier mails the run summary over SMTP.
type EmailNotifier struct {
	dialer *gomail.Dialer
	from   string
	to     []string
}

func NewEmailNotifier(host string, port int, username, password, from string, to []string) *EmailNotifier {
	return &EmailNotifier{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
		to:     to,
	}
}

func (n *EmailNotifier) RunCompleted(_ context.Context, info *RunInfo) error {
	subject := fmt.Sprintf("phonehunt run finished: %d resolved", info.Resolved)
	if info.Aborted {
		subject = "phonehunt run aborted: " + info.AbortReason
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", n.to...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", fmt.Sprintf(
		"<p>%s</p><ul><li>Resolved: %d</li><li>Skipped: %d</li><li>Unresolved: %d</li></ul>",
		info.Message(), info.Resolved, info.Skipped, info.Unresolved,
	))

	if err := n.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// Multi fans a notification out to every channel and reports all
// failures together.
type Multi []Notifier

func (m Multi) RunCompleted(ctx context.Context, info *RunInfo) error {
	var errs []error
	for _, n := range m {
		if err := n.RunCompleted(ctx, info); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
