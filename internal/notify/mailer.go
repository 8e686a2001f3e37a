package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"beachbookings/internal/domain"

	"github.com/rs/zerolog"
)

const (
	DefaultResendEndpoint = "https://api.resend.com/emails"

	// resendBatchSize is the recipient cap of one Resend request.
	resendBatchSize = 50
)

type resendEmail struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Bcc     []string `json:"bcc,omitempty"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// ResendMailer sends mail through the Resend REST API.
// With more than one recipient the addresses go in bcc.
type ResendMailer struct {
	apiKey   string
	from     string
	endpoint string
	client   *http.Client
	logger   *zerolog.Logger
}

func NewResendMailer(apiKey, from, endpoint string, client *http.Client, logger *zerolog.Logger) *ResendMailer {
	if endpoint == "" {
		endpoint = DefaultResendEndpoint
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &ResendMailer{
		apiKey:   apiKey,
		from:     from,
		endpoint: endpoint,
		client:   client,
		logger:   logger,
	}
}

func (m *ResendMailer) Send(ctx context.Context, recipients []string, subject, html string) error {
	for start := 0; start < len(recipients); start += resendBatchSize {
		end := start + resendBatchSize
		if end > len(recipients) {
			end = len(recipients)
		}
		if err := m.sendBatch(ctx, recipients[start:end], subject, html); err != nil {
			return err
		}
	}
	return nil
}

func (m *ResendMailer) sendBatch(ctx context.Context, batch []string, subject, html string) error {
	payload := resendEmail{From: m.from, Subject: subject, HTML: html}
	if len(batch) == 1 {
		payload.To = batch
	} else {
		payload.To = []string{m.from}
		payload.Bcc = batch
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build resend request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email via Resend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("resend API error: %s: %s", resp.Status, bytes.TrimSpace(msg))
	}

	if m.logger != nil {
		m.logger.Debug().Int("recipients", len(batch)).Str("subject", subject).Msg("email sent via Resend")
	}
	return nil
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	logger *zerolog.Logger
}

func NewLogMailer(logger *zerolog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, recipients []string, subject, html string) error {
	m.logger.Info().
		Strs("to", recipients).
		Str("subject", subject).
		Int("html_bytes", len(html)).
		Msg("mock email")
	m.logger.Debug().Str("html", html).Msg("mock email body")
	return nil
}

// MultiMailer fans a message out to several mailers and joins their errors.
type MultiMailer struct {
	mailers []domain.Mailer
}

func NewMultiMailer(mailers ...domain.Mailer) *MultiMailer {
	return &MultiMailer{mailers: mailers}
}

func (m *MultiMailer) Send(ctx context.Context, recipients []string, subject, html string) error {
	var errs []error
	for _, mailer := range m.mailers {
		if err := mailer.Send(ctx, recipients, subject, html); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
