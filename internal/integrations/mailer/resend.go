package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

const defaultResendBaseURL = "https://api.resend.com"

type ResendSender struct {
	baseURL string
	apiKey  string
	from    string
	client  *http.Client
}

func NewResendSender(baseURL, apiKey, from string) *ResendSender {
	if baseURL == "" {
		baseURL = defaultResendBaseURL
	}
	return &ResendSender{
		baseURL: baseURL,
		apiKey:  apiKey,
		from:    from,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
}

type resendResponse struct {
	ID string `json:"id"`
}

func (s *ResendSender) Send(ctx context.Context, m Mail) (string, error) {
	payload, err := json.Marshal(resendRequest{
		From:    s.from,
		To:      []string{m.To},
		Subject: m.Subject,
		HTML:    m.HTML,
		Text:    m.Text,
	})
	if err != nil {
		return "", errors.Wrap(err, "marshal resend request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return "", errors.Wrap(err, "build resend request")
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "resend request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", errors.Errorf("resend status %d: %s", resp.StatusCode, body)
	}

	var out resendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", errors.Wrap(err, "decode resend response")
	}
	return out.ID, nil
}
