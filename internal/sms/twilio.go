package sms

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Sender is the narrow interface the pipeline dispatches through. A false
// return means the alert was not delivered; senders never panic and
// report transport errors as false.
type Sender interface {
	Send(ctx context.Context, toNumber, body string) bool
}

const twilioAPIBase = "https://api.twilio.com/2010-04-01"

// Twilio sends SMS through the Twilio Messages REST endpoint.
type Twilio struct {
	accountSID string
	authToken  string
	fromNumber string
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
}

func NewTwilio(accountSID, authToken, fromNumber string, logger *zap.Logger) *Twilio {
	return &Twilio{
		accountSID: accountSID,
		authToken:  authToken,
		fromNumber: fromNumber,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    twilioAPIBase,
		logger:     logger,
	}
}

// Send posts one message. The body is clamped to the single-segment
// budget as a last line of defense; callers are expected to have
// formatted it already.
func (t *Twilio) Send(ctx context.Context, toNumber, body string) bool {
	if len(body) > MaxLength {
		body = body[:MaxLength-3] + "..."
		t.logger.Warn("SMS body truncated to fit segment limit")
	}

	form := url.Values{}
	form.Set("To", toNumber)
	form.Set("From", t.fromNumber)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", t.baseURL, t.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		t.logger.Error("Failed to build Twilio request", zap.Error(err))
		return false
	}
	req.SetBasicAuth(t.accountSID, t.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		t.logger.Error("Twilio request failed", zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		t.logger.Error("Twilio rejected message",
			zap.Int("status", resp.StatusCode),
			zap.String("response", string(detail)))
		return false
	}

	t.logger.Info("SMS sent", zap.String("to", toNumber))
	return true
}
