// Package notify delivers outbound SMS alerts.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxMessageLen caps alert bodies at a single SMS segment.
const maxMessageLen = 160

// Sender delivers a short text message to a phone-identified user.
type Sender interface {
	Send(ctx context.Context, phone, message string) error
}

// TwilioClient sends SMS through the Twilio REST API.
type TwilioClient struct {
	accountSID    string
	authToken     string
	fromPhone     string
	countryPrefix string
	baseURL       string
	client        *http.Client
}

func NewTwilioClient(accountSID, authToken, fromPhone, countryPrefix string) *TwilioClient {
	return &TwilioClient{
		accountSID:    accountSID,
		authToken:     authToken,
		fromPhone:     fromPhone,
		countryPrefix: countryPrefix,
		baseURL:       "https://api.twilio.com",
		client:        &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *TwilioClient) Send(ctx context.Context, phone, message string) error {
	phone = strings.TrimSpace(phone)
	message = strings.TrimSpace(message)
	if len(phone) != 10 || message == "" || len(message) > maxMessageLen {
		return errors.New("invalid phone or message")
	}

	form := url.Values{}
	form.Set("From", t.fromPhone)
	form.Set("To", t.countryPrefix+phone)
	form.Set("Body", message)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", t.baseURL, t.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(t.accountSID, t.authToken)

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("send sms: status %d", resp.StatusCode)
	}
	return nil
}
