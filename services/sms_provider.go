package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/ucfc/fulfillment-app/models"
)

// SMSProvider talks to an HTTP SMS gateway. Credentials come from SMS_API_URL
// and SMS_API_KEY; without them the provider reports itself unconfigured and
// the SMS channel runs degraded.
type SMSProvider struct {
	apiURL     string
	apiKey     string
	senderID   string
	httpClient *http.Client
}

func NewSMSProvider() *SMSProvider {
	return &SMSProvider{
		apiURL:   os.Getenv("SMS_API_URL"),
		apiKey:   os.Getenv("SMS_API_KEY"),
		senderID: os.Getenv("SMS_SENDER_ID"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (p *SMSProvider) Channel() models.NotificationChannel {
	return models.ChannelSMS
}

func (p *SMSProvider) Configured() bool {
	return p.apiURL != "" && p.apiKey != ""
}

type smsGatewayResponse struct {
	MessageID string `json:"message_id"`
	Error     string `json:"error"`
}

func (p *SMSProvider) Send(ctx context.Context, task *models.NotificationTask) (string, error) {
	payload := map[string]string{
		"to":      task.Destination,
		"message": task.Body,
		"sender":  p.senderID,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sms gateway: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: sms gateway returned %d: %s", ErrDeliveryFailed, resp.StatusCode, string(raw))
	}

	var gw smsGatewayResponse
	if err := json.Unmarshal(raw, &gw); err != nil {
		return "", fmt.Errorf("sms gateway response: %w", err)
	}
	if gw.Error != "" {
		return "", fmt.Errorf("%w: %s", ErrDeliveryFailed, gw.Error)
	}

	return gw.MessageID, nil
}
