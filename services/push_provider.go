package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ucfc/fulfillment-app/models"
)

// PushProvider posts notification payloads to the subscription endpoints
// registered by customer devices. PUSH_VAPID_PUBLIC_KEY and
// PUSH_VAPID_PRIVATE_KEY gate the channel; without them push runs degraded.
type PushProvider struct {
	db         *gorm.DB
	publicKey  string
	privateKey string
	httpClient *http.Client
}

func NewPushProvider(db *gorm.DB) *PushProvider {
	return &PushProvider{
		db:         db,
		publicKey:  os.Getenv("PUSH_VAPID_PUBLIC_KEY"),
		privateKey: os.Getenv("PUSH_VAPID_PRIVATE_KEY"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (p *PushProvider) Channel() models.NotificationChannel {
	return models.ChannelPush
}

func (p *PushProvider) Configured() bool {
	return p.publicKey != "" && p.privateKey != ""
}

// Send resolves the task destination to a subscription and posts the payload
// to its endpoint. A deactivated or deleted subscription is a permanent
// failure (ErrSubscriptionInactive): the task record stays for history but is
// never retried.
func (p *PushProvider) Send(ctx context.Context, task *models.NotificationTask) (string, error) {
	var sub models.PushSubscription
	err := p.db.Where("endpoint = ?", task.Destination).First(&sub).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", ErrSubscriptionInactive
		}
		return "", err
	}
	if !sub.Active {
		return "", ErrSubscriptionInactive
	}

	payload, err := json.Marshal(map[string]interface{}{
		"title": "Order update",
		"body":  task.Body,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.Endpoint, bytes.NewBuffer(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("TTL", "300")
	req.Header.Set("Authorization", "vapid t="+p.privateKey+", k="+p.publicKey)
	req.Header.Set("Crypto-Key", "p256ecdsa="+sub.P256dhKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("push endpoint: %w", err)
	}
	defer resp.Body.Close()

	// 404/410 mean the browser dropped the endpoint.
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		p.db.Model(&models.PushSubscription{}).
			Where("id = ?", sub.ID).
			Update("active", false)
		return "", ErrSubscriptionInactive
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: push endpoint returned %d", ErrDeliveryFailed, resp.StatusCode)
	}

	if err := p.db.Model(&models.PushSubscription{}).
		Where("id = ?", sub.ID).
		Update("delivery_count", gorm.Expr("delivery_count + 1")).Error; err != nil {
		return "", err
	}

	// Push services rarely echo a message id; synthesize one for the audit
	// trail when the Location header is absent.
	ref := resp.Header.Get("Location")
	if ref == "" {
		ref = uuid.NewString()
	}
	return ref, nil
}
