package services

import (
	"context"
	"errors"
	"time"

	"github.com/ucfc/fulfillment-app/models"
	"github.com/ucfc/fulfillment-app/utils"
)

// ErrSubscriptionInactive is a permanent delivery failure: the destination
// was deactivated, so retrying cannot help.
var ErrSubscriptionInactive = errors.New("push subscription deactivated")

// Provider is one outbound notification channel. Send returns the provider's
// acknowledgment reference on success.
type Provider interface {
	Channel() models.NotificationChannel
	// Configured reports whether channel credentials were present at
	// startup. An unconfigured provider is never called; its tasks
	// accumulate as pending (degraded mode).
	Configured() bool
	Send(ctx context.Context, task *models.NotificationTask) (string, error)
}

// DeliveryWorker drains the notification queue for a single channel. Each
// invocation claims a bounded batch of pending tasks and pushes them through
// the provider; retries happen on later invocations.
type DeliveryWorker struct {
	queue       *NotificationQueue
	provider    Provider
	batchSize   int
	maxAttempts int
	timeout     time.Duration
}

func NewDeliveryWorker(queue *NotificationQueue, provider Provider, batchSize, maxAttempts int, timeout time.Duration) *DeliveryWorker {
	return &DeliveryWorker{
		queue:       queue,
		provider:    provider,
		batchSize:   batchSize,
		maxAttempts: maxAttempts,
		timeout:     timeout,
	}
}

// Drain processes one batch. Returns ErrChannelUnavailable without touching
// any task when the provider has no credentials.
func (w *DeliveryWorker) Drain(ctx context.Context) error {
	if !w.provider.Configured() {
		return ErrChannelUnavailable
	}

	tasks, err := w.queue.PendingBatch(w.provider.Channel(), w.batchSize)
	if err != nil {
		return err
	}

	for i := range tasks {
		task := &tasks[i]

		claimed, err := w.queue.Claim(task)
		if err != nil {
			return err
		}
		if !claimed {
			// Another pass owns it.
			continue
		}

		sendCtx, cancel := context.WithTimeout(ctx, w.timeout)
		ref, sendErr := w.provider.Send(sendCtx, task)
		cancel()

		if sendErr != nil {
			utils.ErrorLogger.Printf("%s delivery for task %d failed (attempt %d/%d): %v",
				w.provider.Channel(), task.ID, task.Attempts, w.maxAttempts, sendErr)
			if err := w.queue.MarkFailure(task, sendErr, w.maxAttempts); err != nil {
				return err
			}
			continue
		}

		if err := w.queue.MarkSent(task, ref); err != nil {
			return err
		}
		utils.InfoLogger.Printf("%s task %d delivered, provider ref %s", w.provider.Channel(), task.ID, ref)
	}

	return nil
}
