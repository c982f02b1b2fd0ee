package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/ucfc/fulfillment-app/models"
)

// NotificationQueue owns NotificationTask rows. Enqueue is synchronous and
// durable: the task is persisted before the call returns. Draining happens in
// the channel delivery workers.
type NotificationQueue struct {
	db *gorm.DB
}

func NewNotificationQueue(db *gorm.DB) *NotificationQueue {
	return &NotificationQueue{db: db}
}

func (q *NotificationQueue) Enqueue(task *models.NotificationTask) error {
	return q.EnqueueTx(q.db, task)
}

// EnqueueTx persists the task inside the caller's transaction, so producers
// can make the enqueue atomic with their own writes.
func (q *NotificationQueue) EnqueueTx(tx *gorm.DB, task *models.NotificationTask) error {
	task.Status = models.NotificationStatusPending
	task.Attempts = 0
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}
	return tx.Create(task).Error
}

// PendingBatch returns up to limit deliverable tasks for one channel, oldest
// first.
func (q *NotificationQueue) PendingBatch(channel models.NotificationChannel, limit int) ([]models.NotificationTask, error) {
	var tasks []models.NotificationTask
	err := q.db.
		Where("channel = ? AND status = ?", channel, models.NotificationStatusPending).
		Order("created_at asc").
		Limit(limit).
		Find(&tasks).Error
	return tasks, err
}

// Claim moves a task pending -> sending and bumps its attempt counter in one
// conditional update. A false return means another worker pass got there
// first (or the task is no longer pending); the caller must skip it.
func (q *NotificationQueue) Claim(task *models.NotificationTask) (bool, error) {
	res := q.db.Model(&models.NotificationTask{}).
		Where("id = ? AND status = ?", task.ID, models.NotificationStatusPending).
		Updates(map[string]interface{}{
			"status":   models.NotificationStatusSending,
			"attempts": gorm.Expr("attempts + 1"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	task.Status = models.NotificationStatusSending
	task.Attempts++
	return true, nil
}

// MarkSent records a successful delivery with the provider acknowledgment.
func (q *NotificationQueue) MarkSent(task *models.NotificationTask, providerRef string) error {
	now := time.Now()
	err := q.db.Model(&models.NotificationTask{}).
		Where("id = ?", task.ID).
		Updates(map[string]interface{}{
			"status":       models.NotificationStatusSent,
			"provider_ref": providerRef,
			"last_error":   nil,
			"sent_at":      now,
		}).Error
	if err != nil {
		return err
	}
	task.Status = models.NotificationStatusSent
	task.ProviderRef = &providerRef
	task.SentAt = &now
	return nil
}

// MarkFailure records a delivery error. The task goes back to pending for a
// later drain unless the attempt budget is spent (or the failure is
// permanent), in which case it becomes failed and is never retried.
func (q *NotificationQueue) MarkFailure(task *models.NotificationTask, sendErr error, maxAttempts int) error {
	status := models.NotificationStatusPending
	if task.Attempts >= maxAttempts || errors.Is(sendErr, ErrSubscriptionInactive) {
		status = models.NotificationStatusFailed
	}

	msg := sendErr.Error()
	err := q.db.Model(&models.NotificationTask{}).
		Where("id = ?", task.ID).
		Updates(map[string]interface{}{
			"status":     status,
			"last_error": msg,
		}).Error
	if err != nil {
		return err
	}
	task.Status = status
	task.LastError = &msg
	return nil
}

// CountByStatus exposes queue depth per status, mainly so a stuck or degraded
// channel is visible to operators.
func (q *NotificationQueue) CountByStatus(channel models.NotificationChannel, status models.NotificationStatus) (int64, error) {
	var n int64
	err := q.db.Model(&models.NotificationTask{}).
		Where("channel = ? AND status = ?", channel, status).
		Count(&n).Error
	return n, err
}
