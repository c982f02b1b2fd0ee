package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ucfc/fulfillment-app/models"
)

func enqueueTask(t *testing.T, queue *NotificationQueue, channel models.NotificationChannel) *models.NotificationTask {
	t.Helper()
	task := &models.NotificationTask{
		Channel:     channel,
		Destination: "+628123456789",
		Body:        "Order UCFC-20260901-0001 is confirmed",
	}
	if channel == models.ChannelPush {
		task.Destination = "https://push.example.com/sub/abc"
	}
	assert.NoError(t, queue.Enqueue(task))
	return task
}

func TestEnqueueIsDurable(t *testing.T) {
	db := newTestDB(t)
	queue := NewNotificationQueue(db)

	task := enqueueTask(t, queue, models.ChannelSMS)

	var stored models.NotificationTask
	assert.NoError(t, db.First(&stored, task.ID).Error)
	assert.Equal(t, models.NotificationStatusPending, stored.Status)
	assert.Zero(t, stored.Attempts)
}

func TestDrainDeliversAndRecordsRef(t *testing.T) {
	db := newTestDB(t)
	queue := NewNotificationQueue(db)
	task := enqueueTask(t, queue, models.ChannelSMS)

	provider := &fakeProvider{channel: models.ChannelSMS, configured: true}
	worker := NewDeliveryWorker(queue, provider, 50, 3, time.Second)

	assert.NoError(t, drainNow(t, worker))
	assert.Equal(t, 1, provider.calls)

	var stored models.NotificationTask
	assert.NoError(t, db.First(&stored, task.ID).Error)
	assert.Equal(t, models.NotificationStatusSent, stored.Status)
	assert.Equal(t, 1, stored.Attempts)
	assert.NotNil(t, stored.ProviderRef)
	assert.Equal(t, "ref-1", *stored.ProviderRef)
	assert.NotNil(t, stored.SentAt)
}

func TestFailedTaskRetriesUntilBudgetSpent(t *testing.T) {
	db := newTestDB(t)
	queue := NewNotificationQueue(db)
	task := enqueueTask(t, queue, models.ChannelSMS)

	provider := &fakeProvider{channel: models.ChannelSMS, configured: true, sendErr: errors.New("gateway timeout")}
	worker := NewDeliveryWorker(queue, provider, 50, 3, time.Second)

	// Attempts 1 and 2 leave the task pending for the next drain.
	for i := 0; i < 2; i++ {
		assert.NoError(t, drainNow(t, worker))
		var stored models.NotificationTask
		assert.NoError(t, db.First(&stored, task.ID).Error)
		assert.Equal(t, models.NotificationStatusPending, stored.Status)
		assert.Equal(t, i+1, stored.Attempts)
		assert.NotNil(t, stored.LastError)
	}

	// Attempt 3 exhausts the budget.
	assert.NoError(t, drainNow(t, worker))
	var stored models.NotificationTask
	assert.NoError(t, db.First(&stored, task.ID).Error)
	assert.Equal(t, models.NotificationStatusFailed, stored.Status)
	assert.Equal(t, 3, stored.Attempts)
	assert.Equal(t, "gateway timeout", *stored.LastError)

	// Failed tasks are out of the pipeline for good.
	assert.NoError(t, drainNow(t, worker))
	assert.Equal(t, 3, provider.calls)
}

func TestInactiveSubscriptionFailsWithoutRetry(t *testing.T) {
	db := newTestDB(t)
	queue := NewNotificationQueue(db)
	task := enqueueTask(t, queue, models.ChannelPush)

	provider := &fakeProvider{channel: models.ChannelPush, configured: true, sendErr: ErrSubscriptionInactive}
	worker := NewDeliveryWorker(queue, provider, 50, 3, time.Second)

	assert.NoError(t, drainNow(t, worker))

	var stored models.NotificationTask
	assert.NoError(t, db.First(&stored, task.ID).Error)
	assert.Equal(t, models.NotificationStatusFailed, stored.Status)
	assert.Equal(t, 1, stored.Attempts)
	assert.Equal(t, 1, provider.calls)
}

func TestUnconfiguredChannelAccumulatesPending(t *testing.T) {
	db := newTestDB(t)
	queue := NewNotificationQueue(db)
	enqueueTask(t, queue, models.ChannelSMS)
	enqueueTask(t, queue, models.ChannelSMS)

	provider := &fakeProvider{channel: models.ChannelSMS, configured: false}
	worker := NewDeliveryWorker(queue, provider, 50, 3, time.Second)

	err := drainNow(t, worker)
	assert.ErrorIs(t, err, ErrChannelUnavailable)
	assert.Zero(t, provider.calls)

	pending, err := queue.CountByStatus(models.ChannelSMS, models.NotificationStatusPending)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), pending)

	// Once credentials appear the backlog drains as usual.
	provider.configured = true
	assert.NoError(t, drainNow(t, worker))

	sent, err := queue.CountByStatus(models.ChannelSMS, models.NotificationStatusSent)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), sent)
}

func TestClaimAdmitsSingleWorker(t *testing.T) {
	db := newTestDB(t)
	queue := NewNotificationQueue(db)
	task := enqueueTask(t, queue, models.ChannelSMS)

	// Two workers holding the same pending snapshot race for the claim.
	copyA := *task
	copyB := *task

	okA, err := queue.Claim(&copyA)
	assert.NoError(t, err)
	assert.True(t, okA)

	okB, err := queue.Claim(&copyB)
	assert.NoError(t, err)
	assert.False(t, okB)

	var stored models.NotificationTask
	assert.NoError(t, db.First(&stored, task.ID).Error)
	assert.Equal(t, 1, stored.Attempts)
}

func TestDrainRespectsBatchSizeAndChannel(t *testing.T) {
	db := newTestDB(t)
	queue := NewNotificationQueue(db)
	for i := 0; i < 3; i++ {
		enqueueTask(t, queue, models.ChannelSMS)
	}
	pushTask := enqueueTask(t, queue, models.ChannelPush)

	provider := &fakeProvider{channel: models.ChannelSMS, configured: true}
	worker := NewDeliveryWorker(queue, provider, 2, 3, time.Second)

	assert.NoError(t, drainNow(t, worker))
	assert.Equal(t, 2, provider.calls)

	assert.NoError(t, drainNow(t, worker))
	assert.Equal(t, 3, provider.calls)

	// The push task belongs to the other worker.
	var stored models.NotificationTask
	assert.NoError(t, db.First(&stored, pushTask.ID).Error)
	assert.Equal(t, models.NotificationStatusPending, stored.Status)
}
