package services

import (
	"context"
	"time"

	"github.com/tourguider/backend/models"
	"github.com/tourguider/backend/utils"
	"gorm.io/gorm"
)

// StaleSendingAfter is how long an email may sit in sending before the dispatcher
// assumes its sender died and takes it over
const StaleSendingAfter = 10 * time.Minute

// EmailDispatcher sends queued and scheduled emails once they are due
type EmailDispatcher struct {
	db       *gorm.DB
	interval time.Duration
	batch    int
}

func NewEmailDispatcher(db *gorm.DB, interval time.Duration) *EmailDispatcher {
	return &EmailDispatcher{db: db, interval: interval, batch: 20}
}

// Run polls until ctx is cancelled
func (d *EmailDispatcher) Run(ctx context.Context) {
	utils.LogInfo("Email dispatcher started (interval %s)", d.interval)
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			utils.LogInfo("Email dispatcher stopped")
			return
		case <-ticker.C:
			if _, err := d.DispatchDue(ctx); err != nil {
				utils.LogError("Email dispatch failed: %v", err)
			}
		}
	}
}

// DispatchDue sends every pending email whose scheduled time has passed, retries
// emails left in sending for longer than StaleSendingAfter, and returns how many
// were delivered.
func (d *EmailDispatcher) DispatchDue(ctx context.Context) (int, error) {
	if Mail == nil {
		return 0, nil
	}

	now := time.Now()
	stale := now.Add(-StaleSendingAfter)

	var due []models.EmailNotificationLog
	err := d.db.WithContext(ctx).
		Where("(status = ? AND scheduled_at <= ?) OR (status = ? AND updated_at < ?)",
			models.DeliveryPending, now, models.DeliverySending, stale).
		Where("retry_count < ?", MaxEmailAttempts).
		Order("scheduled_at ASC").
		Limit(d.batch).
		Find(&due).Error
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range due {
		log := &due[i]

		// claim the row so a second instance does not send it too
		claim := d.db.WithContext(ctx).Model(&models.EmailNotificationLog{}).Where("id = ?", log.ID)
		fields := map[string]interface{}{"status": models.DeliverySending}
		if log.Status == models.DeliverySending {
			// the previous attempt may have gone out before its sender died
			utils.LogWarn("Email %s stuck in sending since %s, retrying", log.ID, log.UpdatedAt.Format(time.RFC3339))
			log.RetryCount++
			fields["retry_count"] = log.RetryCount
			claim = claim.Where("status = ? AND updated_at < ?", models.DeliverySending, stale)
		} else {
			claim = claim.Where("status = ?", models.DeliveryPending)
		}
		res := claim.Updates(fields)
		if res.Error != nil || res.RowsAffected == 0 {
			continue
		}

		if err := DeliverEmail(ctx, log, MaxEmailAttempts); err != nil {
			utils.LogWarn("Email %s to %s failed (attempt %d): %v", log.ID, log.UserEmail, log.RetryCount, err)
			continue
		}
		sent++
	}

	if sent > 0 {
		utils.LogInfo("Dispatched %d emails", sent)
	}
	return sent, nil
}
