package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/blissmart/marketplace-backend/pkg/logger"
)

const (
	NotificationRetention = 30 * 24 * time.Hour
	OutboxRetention       = 7 * 24 * time.Hour
)

// purgeFunc deletes rows older than cutoff and reports how many went.
type purgeFunc func(ctx context.Context, cutoff time.Time) (int64, error)

// purgeJob removes rows that aged past a retention window.
type purgeJob struct {
	name      string
	retention time.Duration
	purge     purgeFunc
	logg      *logger.Logger
	now       func() time.Time
}

func (j *purgeJob) Name() string { return j.name }

func (j *purgeJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	removed, err := j.purge(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}
	if j.logg != nil {
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"cutoff":       cutoff,
			"retention":    j.retention.String(),
			"rows_removed": removed,
		})
		j.logg.Info(logCtx, j.name+" complete")
	}
	return nil
}

func newPurgeJob(name string, retention time.Duration, purge purgeFunc, logg *logger.Logger) (*purgeJob, error) {
	if purge == nil {
		return nil, fmt.Errorf("%s: purge function required", name)
	}
	return &purgeJob{name: name, retention: retention, purge: purge, logg: logg, now: time.Now}, nil
}

type notificationPurger interface {
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewNotificationCleanupJob drops read notifications older than retention
// (30 days when zero). Unread notifications are kept.
func NewNotificationCleanupJob(repo notificationPurger, retention time.Duration, logg *logger.Logger) (Job, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if retention <= 0 {
		retention = NotificationRetention
	}
	return newPurgeJob("notification-cleanup", retention, repo.DeleteReadBefore, logg)
}

type outboxPurger interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewOutboxRetentionJob drops published outbox events older than seven days.
func NewOutboxRetentionJob(repo outboxPurger, logg *logger.Logger) (Job, error) {
	if repo == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	return newPurgeJob("outbox-retention", OutboxRetention, repo.DeleteOlderThan, logg)
}

type otpPurger interface {
	ClearExpiredOTPs(ctx context.Context, now time.Time) (int64, error)
}

// NewOTPPurgeJob clears one-time codes whose expiry has passed.
func NewOTPPurgeJob(repo otpPurger, logg *logger.Logger) (Job, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return newPurgeJob("otp-purge", 0, repo.ClearExpiredOTPs, logg)
}
