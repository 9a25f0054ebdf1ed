package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fileflow/internal/config"
	"fileflow/internal/domain/repositories"
	fsSvc "fileflow/internal/domain/services/filesystem"
)

// Job names as they appear in config/schedule.yaml.
const (
	NameSessionSweep      = "expired-sessions"
	NameShareSweep        = "expired-shares"
	NameTrashPurge        = "trash-purge"
	NameNotificationSweep = "read-notifications"
)

type clockFn func() time.Time

// TrashPurgeJob permanently deletes nodes trashed longer than the retention.
type TrashPurgeJob struct {
	trash     fsSvc.TrashService
	retention time.Duration
	logger    *slog.Logger
	now       clockFn
}

func NewTrashPurgeJob(trash fsSvc.TrashService, retention time.Duration, logger *slog.Logger) *TrashPurgeJob {
	if retention <= 0 {
		retention = config.DefaultTrashRetention
	}
	return &TrashPurgeJob{trash: trash, retention: retention, logger: logger, now: time.Now}
}

func (j *TrashPurgeJob) Name() string { return NameTrashPurge }

func (j *TrashPurgeJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	ids, err := j.trash.PurgeExpired(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("purge trash: %w", err)
	}
	j.logger.Info("trash purge done", "cutoff", cutoff, "purged", len(ids))
	return nil
}

// ShareSweepJob removes expired shares.
type ShareSweepJob struct {
	shares fsSvc.ShareService
	logger *slog.Logger
	now    clockFn
}

func NewShareSweepJob(shares fsSvc.ShareService, logger *slog.Logger) *ShareSweepJob {
	return &ShareSweepJob{shares: shares, logger: logger, now: time.Now}
}

func (j *ShareSweepJob) Name() string { return NameShareSweep }

func (j *ShareSweepJob) Run(ctx context.Context) error {
	n, err := j.shares.ExpireShares(ctx, j.now().UTC())
	if err != nil {
		return err
	}
	j.logger.Info("share sweep done", "deleted", n)
	return nil
}

// SessionSweepJob removes expired user sessions and refresh tokens.
type SessionSweepJob struct {
	repo   repositories.AuthSessionRepository
	logger *slog.Logger
	now    clockFn
}

func NewSessionSweepJob(repo repositories.AuthSessionRepository, logger *slog.Logger) *SessionSweepJob {
	return &SessionSweepJob{repo: repo, logger: logger, now: time.Now}
}

func (j *SessionSweepJob) Name() string { return NameSessionSweep }

func (j *SessionSweepJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	sessions, err := j.repo.DeleteExpiredSessions(ctx, now)
	if err != nil {
		return fmt.Errorf("delete expired sessions: %w", err)
	}
	tokens, err := j.repo.DeleteExpiredRefreshTokens(ctx, now)
	if err != nil {
		return fmt.Errorf("delete expired refresh tokens: %w", err)
	}
	j.logger.Info("session sweep done", "sessions", sessions, "refresh_tokens", tokens)
	return nil
}

// NotificationSweepJob removes read notifications past retention.
type NotificationSweepJob struct {
	repo   repositories.NotificationRepository
	logger *slog.Logger
	now    clockFn
}

func NewNotificationSweepJob(repo repositories.NotificationRepository, logger *slog.Logger) *NotificationSweepJob {
	return &NotificationSweepJob{repo: repo, logger: logger, now: time.Now}
}

func (j *NotificationSweepJob) Name() string { return NameNotificationSweep }

func (j *NotificationSweepJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-config.NotificationRetention)
	n, err := j.repo.DeleteReadBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("delete read notifications: %w", err)
	}
	j.logger.Info("notification sweep done", "deleted", n)
	return nil
}
