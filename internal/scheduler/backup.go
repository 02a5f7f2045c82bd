package scheduler

import (
	"context"
	"time"

	"github.com/grainwise/grainwise/internal/reliability"
	"github.com/rs/zerolog"
)

// BackupJob ships a database backup off-site and rotates old archives.
// Runs nightly at 02:30, outside trading hours.
type BackupJob struct {
	backups *reliability.BackupService
	timeout time.Duration
	log     zerolog.Logger
}

// NewBackupJob creates a new backup job
func NewBackupJob(backups *reliability.BackupService, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		backups: backups,
		timeout: 30 * time.Minute,
		log:     log.With().Str("job", "backup").Logger(),
	}
}

// Name returns the job name
func (j *BackupJob) Name() string {
	return "backup"
}

// Run creates and uploads a backup, then rotates old ones.
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if err := j.backups.CreateAndUpload(ctx); err != nil {
		return err
	}

	// Rotation failure does not fail the backup itself.
	if err := j.backups.RotateOldBackups(ctx); err != nil {
		j.log.Error().Err(err).Msg("Backup rotation failed")
	}
	return nil
}
