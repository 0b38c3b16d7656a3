package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/huangang/appcatalog/backend/internal/config"
	"github.com/huangang/appcatalog/backend/internal/models"
	"github.com/huangang/appcatalog/backend/internal/storage"
	"github.com/huangang/appcatalog/backend/pkg/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

const (
	logCleanupSchedule  = "30 3 * * *"
	orphanSweepSchedule = "@hourly"

	logCleanupJob  = "log_cleanup"
	orphanSweepJob = "orphan_sweep"
)

// Scheduler runs periodic maintenance: system log retention and the optional
// orphaned asset sweep.
type Scheduler struct {
	cron    *cron.Cron
	db      *gorm.DB
	logs    *SystemLogService
	sweeper *OrphanSweeper
	cfg     *config.Config
	holder  string
	now     func() time.Time
}

func NewScheduler(db *gorm.DB, store *storage.Store, cfg *config.Config) *Scheduler {
	host, _ := os.Hostname()
	return &Scheduler{
		cron:    cron.New(),
		db:      db,
		logs:    NewSystemLogService(db),
		sweeper: NewOrphanSweeper(db, store),
		cfg:     cfg,
		holder:  fmt.Sprintf("%s-%d", host, os.Getpid()),
		now:     time.Now,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(logCleanupSchedule, s.runLogCleanup); err != nil {
		return err
	}

	if s.cfg.Storage.OrphanSweep {
		if _, err := s.cron.AddFunc(orphanSweepSchedule, s.runOrphanSweep); err != nil {
			return err
		}
		logger.Infof("[Scheduler] Orphan sweep enabled (grace %d minutes)", s.cfg.Storage.OrphanGraceMinutes)
	}

	s.cron.Start()
	logger.Infof("[Scheduler] Started")

	go s.runLogCleanup()
	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// claim records that this instance performs the run identified by runKey.
// It returns false when another instance already claimed it.
func (s *Scheduler) claim(job, runKey string, ttl time.Duration) bool {
	now := s.now()
	if err := s.db.Where("expires_at < ?", now).Delete(&models.SchedulerLock{}).Error; err != nil {
		logger.Warn().Err(err).Msg("[Scheduler] Failed to purge expired locks")
	}

	lock := &models.SchedulerLock{
		JobName:   job,
		RunKey:    runKey,
		Holder:    s.holder,
		LockedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.db.Create(lock).Error; err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			logger.Warn().Err(err).Str("job", job).Msg("[Scheduler] Failed to claim run")
		}
		return false
	}
	return true
}

func (s *Scheduler) runLogCleanup() {
	retentionDays := s.cfg.Log.RetentionDays
	if retentionDays <= 0 {
		logger.Infof("[SystemLog] Log cleanup disabled (retention_days <= 0)")
		return
	}
	if !s.claim(logCleanupJob, s.now().Format("2006-01-02"), 48*time.Hour) {
		return
	}

	deleted, err := s.logs.CleanupOldLogs(retentionDays)
	if err != nil {
		logger.Errorf("[SystemLog] Failed to cleanup old logs: %v", err)
		return
	}
	if deleted > 0 {
		logger.Infof("[SystemLog] Cleaned up %d logs older than %d days", deleted, retentionDays)
	}
}

func (s *Scheduler) runOrphanSweep() {
	if !s.claim(orphanSweepJob, s.now().Format("2006-01-02T15"), 2*time.Hour) {
		return
	}
	grace := time.Duration(s.cfg.Storage.OrphanGraceMinutes) * time.Minute
	report, err := s.sweeper.Sweep(context.Background(), grace, true)
	if err != nil {
		logger.Errorf("[OrphanSweep] Failed: %v", err)
		return
	}
	if len(report.Orphans) > 0 {
		logger.Infof("[OrphanSweep] Removed %d of %d orphaned files", report.Removed, len(report.Orphans))
	}
}

// OrphanReport lists stored files that no record references.
type OrphanReport struct {
	Scanned int      `json:"scanned"`
	Orphans []string `json:"orphans"`
	Removed int      `json:"removed"`
}

// OrphanSweeper finds asset files left behind by interrupted uploads or failed removals.
type OrphanSweeper struct {
	db    *gorm.DB
	store *storage.Store
	now   func() time.Time
}

func NewOrphanSweeper(db *gorm.DB, store *storage.Store) *OrphanSweeper {
	return &OrphanSweeper{db: db, store: store, now: time.Now}
}

// Sweep reports unreferenced files older than grace, deleting them when remove is set.
// Files younger than grace may belong to an upload whose record is still being written.
func (s *OrphanSweeper) Sweep(ctx context.Context, grace time.Duration, remove bool) (*OrphanReport, error) {
	referenced, err := s.referencedPaths(ctx)
	if err != nil {
		return nil, err
	}

	report := &OrphanReport{Orphans: []string{}}
	cutoff := s.now().Add(-grace)

	for _, dir := range []string{storage.ApplicationsDir, storage.IconsDir} {
		err := s.store.Walk(dir, func(rel string, info fs.FileInfo) error {
			report.Scanned++
			if referenced[rel] || info.ModTime().After(cutoff) {
				return nil
			}
			report.Orphans = append(report.Orphans, rel)
			if !remove {
				return nil
			}
			if err := s.store.Remove(rel); err != nil {
				logger.Warn().Err(err).Str("path", rel).Msg("failed to remove orphaned asset")
				return nil
			}
			logger.Info().Str("path", rel).Msg("removed orphaned asset")
			report.Removed++
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return report, nil
}

func (s *OrphanSweeper) referencedPaths(ctx context.Context) (map[string]bool, error) {
	var appPaths, iconPaths []string
	if err := s.db.WithContext(ctx).Model(&models.Application{}).
		Where("file_path IS NOT NULL").Pluck("file_path", &appPaths).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&models.Icon{}).
		Where("file_path IS NOT NULL").Pluck("file_path", &iconPaths).Error; err != nil {
		return nil, err
	}

	referenced := make(map[string]bool, len(appPaths)+len(iconPaths))
	for _, p := range appPaths {
		referenced[p] = true
	}
	for _, p := range iconPaths {
		referenced[p] = true
	}
	return referenced, nil
}
