package models

import "time"

// SchedulerLock marks one run of a scheduled job as claimed. The unique
// (job_name, run_key) pair lets only one server instance perform each run.
type SchedulerLock struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	JobName   string    `gorm:"uniqueIndex:idx_job_run;size:100;not null" json:"job_name"`
	RunKey    string    `gorm:"uniqueIndex:idx_job_run;size:100;not null" json:"run_key"`
	Holder    string    `gorm:"size:100" json:"holder"`
	LockedAt  time.Time `json:"locked_at"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
}

func (SchedulerLock) TableName() string { return "scheduler_locks" }
