package backup

import (
	"context"
	"ecgd/internal/backup/interfaces"
	"ecgd/internal/providers"
	"ecgd/internal/structures"
	"sync"
	"time"

	"github.com/roylee0704/gron"
)

const backupTimeout = 10 * time.Minute

type Scheduler struct {
	config      *structures.Config
	logger      providers.Logger
	maintenance *Maintenance
	cron        *gron.Cron
	opsMu       sync.Mutex
}

// Init starts periodic backups. It does nothing when backups are disabled.
func (s *Scheduler) Init() {
	if !s.config.Backup.Enabled || s.config.Backup.Interval <= 0 {
		return
	}
	s.cron = gron.New()
	s.cron.AddFunc(gron.Every(s.config.Backup.Interval), func() {
		_ = s.Persist()
	})
	s.cron.Start()
	s.logger.Infof(providers.TypeApp, "Backups scheduled every %s into %s", s.config.Backup.Interval, s.config.Backup.Dir)
}

// Stop halts the schedule and waits for a running backup to finish.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	s.opsMu.Lock()
	defer s.opsMu.Unlock()
}

// Persist takes a snapshot now. Runs never overlap.
func (s *Scheduler) Persist() error {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), backupTimeout)
	defer cancel()

	_, _, err := s.maintenance.Backup(ctx)
	return err
}

func NewScheduler(config *structures.Config, logger providers.Logger, maintenance *Maintenance) interfaces.SchedulerInterface {
	return &Scheduler{
		config:      config,
		logger:      logger,
		maintenance: maintenance,
	}
}
