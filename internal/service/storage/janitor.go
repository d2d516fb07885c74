package storage

import (
	"fmt"
	"time"

	"plateserver/internal/logger"
	"plateserver/internal/repository"

	"github.com/robfig/cron/v3"
)

// Janitor periodically removes uploads, artifacts and history rows older
// than the configured retention age.
type Janitor struct {
	store    *Store
	repo     repository.RecognitionRepository
	maxAge   time.Duration
	schedule string
	logger   *logger.Logger
	cron     *cron.Cron
}

func NewJanitor(store *Store, repo repository.RecognitionRepository, maxAge time.Duration, schedule string, logger *logger.Logger) *Janitor {
	return &Janitor{
		store:    store,
		repo:     repo,
		maxAge:   maxAge,
		schedule: schedule,
		logger:   logger,
	}
}

// Start registers the sweep on the cron schedule. A non-positive max age
// keeps everything and schedules nothing.
func (j *Janitor) Start() error {
	if j.maxAge <= 0 {
		j.logger.Info("Retention disabled, uploads are kept forever")
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(j.schedule, j.Sweep); err != nil {
		return fmt.Errorf("invalid retention schedule %q: %w", j.schedule, err)
	}
	c.Start()
	j.cron = c

	j.logger.Info("Retention sweep scheduled (%s, max age %s)", j.schedule, j.maxAge)
	return nil
}

// Sweep runs one retention pass.
func (j *Janitor) Sweep() {
	removed, err := j.store.Prune(j.maxAge)
	if err != nil {
		j.logger.Warning("Retention sweep could not remove some files: %v", err)
	}

	if j.repo != nil {
		rows, err := j.repo.DeleteOlderThan(j.store.now().Add(-j.maxAge))
		if err != nil {
			j.logger.Error("Retention sweep failed on history: %v", err)
			return
		}
		if rows > 0 || removed > 0 {
			j.logger.Info("Retention sweep removed %d files/folders and %d history rows", removed, rows)
		}
	}
}

// Stop waits for a running sweep to finish.
func (j *Janitor) Stop() {
	if j.cron == nil {
		return
	}
	<-j.cron.Stop().Done()
}
