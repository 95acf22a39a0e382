// Package retention schedules periodic cache pruning with robfig/cron.
package retention

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Pruner is the subset of *cache.Cache the scheduler needs, kept narrow so
// this package does not import internal/cache and create a cycle risk as
// the cache package grows.
type Pruner interface {
	PruneExpired() (int, error)
}

// Scheduler runs a Pruner's PruneExpired on a cron cadence in the
// background until Stop is called.
type Scheduler struct {
	cron   *cron.Cron
	log    *slog.Logger
	pruner Pruner
}

// New builds a Scheduler that prunes on the given cron spec (standard
// 5-field syntax, e.g. "*/10 * * * *" for every 10 minutes). The schedule
// is not started until Start is called.
func New(spec string, pruner Pruner, log *slog.Logger) (*Scheduler, error) {
	if log == nil {
		log = slog.Default()
	}
	s := &Scheduler{
		cron:   cron.New(),
		log:    log.With("component", "cache.retention"),
		pruner: pruner,
	}
	_, err := s.cron.AddFunc(spec, s.runOnce)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins running the schedule in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop ends the schedule, blocking until any in-flight run finishes.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) runOnce() {
	pruned, err := s.pruner.PruneExpired()
	if err != nil {
		s.log.Error("cache retention sweep failed", "error", err)
		return
	}
	if pruned > 0 {
		s.log.Info("cache retention sweep pruned expired entries", "count", pruned)
	}
}
