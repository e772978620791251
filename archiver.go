package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Archiver is the subset of the matchup engine the scheduler drives.
type Archiver interface {
	ArchiveEnded(ctx context.Context) (int, error)
}

// Schedule runs periodic archive passes. The zero value is stopped.
type Schedule struct {
	cron *cron.Cron
}

// StartArchiver runs ArchiveEnded on spec, a cron expression or descriptor
// such as "@every 5m". An empty spec starts nothing.
func StartArchiver(spec string, a Archiver, logger *slog.Logger) (*Schedule, error) {
	if spec == "" {
		return &Schedule{}, nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		n, err := a.ArchiveEnded(ctx)
		if err != nil {
			logger.Error("scheduled archive failed", "error", err)
			return
		}
		if n > 0 {
			logger.Info("archived ended matchups", "count", n)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("ARCHIVE_SCHEDULE %q: %w", spec, err)
	}
	c.Start()
	logger.Info("archive schedule started", "spec", spec)
	return &Schedule{cron: c}, nil
}

// Stop halts the schedule and waits for a running pass to finish.
func (s *Schedule) Stop() {
	if s == nil || s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

// Running reports whether a schedule is active.
func (s *Schedule) Running() bool {
	return s != nil && s.cron != nil
}
