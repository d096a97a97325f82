package cronjob

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/claim-deploy/claim-deploy-backend/internal/cleanup/domain"
	"github.com/claim-deploy/claim-deploy-backend/internal/cleanup/repository"
	"github.com/claim-deploy/claim-deploy-backend/internal/cleanup/service"
	"github.com/robfig/cron/v3"
)

const runTimeout = 30 * time.Minute

// Scheduler runs the cleanup reaper on a cron schedule.
type Scheduler struct {
	reaper   *service.Reaper
	reports  *repository.ReportRepository // nil disables audit rows
	schedule string
	c        *cron.Cron
}

// NewScheduler creates a scheduler for the given cron expression.
func NewScheduler(reaper *service.Reaper, reports *repository.ReportRepository, schedule string) *Scheduler {
	return &Scheduler{reaper: reaper, reports: reports, schedule: schedule}
}

// Start registers the cron entry and starts the scheduler.
func (s *Scheduler) Start() error {
	s.c = cron.New()

	if _, err := s.c.AddFunc(s.schedule, s.runOnce); err != nil {
		return fmt.Errorf("failed to create cleanup cron job: %w", err)
	}

	log.Printf("Cleanup scheduler started (schedule %q)", s.schedule)
	s.c.Start()
	return nil
}

// Stop stops the scheduler. A pass already in flight finishes.
func (s *Scheduler) Stop() {
	if s.c != nil {
		s.c.Stop()
	}
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	log.Println("Scheduled cleanup started...")

	report, err := s.reaper.Run(ctx)
	if err != nil {
		log.Printf("Scheduled cleanup failed: %v", err)
	}
	if report == nil {
		return
	}

	for _, kr := range report.Kinds {
		log.Printf("Cleanup %s: matched=%d deleted=%d failed=%d", kr.Kind, kr.Matched, kr.Deleted, kr.Failed)
	}

	if s.reports != nil {
		if err := s.reports.Record(ctx, domain.TriggerSchedule, report); err != nil {
			log.Printf("Failed to record cleanup report: %v", err)
		}
	}
}
