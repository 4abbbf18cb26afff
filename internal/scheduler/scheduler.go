package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

// Runner is the daily job: ingest the latest weather, then backfill.
type Runner interface {
	Run(ctx context.Context) error
}

// Scheduler runs the pipeline on a cron schedule.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    Runner
	schedule  string
	timeout   time.Duration
}

// New creates a new Scheduler. schedule is a standard five-field cron
// expression evaluated in UTC.
func New(schedule string, timeout time.Duration, runner Runner) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Scheduler{
		scheduler: s,
		runner:    runner,
		schedule:  schedule,
		timeout:   timeout,
	}
}

// Start schedules the job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if _, err := s.scheduler.Cron(s.schedule).Do(s.runOnce); err != nil {
		return err
	}
	s.scheduler.StartAsync()
	log.Printf("INFO: scheduler: pipeline scheduled (%s UTC)", s.schedule)
	return nil
}

func (s *Scheduler) runOnce() {
	log.Println("INFO: scheduler: running pipeline job")
	started := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.runner.Run(ctx); err != nil {
		log.Printf("ERROR: scheduler: pipeline job failed after %s: %v", time.Since(started), err)
		return
	}
	log.Printf("INFO: scheduler: completed pipeline job in %s", time.Since(started))
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
