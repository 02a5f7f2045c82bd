// Package scheduler runs the background jobs: market data refresh,
// signal generation, narrative enrichment, signal expiration, cache
// cleanup and off-site backups.
package scheduler

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job represents a scheduled job
type Job interface {
	Run() error
	Name() string
}

// jobRunner wraps a job with its in-flight guard. The guard is shared
// between the cron tick and manual triggering so the two paths can
// never overlap each other.
type jobRunner struct {
	job      Job
	inFlight atomic.Bool
}

// tryRun executes the job unless a run is already in progress.
// Returns false without running when the job was busy.
func (r *jobRunner) tryRun() (bool, error) {
	if !r.inFlight.CompareAndSwap(false, true) {
		return false, nil
	}
	defer r.inFlight.Store(false)
	return true, r.job.Run()
}

// Scheduler manages background jobs
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger

	mu      sync.Mutex
	runners map[string]*jobRunner
}

// New creates a new scheduler
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		log:     log.With().Str("component", "scheduler").Logger(),
		runners: make(map[string]*jobRunner),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers a job with a cron schedule. A tick that fires while
// the previous run of the same job is still going is skipped, as is a
// tick that fires during a manual RunNow of the job.
// Schedule examples:
//   - "0 */15 * * * *"  - Every 15 minutes
//   - "@hourly"         - Every hour
//   - "0 30 2 * * *"    - 02:30 daily
func (s *Scheduler) AddJob(schedule string, job Job) error {
	runner := s.runnerFor(job)

	_, err := s.cron.AddFunc(schedule, func() {
		s.log.Debug().Str("job", job.Name()).Msg("Running job")

		ran, err := runner.tryRun()
		if !ran {
			s.log.Warn().Str("job", job.Name()).Msg("Previous run still in progress, skipping")
			return
		}
		if err != nil {
			s.log.Error().
				Err(err).
				Str("job", job.Name()).
				Msg("Job failed")
		} else {
			s.log.Debug().Str("job", job.Name()).Msg("Job completed")
		}
	})
	if err != nil {
		return err
	}

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")

	return nil
}

// RunNow executes a job immediately, outside its schedule. The job's
// in-flight guard still applies: a job whose scheduled run is going
// reports an error instead of running concurrently.
func (s *Scheduler) RunNow(job Job) error {
	runner := s.runnerFor(job)

	s.log.Info().Str("job", job.Name()).Msg("Running job immediately")
	ran, err := runner.tryRun()
	if !ran {
		return fmt.Errorf("job %s is already running", job.Name())
	}
	return err
}

// runnerFor returns the job's shared runner, creating it on first use.
func (s *Scheduler) runnerFor(job Job) *jobRunner {
	s.mu.Lock()
	defer s.mu.Unlock()

	runner, ok := s.runners[job.Name()]
	if !ok {
		runner = &jobRunner{job: job}
		s.runners[job.Name()] = runner
	}
	return runner
}
