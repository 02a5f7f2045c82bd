package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	mu      sync.Mutex
	runs    int
	started chan struct{}
	block   chan struct{}
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run() error {
	j.mu.Lock()
	j.runs++
	j.mu.Unlock()
	if j.started != nil {
		j.started <- struct{}{}
	}
	if j.block != nil {
		<-j.block
	}
	return nil
}

func (j *countingJob) count() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.runs
}

func TestAddJob_InvalidSchedule(t *testing.T) {
	s := New(zerolog.Nop())
	err := s.AddJob("not a schedule", &countingJob{})
	assert.Error(t, err)
}

func TestScheduler_RunsJobs(t *testing.T) {
	// ConstantDelaySchedule rounds sub-second delays up, so 1s is the
	// smallest schedule a test can observe.
	s := New(zerolog.Nop())
	job := &countingJob{}
	require.NoError(t, s.AddJob("@every 1s", job))

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return job.count() >= 1
	}, 5*time.Second, 50*time.Millisecond)
}

func TestRunNow(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{}
	require.NoError(t, s.RunNow(job))
	assert.Equal(t, 1, job.count())
}

func TestRunNow_RejectedWhileRunning(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{
		// Buffered: the final RunNow below executes the job with no
		// receiver on started, which would deadlock an unbuffered send.
		started: make(chan struct{}, 1),
		block:   make(chan struct{}),
	}

	done := make(chan error, 1)
	go func() { done <- s.RunNow(job) }()
	<-job.started

	// Second trigger while the first is mid-run: rejected, not queued.
	err := s.RunNow(job)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
	assert.Equal(t, 1, job.count())

	close(job.block)
	require.NoError(t, <-done)

	// Once the first run finishes the job can be triggered again.
	require.NoError(t, s.RunNow(job))
	assert.Equal(t, 2, job.count())
}

func TestScheduledAndManualRunsShareGuard(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{
		started: make(chan struct{}),
		block:   make(chan struct{}),
	}

	// Registering binds the cron closure to the same runner RunNow uses,
	// so a manual run blocks the scheduled tick and vice versa.
	require.NoError(t, s.AddJob("@hourly", job))

	done := make(chan error, 1)
	go func() { done <- s.RunNow(job) }()
	<-job.started

	runner := s.runnerFor(job)
	ran, err := runner.tryRun()
	assert.False(t, ran, "tick during a manual run is skipped")
	assert.NoError(t, err)
	assert.Equal(t, 1, job.count())

	close(job.block)
	require.NoError(t, <-done)
}

type failingJob struct {
	mu   sync.Mutex
	runs int
}

func (j *failingJob) Name() string { return "failing" }
func (j *failingJob) Run() error {
	j.mu.Lock()
	j.runs++
	j.mu.Unlock()
	return assert.AnError
}

func (j *failingJob) count() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.runs
}

func TestRunNow_FailureReleasesGuard(t *testing.T) {
	s := New(zerolog.Nop())
	job := &failingJob{}

	assert.Error(t, s.RunNow(job))
	assert.Error(t, s.RunNow(job), "a failed run must not leave the job marked in-flight")
	assert.Equal(t, 2, job.count())
}
