// Package scheduler runs the fetch tasks on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job statuses reported in events.
const (
	StatusStarted   = "started"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Job is a named task with a cron spec. An empty spec disables the job.
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) error
}

// Event describes one state change of a job run.
type Event struct {
	RunID      string    `json:"run_id"`
	Job        string    `json:"job"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
}

// Publisher receives job events, e.g. to forward them to websocket clients.
type Publisher interface {
	Publish(Event)
}

// JobInfo describes a registered job.
type JobInfo struct {
	Name string    `json:"name"`
	Spec string    `json:"spec"`
	Next time.Time `json:"next"`
}

// Scheduler manages background jobs.
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
	pub  Publisher
	now  func() time.Time

	mu      sync.Mutex
	jobs    map[string]Job
	entries map[string]cron.EntryID
	ctx     context.Context
	cancel  context.CancelFunc
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithPublisher forwards job events to p.
func WithPublisher(p Publisher) Option {
	return func(s *Scheduler) { s.pub = p }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New creates a scheduler. Overlapping runs of the same job are skipped.
func New(log zerolog.Logger, opts ...Option) *Scheduler {
	log = log.With().Str("component", "scheduler").Logger()
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		log:     log,
		now:     time.Now,
		jobs:    map[string]Job{},
		entries: map[string]cron.EntryID{},
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	cl := cronLogger{log: log}
	s.cron = cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	return s
}

// Add registers job. It reports false when the job is disabled.
func (s *Scheduler) Add(job Job) (bool, error) {
	if job.Spec == "" {
		s.log.Debug().Str("job", job.Name).Msg("job disabled")
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.Name]; ok {
		return false, fmt.Errorf("job %q is already registered", job.Name)
	}
	id, err := s.cron.AddFunc(job.Spec, func() {
		_ = s.run(s.ctx, job)
	})
	if err != nil {
		return false, fmt.Errorf("schedule %s %q: %w", job.Name, job.Spec, err)
	}
	s.jobs[job.Name] = job
	s.entries[job.Name] = id
	s.log.Info().Str("job", job.Name).Str("schedule", job.Spec).Msg("job registered")
	return true, nil
}

// Start starts the scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.Jobs())).Msg("scheduler started")
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// Jobs lists the registered jobs by name.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]JobInfo, 0, len(s.jobs))
	for name, job := range s.jobs {
		out = append(out, JobInfo{Name: name, Spec: job.Spec, Next: s.cron.Entry(s.entries[name]).Next})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// RunNow executes a registered job immediately and returns its final event.
func (s *Scheduler) RunNow(ctx context.Context, name string) (Event, error) {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return Event{}, fmt.Errorf("no job named %q", name)
	}
	ev := s.run(ctx, job)
	if ev.Status == StatusFailed {
		return ev, fmt.Errorf("%s: %s", name, ev.Error)
	}
	return ev, nil
}

func (s *Scheduler) run(ctx context.Context, job Job) Event {
	ev := Event{RunID: uuid.NewString(), Job: job.Name, Status: StatusStarted, StartedAt: s.now()}
	log := s.log.With().Str("job", job.Name).Str("run_id", ev.RunID).Logger()
	log.Info().Msg("job started")
	s.publish(ev)

	err := job.Run(ctx)
	ev.FinishedAt = s.now()
	if err != nil {
		ev.Status = StatusFailed
		ev.Error = err.Error()
		log.Error().Err(err).Dur("duration", ev.FinishedAt.Sub(ev.StartedAt)).Msg("job failed")
	} else {
		ev.Status = StatusSucceeded
		log.Info().Dur("duration", ev.FinishedAt.Sub(ev.StartedAt)).Msg("job completed")
	}
	s.publish(ev)
	return ev
}

func (s *Scheduler) publish(ev Event) {
	if s.pub != nil {
		s.pub.Publish(ev)
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
