// Package jobmgr runs named background jobs: one-off async runners,
// recurring tickers and delayed one-shots, with cancellation and in-memory
// tracking of what is currently scheduled.
//
// Typical usage:
//
//	jm := jobmgr.NewManager(func(msg string) {
//	    log.Println("JOB:", msg)
//	})
//
//	_ = jm.Every("flush", 30*time.Second, func(ctx context.Context) error {
//	    return store.Flush()
//	})
//	_ = jm.After("reconnect", 10*time.Second, supervisor.Run)
//
//	// on shutdown
//	jm.StopAll()
//
// Handlers are plain functions, so a test can call them directly without
// going through the manager.
package jobmgr

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Job represents a scheduled or running unit of work.
// Jobs are added and removed by Manager automatically.
type Job struct {
	Name   string
	Cancel context.CancelFunc
	done   chan struct{}
}

// Handler is the unit of work executed by a job.
type Handler func(ctx context.Context) error

// StatusReporter receives lifecycle events for jobs.
// Example messages:
//
//	running:flush
//	error:flush:disk full
//	done:reconnect
type StatusReporter func(string)

// Manager orchestrates starting, stopping and tracking jobs.
// It is safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	jobs     map[string]*Job
	Reporter StatusReporter
}

// NewManager creates a new Manager.
// The reporter callback may be nil.
func NewManager(reporter StatusReporter) *Manager {
	return &Manager{
		jobs:     make(map[string]*Job),
		Reporter: reporter,
	}
}

// StartSync runs a job in the current goroutine and blocks until completion.
func (m *Manager) StartSync(name string, runner Handler) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	return runner(ctx)
}

// StartAsync runs a job in a separate goroutine and returns immediately.
// If a job with the same name is already running, an error is returned.
// Jobs are removed automatically after completion (success or failure).
func (m *Manager) StartAsync(name string, runner Handler) error {
	return m.spawn(name, func(ctx context.Context) {
		m.runOnce(ctx, name, runner)
	})
}

// Every runs handler on a fixed interval until the job is stopped.
// The first run happens one interval after scheduling. A failing run is
// reported and the ticker keeps going.
func (m *Manager) Every(name string, interval time.Duration, handler Handler) error {
	if interval <= 0 {
		return fmt.Errorf("job '%s': interval must be positive", name)
	}
	return m.spawn(name, func(ctx context.Context) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.runOnce(ctx, name, handler)
			}
		}
	})
}

// After runs handler exactly once after delay, unless the job is stopped
// first.
func (m *Manager) After(name string, delay time.Duration, handler Handler) error {
	return m.spawn(name, func(ctx context.Context) {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			m.runOnce(ctx, name, handler)
		}
	})
}

func (m *Manager) spawn(name string, body func(ctx context.Context)) error {
	ctx, cancel := context.WithCancel(context.Background())
	job := &Job{Name: name, Cancel: cancel, done: make(chan struct{})}

	m.mu.Lock()
	if _, exists := m.jobs[name]; exists {
		m.mu.Unlock()
		cancel()
		return fmt.Errorf("job '%s' is already running", name)
	}
	m.jobs[name] = job
	m.mu.Unlock()

	go func() {
		defer close(job.done)
		defer cancel()
		body(ctx)

		m.mu.Lock()
		if m.jobs[name] == job {
			delete(m.jobs, name)
		}
		m.mu.Unlock()
	}()

	return nil
}

func (m *Manager) runOnce(ctx context.Context, name string, handler Handler) {
	m.report("running:" + name)
	if err := handler(ctx); err != nil {
		m.report("error:" + name + ":" + err.Error())
		return
	}
	m.report("done:" + name)
}

// Stop cancels a job by name and waits for its goroutine to return.
// If the job is not running, an error is returned.
func (m *Manager) Stop(name string) error {
	m.mu.Lock()
	job, ok := m.jobs[name]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("job '%s' not running", name)
	}
	delete(m.jobs, name)
	m.mu.Unlock()

	job.Cancel()
	<-job.done
	return nil
}

// StopAll cancels every job and waits for all of them to return.
func (m *Manager) StopAll() {
	m.mu.Lock()
	jobs := make([]*Job, 0, len(m.jobs))
	for name, job := range m.jobs {
		jobs = append(jobs, job)
		delete(m.jobs, name)
	}
	m.mu.Unlock()

	for _, job := range jobs {
		job.Cancel()
	}
	for _, job := range jobs {
		<-job.done
	}
}

// List returns the sorted list of active job names.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.jobs))
	for k := range m.jobs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Status returns a human-readable summary of active jobs.
// Example:
//
//	"Running jobs: flush, presence"
//
// If none are running: "No jobs are running."
func (m *Manager) Status() string {
	active := m.List()
	if len(active) == 0 {
		return "No jobs are running."
	}
	return fmt.Sprintf("Running jobs: %s", strings.Join(active, ", "))
}

// report delivers lifecycle messages to the reporter if present.
func (m *Manager) report(s string) {
	if m.Reporter != nil {
		m.Reporter(s)
	}
}
