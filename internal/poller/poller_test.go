package poller

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

type countingJob struct {
	name  string
	err   error
	delay time.Duration
	runs  atomic.Int32

	inFlight    *atomic.Int32
	maxInFlight *atomic.Int32
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	if j.inFlight != nil {
		current := j.inFlight.Add(1)
		defer j.inFlight.Add(-1)
		for {
			old := j.maxInFlight.Load()
			if current <= old || j.maxInFlight.CompareAndSwap(old, current) {
				break
			}
		}
	}
	if j.delay > 0 {
		select {
		case <-time.After(j.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return j.err
}

func TestPoller_RunOnce(t *testing.T) {
	ok := &countingJob{name: "kalshi"}
	bad := &countingJob{name: "polymarket", err: errors.New("gamma down")}

	p := New(Config{Interval: time.Hour, Concurrency: 2}, []Job{ok, bad}, nil)

	if failed := p.RunOnce(context.Background()); failed != 1 {
		t.Errorf("RunOnce() failed = %d, want 1", failed)
	}
	if ok.runs.Load() != 1 || bad.runs.Load() != 1 {
		t.Errorf("runs = %d/%d, want 1/1", ok.runs.Load(), bad.runs.Load())
	}

	stats := p.Stats()
	if stats.Cycles != 1 || stats.Runs != 2 || stats.Failures != 1 {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestPoller_StartStop(t *testing.T) {
	job := &countingJob{name: "kalshi"}
	p := New(Config{Interval: 50 * time.Millisecond, Concurrency: 1}, []Job{job}, nil)

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Immediate run plus at least one tick.
	time.Sleep(120 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if got := job.runs.Load(); got < 2 {
		t.Errorf("runs = %d, want >= 2", got)
	}
}

func TestPoller_Concurrency(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32

	var jobs []Job
	for i := 0; i < 10; i++ {
		jobs = append(jobs, &countingJob{
			name:        "job-" + strconv.Itoa(i),
			delay:       30 * time.Millisecond,
			inFlight:    &inFlight,
			maxInFlight: &maxInFlight,
		})
	}

	p := New(Config{Interval: time.Hour, Concurrency: 3}, jobs, nil)
	p.RunOnce(context.Background())

	if got := maxInFlight.Load(); got > 3 {
		t.Errorf("maxInFlight = %d, want <= 3", got)
	}
}

func TestPoller_Timeout(t *testing.T) {
	slow := &countingJob{name: "slow", delay: time.Second}
	p := New(Config{Interval: time.Hour, Concurrency: 1, Timeout: 20 * time.Millisecond}, []Job{slow}, nil)

	start := time.Now()
	if failed := p.RunOnce(context.Background()); failed != 1 {
		t.Errorf("failed = %d, want 1", failed)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("job was not cut off by the run timeout")
	}
}

func TestJobFunc(t *testing.T) {
	called := false
	j := JobFunc{JobName: "cleanup", Fn: func(ctx context.Context) error {
		called = true
		return nil
	}}
	if j.Name() != "cleanup" {
		t.Errorf("Name() = %q", j.Name())
	}
	if err := j.Run(context.Background()); err != nil || !called {
		t.Errorf("Run() = %v, called = %v", err, called)
	}
}
