package scheduler

import (
	"context"
	"log"
	"sync"
	"time"
)

// Job is a scheduled callback. The context is canceled on Stop.
type Job func(ctx context.Context)

// Scheduler registers timed callbacks under string keys. Registrations are
// not durable: after a restart the owning component re-derives them from
// persisted state and registers again.
type Scheduler interface {
	// ScheduleOnce registers fn to fire at the given time. Re-registering
	// the same key replaces the prior registration. Times already in the
	// past fire immediately.
	ScheduleOnce(key string, at time.Time, fn Job)
	// ScheduleEvery registers fn on a fixed interval.
	ScheduleEvery(key string, interval time.Duration, fn Job)
	// ScheduleWeekly registers fn to fire every week at the given local
	// weekday and time of day.
	ScheduleWeekly(key string, day time.Weekday, hour, minute int, fn Job)
	// Cancel removes a registration. Unknown keys are a no-op.
	Cancel(key string)
	// Stop cancels every registration and waits for running jobs.
	Stop()
}

// timerScheduler implements Scheduler on time.Timer, with a semaphore
// bounding how many job callbacks run at once.
type timerScheduler struct {
	mu      sync.Mutex
	entries map[string]*entry
	sem     chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	stopped bool
}

type entry struct {
	timer  *time.Timer
	ticker *time.Ticker
	done   chan struct{}
}

// New creates a running scheduler. maxConcurrent bounds simultaneously
// executing jobs; values below 1 mean a single worker.
func New(maxConcurrent int) Scheduler {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &timerScheduler{
		entries: make(map[string]*entry),
		sem:     make(chan struct{}, maxConcurrent),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (s *timerScheduler) ScheduleOnce(key string, at time.Time, fn Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.removeLocked(key)

	delay := time.Until(at)
	if delay < 0 {
		delay = 0
	}
	e := &entry{done: make(chan struct{})}
	e.timer = time.AfterFunc(delay, func() {
		defer close(e.done)
		s.run(fn)
		s.mu.Lock()
		if s.entries[key] == e {
			delete(s.entries, key)
		}
		s.mu.Unlock()
	})
	s.entries[key] = e
}

func (s *timerScheduler) ScheduleEvery(key string, interval time.Duration, fn Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.removeLocked(key)

	e := &entry{
		ticker: time.NewTicker(interval),
		done:   make(chan struct{}),
	}
	s.entries[key] = e
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-e.ticker.C:
				s.run(fn)
			case <-e.done:
				return
			case <-s.ctx.Done():
				return
			}
		}
	}()
}

func (s *timerScheduler) ScheduleWeekly(key string, day time.Weekday, hour, minute int, fn Job) {
	var arm func()
	arm = func() {
		at := nextWeekly(time.Now(), day, hour, minute)
		s.ScheduleOnce(key, at, func(ctx context.Context) {
			fn(ctx)
			arm() // re-arm for the following week
		})
	}
	arm()
}

// nextWeekly returns the next occurrence of day at hour:minute strictly
// after now.
func nextWeekly(now time.Time, day time.Weekday, hour, minute int) time.Time {
	y, m, d := now.Date()
	candidate := time.Date(y, m, d, hour, minute, 0, 0, now.Location())
	daysAhead := (int(day) - int(now.Weekday()) + 7) % 7
	candidate = candidate.AddDate(0, 0, daysAhead)
	if !candidate.After(now) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	return candidate
}

func (s *timerScheduler) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(key)
}

func (s *timerScheduler) removeLocked(key string) {
	e, ok := s.entries[key]
	if !ok {
		return
	}
	delete(s.entries, key)
	if e.timer != nil {
		if e.timer.Stop() {
			close(e.done)
		}
	}
	if e.ticker != nil {
		e.ticker.Stop()
		close(e.done)
	}
}

func (s *timerScheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	for key := range s.entries {
		s.removeLocked(key)
	}
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

// run executes a job under the concurrency cap.
func (s *timerScheduler) run(fn Job) {
	select {
	case s.sem <- struct{}{}:
	case <-s.ctx.Done():
		return
	}
	s.wg.Add(1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("ERROR: scheduled job panicked: %v", r)
			}
			<-s.sem
			s.wg.Done()
		}()
		fn(s.ctx)
	}()
}
