package logic

import (
	"fmt"
	"time"
)

// Task is a periodic action. Run must return promptly; a slow task delays
// the whole tick.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(now time.Time) error
}

// TaskResult reports one task dispatched by Tick.
type TaskResult struct {
	Name string
	Err  error
}

type entry struct {
	task    Task
	lastRun time.Time
}

// Scheduler holds one independent next-due timestamp per task and runs
// every task whose interval has elapsed on each Tick. Single-threaded.
type Scheduler struct {
	entries []*entry
}

// NewScheduler creates an empty Scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Add registers a task armed from start. The interval is fixed for the
// task's lifetime.
func (s *Scheduler) Add(task Task, start time.Time) error {
	if task.Interval <= 0 {
		return fmt.Errorf("task %q: interval must be positive, got %v", task.Name, task.Interval)
	}
	if task.Run == nil {
		return fmt.Errorf("task %q: no action", task.Name)
	}
	for _, e := range s.entries {
		if e.task.Name == task.Name {
			return fmt.Errorf("task %q: already registered", task.Name)
		}
	}
	s.entries = append(s.entries, &entry{task: task, lastRun: start})
	return nil
}

// Tick runs, in registration order, every task with now-lastRun >= interval
// and re-arms it at now. A failing or panicking task does not affect the
// others.
func (s *Scheduler) Tick(now time.Time) []TaskResult {
	var results []TaskResult
	for _, e := range s.entries {
		if now.Sub(e.lastRun) < e.task.Interval {
			continue
		}
		e.lastRun = now
		results = append(results, TaskResult{Name: e.task.Name, Err: runTask(e.task, now)})
	}
	return results
}

// Due reports whether the named task would run on a Tick at now. It is false
// for unknown tasks.
func (s *Scheduler) Due(name string, now time.Time) bool {
	for _, e := range s.entries {
		if e.task.Name == name {
			return now.Sub(e.lastRun) >= e.task.Interval
		}
	}
	return false
}

// LastRun returns when the named task last ran (or its arm time).
func (s *Scheduler) LastRun(name string) (time.Time, bool) {
	for _, e := range s.entries {
		if e.task.Name == name {
			return e.lastRun, true
		}
	}
	return time.Time{}, false
}

// Tasks returns the registered task names in dispatch order.
func (s *Scheduler) Tasks() []string {
	names := make([]string, len(s.entries))
	for i, e := range s.entries {
		names[i] = e.task.Name
	}
	return names
}

func runTask(task Task, now time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %q panicked: %v", task.Name, r)
		}
	}()
	return task.Run(now)
}
