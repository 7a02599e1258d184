package scheduler

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/beni69/csengo/internal/task"
)

// TaskLister is the subset of internal/storage.Store the recovery
// loader reads from.
type TaskLister interface {
	ListTasks() ([]task.Task, error)
	DeleteTask(name string) (bool, error)
}

// Recover implements the startup missed-fire policy (§4.5): a
// Scheduled task whose time has already passed is dropped and logged
// rather than fired late; everything else is handed to Schedule,
// which itself computes drift (including, for Recurring, firing
// immediately if next_fire already returns a past/zero duration).
func (s *Scheduler) Recover(lister TaskLister) error {
	tasks, err := lister.ListTasks()
	if err != nil {
		return err
	}

	now := time.Now()
	for _, t := range tasks {
		sched, ok := t.(task.Scheduled)
		if ok && sched.Time.Before(now) {
			if _, err := lister.DeleteTask(sched.Name); err != nil {
				log.Error().Str("task", sched.Name).Err(err).Msg("failed to delete missed task")
			}
			log.Warn().Str("task", sched.Name).Time("was_due", sched.Time).Msg("missed scheduled task, deleting without playing")
			continue
		}

		if err := s.Schedule(t); err != nil {
			log.Error().Str("task", t.TaskName()).Err(err).Msg("failed to reschedule task on recovery")
		}
	}

	return nil
}
