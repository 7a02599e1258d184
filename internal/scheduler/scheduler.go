// Package scheduler turns a persisted Task into a running timer unit:
// Now plays immediately, Scheduled fires once and deletes itself,
// Recurring fires daily at each configured time until cancelled.
package scheduler

import (
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/beni69/csengo/internal/metrics"
	"github.com/beni69/csengo/internal/task"
)

// Player is the subset of internal/player.Player the scheduler drives.
type Player interface {
	PlayFile(fname string, priority bool) error
	CreateCancel(name string) <-chan struct{}
	DeleteCancel(name string)
}

// Store is the subset of internal/storage.Store the scheduler drives.
type Store interface {
	DeleteTask(name string) (bool, error)
}

// Mailer is notified once a Scheduled task plays successfully.
type Mailer interface {
	TaskDone(fileName string, when time.Time)
}

// Scheduler dispatches tasks to long-lived goroutines, one per
// Scheduled or Recurring task; Now tasks never get a goroutine.
type Scheduler struct {
	store  Store
	player Player
	mail   Mailer
}

func New(store Store, player Player, mail Mailer) *Scheduler {
	return &Scheduler{store: store, player: player, mail: mail}
}

// Schedule dispatches t by its concrete variant. It returns
// immediately for Scheduled/Recurring (the timer runs in its own
// goroutine); for Now it plays synchronously.
func (s *Scheduler) Schedule(t task.Task) error {
	switch v := t.(type) {
	case task.Now:
		s.playNow(v)
		return nil
	case task.Scheduled:
		return s.scheduleOnce(v)
	case task.Recurring:
		return s.scheduleRecurring(v)
	default:
		return nil
	}
}

func (s *Scheduler) playNow(t task.Now) {
	if err := s.player.PlayFile(t.File, t.PriorityOn); err != nil {
		log.Error().Str("task", t.Name).Err(err).Msg("immediate play failed")
		metrics.RecordPlaybackFailure("now", t.Name)
		return
	}
	metrics.RecordPlaybackSuccess("now", t.Name)
}

// scheduleOnce implements the Scheduled state machine (§4.4): rejects
// a time already in the past, then spawns a timer goroutine that
// races a cancel signal against the sleep, biased toward cancel.
func (s *Scheduler) scheduleOnce(t task.Scheduled) error {
	diff := time.Until(t.Time)
	if diff < 0 {
		return errPastTime
	}

	metrics.IncActiveTasks("scheduled")
	cancel := s.player.CreateCancel(t.Name)

	go func() {
		cancelled := raceBiased(cancel, diff)
		if cancelled {
			log.Debug().Str("task", t.Name).Msg("scheduled task cancelled before firing")
			metrics.DecActiveTasks("scheduled")
			return
		}

		drift := math.Abs(time.Since(t.Time).Seconds())
		metrics.RecordDrift("scheduled", t.Name, drift)

		if err := s.player.PlayFile(t.File, t.PriorityOn); err != nil {
			log.Error().Str("task", t.Name).Err(err).Msg("scheduled play failed")
			metrics.RecordPlaybackFailure("scheduled", t.Name)
		} else {
			metrics.RecordPlaybackSuccess("scheduled", t.Name)
			s.mail.TaskDone(t.File, t.Time)
		}

		if _, err := s.store.DeleteTask(t.Name); err != nil {
			log.Error().Str("task", t.Name).Err(err).Msg("failed to delete task after scheduled play")
		}
		// the fire path, not the cancel path, reached here: the
		// registry entry was never consumed by Cancel, so it must be
		// removed here instead.
		s.player.DeleteCancel(t.Name)

		metrics.DecActiveTasks("scheduled")
	}()

	return nil
}

// scheduleRecurring implements the Recurring state machine (§4.4):
// a single cancel channel lives for the task's whole life, and each
// loop iteration recomputes the next fire time fresh.
func (s *Scheduler) scheduleRecurring(t task.Recurring) error {
	if len(t.Times) == 0 {
		return errNoTimes
	}

	metrics.IncActiveTasks("recurring")
	cancel := s.player.CreateCancel(t.Name)

	go func() {
		for {
			duration, expected := nextFire(t.Times, time.Now())

			cancelled := raceBiased(cancel, duration)
			if cancelled {
				log.Debug().Str("task", t.Name).Msg("recurring task cancelled")
				metrics.DecActiveTasks("recurring")
				return
			}

			drift := math.Abs(time.Since(expected).Seconds())
			metrics.RecordDrift("recurring", t.Name, drift)

			if err := s.player.PlayFile(t.File, t.PriorityOn); err != nil {
				log.Error().Str("task", t.Name).Err(err).Msg("recurring play failed")
				metrics.RecordPlaybackFailure("recurring", t.Name)
			} else {
				metrics.RecordPlaybackSuccess("recurring", t.Name)
				log.Debug().Str("task", t.Name).Msg("recurring task played, going back to sleep")
			}
		}
	}()

	return nil
}

// raceBiased waits for either cancel to fire or d to elapse,
// preferring cancel when both are ready at once.
func raceBiased(cancel <-chan struct{}, d time.Duration) (cancelled bool) {
	select {
	case <-cancel:
		return true
	default:
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-cancel:
		return true
	case <-timer.C:
		select {
		case <-cancel:
			return true
		default:
			return false
		}
	}
}
