package httpapi

import (
	"context"

	"github.com/beni69/csengo/internal/audio"
	"github.com/beni69/csengo/internal/storage"
	"github.com/beni69/csengo/internal/task"
)

// Store is the subset of internal/storage.Store the HTTP layer needs.
type Store interface {
	InsertFile(f storage.File) error
	GetFile(name string) (storage.File, error)
	ListFiles() ([]string, error)
	DeleteFile(name string) (bool, error)
	FileStats() (storage.FileStats, error)

	InsertTask(t task.Task) error
	ListTasks() ([]task.Task, error)
	DeleteTask(name string) (bool, error)
}

// Player is the subset of internal/player.Player the HTTP layer needs.
type Player interface {
	NowPlaying() audio.NowPlaying
	NowPlayingStream(ctx context.Context, last audio.NowPlaying) (audio.NowPlaying, error)
	Stop()
	Playtest() error
	Cancel(name string) bool
}

// Scheduler is the subset of internal/scheduler.Scheduler the HTTP
// layer needs: handing a freshly validated task off to be run.
type Scheduler interface {
	Schedule(t task.Task) error
}
