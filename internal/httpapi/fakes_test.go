package httpapi

import (
	"context"
	"errors"
	"sync"

	"github.com/beni69/csengo/internal/audio"
	"github.com/beni69/csengo/internal/errs"
	"github.com/beni69/csengo/internal/storage"
	"github.com/beni69/csengo/internal/task"
)

// fakeStore is an in-memory Store double shared by every handler test.
type fakeStore struct {
	mu    sync.Mutex
	files map[string]storage.File
	tasks map[string]task.Task

	failInsertTask error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		files: map[string]storage.File{},
		tasks: map[string]task.Task{},
	}
}

func (s *fakeStore) InsertFile(f storage.File) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[f.Name] = f
	return nil
}

func (s *fakeStore) GetFile(name string) (storage.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[name]
	if !ok {
		return storage.File{}, errs.NotFound("file not found")
	}
	return f, nil
}

func (s *fakeStore) ListFiles() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.files))
	for n := range s.files {
		names = append(names, n)
	}
	return names, nil
}

func (s *fakeStore) DeleteFile(name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[name]; !ok {
		return false, nil
	}
	delete(s.files, name)
	return true, nil
}

func (s *fakeStore) FileStats() (storage.FileStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, f := range s.files {
		total += int64(len(f.Data))
	}
	return storage.FileStats{Count: len(s.files), TotalSize: total}, nil
}

func (s *fakeStore) InsertTask(t task.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failInsertTask != nil {
		return s.failInsertTask
	}
	if _, ok := s.tasks[t.TaskName()]; ok {
		return errs.NameConflict("task already exists")
	}
	s.tasks[t.TaskName()] = t
	return nil
}

func (s *fakeStore) ListTasks() ([]task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]task.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t)
	}
	return out, nil
}

func (s *fakeStore) DeleteTask(name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[name]; !ok {
		return false, nil
	}
	delete(s.tasks, name)
	return true, nil
}

// fakePlayer is a Player double.
type fakePlayer struct {
	mu        sync.Mutex
	np        audio.NowPlaying
	stopped   bool
	playtestd bool
	playtestE error
	cancelled []string
}

func (p *fakePlayer) NowPlaying() audio.NowPlaying {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.np
}

func (p *fakePlayer) NowPlayingStream(ctx context.Context, last audio.NowPlaying) (audio.NowPlaying, error) {
	<-ctx.Done()
	return audio.NowPlaying{}, ctx.Err()
}

func (p *fakePlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
}

func (p *fakePlayer) Playtest() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playtestd = true
	return p.playtestE
}

func (p *fakePlayer) Cancel(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelled = append(p.cancelled, name)
	return true
}

// fakeScheduler is a Scheduler double.
type fakeScheduler struct {
	mu        sync.Mutex
	scheduled []task.Task
	failName  string
}

func (s *fakeScheduler) Schedule(t task.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failName != "" && t.TaskName() == s.failName {
		return errors.New("fake schedule failure")
	}
	s.scheduled = append(s.scheduled, t)
	return nil
}
