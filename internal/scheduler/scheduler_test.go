package scheduler

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beni69/csengo/internal/task"
)

var errPlayFailed = errors.New("fake play failure")

type fakePlayer struct {
	mu      sync.Mutex
	played  []string
	fail    map[string]bool
	cancels map[string]chan struct{}
}

func newFakePlayer() *fakePlayer {
	return &fakePlayer{fail: map[string]bool{}, cancels: map[string]chan struct{}{}}
}

func (f *fakePlayer) PlayFile(fname string, priority bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.played = append(f.played, fname)
	if f.fail[fname] {
		return errPlayFailed
	}
	return nil
}

func (f *fakePlayer) CreateCancel(name string) <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.cancels[name] = ch
	return ch
}

func (f *fakePlayer) DeleteCancel(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.cancels, name)
}

func (f *fakePlayer) cancel(name string) {
	f.mu.Lock()
	ch := f.cancels[name]
	delete(f.cancels, name)
	f.mu.Unlock()
	if ch != nil {
		close(ch)
	}
}

func (f *fakePlayer) playCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.played)
}

type fakeStore struct {
	mu      sync.Mutex
	deleted []string
}

func (s *fakeStore) DeleteTask(name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, name)
	return true, nil
}

type fakeMail struct {
	mu    sync.Mutex
	calls int
}

func (m *fakeMail) TaskDone(fileName string, when time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
}

func TestScheduleNowPlaysSynchronously(t *testing.T) {
	p := newFakePlayer()
	s := New(&fakeStore{}, p, &fakeMail{})

	err := s.Schedule(task.Now{Name: "n1", File: "a.mp3", PriorityOn: true})
	require.NoError(t, err)
	assert.Equal(t, 1, p.playCount())
}

func TestScheduleRejectsPastScheduledTime(t *testing.T) {
	p := newFakePlayer()
	s := New(&fakeStore{}, p, &fakeMail{})

	err := s.Schedule(task.Scheduled{Name: "s1", File: "a.mp3", Time: time.Now().Add(-time.Second)})
	assert.Error(t, err)
}

func TestScheduledFiresAndDeletes(t *testing.T) {
	p := newFakePlayer()
	store := &fakeStore{}
	mail := &fakeMail{}
	s := New(store, p, mail)

	err := s.Schedule(task.Scheduled{Name: "s1", File: "a.mp3", Time: time.Now().Add(30 * time.Millisecond)})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return p.playCount() == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.deleted) == 1
	}, time.Second, 5*time.Millisecond)

	mail.mu.Lock()
	calls := mail.calls
	mail.mu.Unlock()
	assert.Equal(t, 1, calls)
}

func TestScheduledCancelPreventsPlay(t *testing.T) {
	p := newFakePlayer()
	s := New(&fakeStore{}, p, &fakeMail{})

	err := s.Schedule(task.Scheduled{Name: "s1", File: "a.mp3", Time: time.Now().Add(200 * time.Millisecond)})
	require.NoError(t, err)

	p.cancel("s1")
	time.Sleep(300 * time.Millisecond)

	assert.Equal(t, 0, p.playCount())
}

func TestRecurringRejectsEmptyTimes(t *testing.T) {
	p := newFakePlayer()
	s := New(&fakeStore{}, p, &fakeMail{})

	err := s.Schedule(task.Recurring{Name: "r1", File: "a.mp3"})
	assert.Error(t, err)
}

func TestRecurringCancelStops(t *testing.T) {
	p := newFakePlayer()
	s := New(&fakeStore{}, p, &fakeMail{})

	soon := time.Now().Add(50 * time.Millisecond)
	err := s.Schedule(task.Recurring{
		Name:  "r1",
		File:  "a.mp3",
		Times: []time.Time{time.Date(0, 1, 1, soon.Hour(), soon.Minute(), soon.Second(), 0, time.Local)},
	})
	require.NoError(t, err)

	p.cancel("r1")
	time.Sleep(200 * time.Millisecond)

	assert.Equal(t, 0, p.playCount())
}
