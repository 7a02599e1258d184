package audio

import (
	"context"
	"testing"
	"time"

	"github.com/gopxl/beep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pull drives n samples through a streamer directly, bypassing the
// real speaker backend, so Sink's Stream logic can be exercised
// without an audio device.
func pull(t *testing.T, s *Sink, n int) {
	t.Helper()
	buf := make([][2]float64, n)
	filled, ok := s.Stream(buf)
	require.True(t, ok)
	require.Equal(t, n, filled)
}

func newTestSink() *Sink {
	s, _ := NewUnstarted()
	return s
}

func TestSinkStartsSilent(t *testing.T) {
	s := newTestSink()
	assert.Equal(t, NowPlaying{}, s.NowPlaying().Get())
}

func TestSinkAppendPublishesName(t *testing.T) {
	s := newTestSink()
	s.Append(Track{Name: "bell.mp3", Stream: beep.Silence(1000)})

	// drain the pre-existing silence filler plus a margin, in small
	// steps, until the sink transitions onto the appended track.
	for i := 0; i < 500 && s.NowPlaying().Get().Name == ""; i++ {
		pull(t, s, 64)
	}

	assert.Equal(t, "bell.mp3", s.NowPlaying().Get().Name)
}

func TestSinkStopClearsQueueAndFlag(t *testing.T) {
	s := newTestSink()
	s.Append(Track{Name: "a.mp3", Stream: beep.Silence(1000)})
	s.Append(Track{Name: "b.mp3", Stream: beep.Silence(1000)})
	assert.Equal(t, 2, s.QueueLen())

	s.Stop()
	assert.Equal(t, 0, s.QueueLen())
	assert.True(t, s.stop.Load())
}

func TestWatchWaitUnblocksOnChange(t *testing.T) {
	w := newWatch()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	resultCh := make(chan NowPlaying, 1)
	go func() {
		v, err := w.Wait(ctx, w.Get())
		require.NoError(t, err)
		resultCh <- v
	}()

	time.Sleep(10 * time.Millisecond)
	w.set(NowPlaying{Name: "bell.mp3"})

	select {
	case v := <-resultCh:
		assert.Equal(t, "bell.mp3", v.Name)
	case <-time.After(time.Second):
		t.Fatal("Wait did not unblock on value change")
	}
}

func TestWatchSetSameValueDoesNotWake(t *testing.T) {
	w := newWatch()
	w.set(NowPlaying{Name: "x"})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := w.Wait(ctx, NowPlaying{Name: "x"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
