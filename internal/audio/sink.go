// Package audio implements the Sink: the single producer of PCM
// samples to the OS audio device, fed by an in-memory FIFO of Tracks.
// It owns one dedicated blocking worker thread via gopxl/beep's
// speaker backend and is never driven from the cooperative runtime
// that handles HTTP and timers.
package audio

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
	"github.com/rs/zerolog/log"

	"github.com/beni69/csengo/internal/metrics"
)

// SampleRate is the fixed output sample rate the sink's speaker
// backend is initialized at; all tracks are resampled to it before
// being appended (see internal/player).
const SampleRate = beep.SampleRate(44100)

// silenceFillerDuration bounds append-to-audible latency to at most
// this long while letting the backend keep pulling samples instead of
// underrunning.
const silenceFillerDuration = 500 * time.Millisecond

// stopCheckPeriod is how often an appended track's stop-flag wrapper
// re-checks whether Stop() was called.
const stopCheckPeriod = 420 * time.Millisecond

// Track is one queued unit of audio. Name is empty for the silence
// filler, which is invisible to NowPlaying.
type Track struct {
	Name   string
	Stream beep.Streamer
}

// NowPlaying is the latest published playback state; Name is empty
// when nothing is playing.
type NowPlaying struct {
	Name string
}

var speakerOnce sync.Once
var speakerErr error

// Sink is the queue-backed audio consumer. Exactly one thread (the
// speaker backend's own callback) ever calls Stream; Append and Stop
// may be called from any number of goroutines.
type Sink struct {
	mu    sync.Mutex
	queue []Track

	stop atomic.Bool

	current        Track
	currentStarted time.Time
	sinceCheck     int // samples produced since the last stop-flag check

	np *watch
}

// New initializes the speaker backend (once per process, matching the
// teacher's speakerOnce idiom for gopxl/beep) and starts the sink
// playing silence.
func New() (*Sink, error) {
	speakerOnce.Do(func() {
		bufSize := SampleRate.N(time.Second / 10)
		speakerErr = speaker.Init(SampleRate, bufSize)
	})
	if speakerErr != nil {
		return nil, speakerErr
	}

	s := &Sink{
		current: silenceTrack(),
		np:      newWatch(),
	}
	speaker.Play(s)
	return s, nil
}

// NewUnstarted builds a Sink without touching the speaker backend, for
// tests that exercise the queue/pan/cancel logic without an audio
// device.
func NewUnstarted() (*Sink, error) {
	return &Sink{current: silenceTrack(), np: newWatch()}, nil
}

// NowPlaying returns the observable now-playing stream. Many readers,
// one writer (the sink's own Stream callback).
func (s *Sink) NowPlaying() *watch { return s.np }

// Append pushes a track onto the queue, resuming playback if it had
// been stopped. The track's stream is wrapped so it periodically
// checks the stop flag and ends itself when set.
func (s *Sink) Append(t Track) {
	s.stop.Store(false)
	t.Stream = &stopCheckingStreamer{inner: t.Stream, sink: s}

	s.mu.Lock()
	s.queue = append(s.queue, t)
	n := len(s.queue)
	s.mu.Unlock()

	log.Debug().Str("track", t.Name).Int("queue_len", n).Msg("appended track to sink")
}

// Stop clears the queue and sets the stop flag; the currently playing
// track observes it within one stopCheckPeriod and ends, after which
// the sink transitions to silence. The sink remains usable afterward.
func (s *Sink) Stop() {
	s.mu.Lock()
	s.queue = nil
	s.mu.Unlock()
	s.stop.Store(true)
}

// QueueLen reports the current queue depth, for the queue-size gauge.
func (s *Sink) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// silenceTrack is re-installed every time the queue is found empty;
// it is intentionally short-lived rather than infinite so a track
// appended while it is playing is picked up within one filler's
// duration instead of waiting indefinitely.
func silenceTrack() Track {
	return Track{Stream: beep.Silence(SampleRate.N(silenceFillerDuration))}
}

// Stream implements beep.Streamer: this is the sample-producing
// function the speaker backend drives, corresponding to the Output
// iterator in the reference implementation. It must never report
// end-of-stream, since the backend would tear down the output on
// underrun.
func (s *Sink) Stream(samples [][2]float64) (n int, ok bool) {
	filled := 0
	for filled < len(samples) {
		got, alive := s.current.Stream.Stream(samples[filled:])
		filled += got

		if alive {
			continue
		}

		// current track ended.
		if s.current.Name != "" {
			if !s.currentStarted.IsZero() {
				played := time.Since(s.currentStarted)
				log.Debug().
					Str("track", s.current.Name).
					Dur("played", played).
					Msg("end of track")
				metrics.RecordPlaybackSeconds(s.current.Name, played.Seconds())
			}
		}

		s.mu.Lock()
		var next Track
		hadNext := false
		if len(s.queue) > 0 {
			next = s.queue[0]
			s.queue = s.queue[1:]
			hadNext = true
		}
		qlen := len(s.queue)
		s.mu.Unlock()

		if hadNext {
			s.current = next
			if s.current.Name != "" {
				s.currentStarted = time.Now()
				log.Info().Str("track", s.current.Name).Msg("playing")
			}
		} else {
			s.current = silenceTrack()
			s.currentStarted = time.Time{}
		}

		log.Trace().Int("queue_len", qlen).Msg("queue size")
		metrics.SetQueueSize(qlen)
		metrics.SetPlaybackActive(s.current.Name != "")
		s.np.set(NowPlaying{Name: s.current.Name})
	}

	return filled, true
}

func (s *Sink) Err() error { return nil }

// stopCheckingStreamer wraps a track's stream so that roughly every
// stopCheckPeriod it checks the sink's stop flag; once set, it ends
// the stream early, which cascades into the sink's silence transition.
type stopCheckingStreamer struct {
	inner beep.Streamer
	sink  *Sink
}

func (w *stopCheckingStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	threshold := int(SampleRate.N(stopCheckPeriod))

	n, ok = w.inner.Stream(samples)
	w.sink.sinceCheck += n

	if w.sink.sinceCheck >= threshold {
		w.sink.sinceCheck = 0
		if w.sink.stop.Load() {
			return n, false
		}
	}

	return n, ok
}

func (w *stopCheckingStreamer) Err() error { return w.inner.Err() }
