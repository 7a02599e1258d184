// Package player is the mid-level facade over the Store and the
// audio Sink: it resolves a task or upload into decoded PCM, applies
// the priority-driven stereo panning, and owns the per-task
// cancellation registry the scheduler consults.
package player

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/flac"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/wav"

	"github.com/beni69/csengo/internal/audio"
	"github.com/beni69/csengo/internal/errs"
	"github.com/beni69/csengo/internal/metrics"
	"github.com/beni69/csengo/internal/storage"
)

// Player glues Store + Sink + decoder together and owns the
// cancellation registry the scheduler uses to interrupt waiting
// timers.
type Player struct {
	store *storage.Store
	sink  *audio.Sink

	cancelMu sync.Mutex
	cancels  map[string]chan struct{}
}

func New(store *storage.Store, sink *audio.Sink) *Player {
	return &Player{
		store:   store,
		sink:    sink,
		cancels: make(map[string]chan struct{}),
	}
}

// PlayFile reads fname's bytes from the Store, decodes, and appends
// to the Sink panned by priority. Fails with errs.KindNotFound if the
// file is missing or errs.KindDecodeError if the bytes can't be
// decoded.
func (p *Player) PlayFile(fname string, priority bool) error {
	f, err := p.store.GetFile(fname)
	if err != nil {
		return err
	}
	return p.PlayBuffer(f.Data, fname, priority)
}

// PlayBuffer decodes bytes directly without touching the Store; used
// for one-shot instant plays that never persist a file.
func (p *Player) PlayBuffer(data []byte, name string, priority bool) error {
	streamer, format, err := decode(name, data)
	if err != nil {
		metrics.RecordAudioError()
		return errs.DecodeError(fmt.Sprintf("decode %q", name), err)
	}

	panned := pan(resample(streamer, format.SampleRate), priority)
	p.sink.Append(audio.Track{Name: name, Stream: panned})
	return nil
}

// Playtest appends a one-second 880Hz sine at 0.20 amplitude —
// diagnostic only.
func (p *Player) Playtest() error {
	tone := beep.Take(audio.SampleRate.N(time.Second), newSine(audio.SampleRate, 880, 0.20))
	p.sink.Append(audio.Track{Name: "playtest", Stream: tone})
	return nil
}

// sineStreamer generates an infinite sine wave at freq Hz and the
// given amplitude, sampled at sr.
type sineStreamer struct {
	sr        beep.SampleRate
	freq      float64
	amplitude float64
	pos       int
}

func newSine(sr beep.SampleRate, freq, amplitude float64) *sineStreamer {
	return &sineStreamer{sr: sr, freq: freq, amplitude: amplitude}
}

func (s *sineStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		t := float64(s.pos) / float64(s.sr)
		v := s.amplitude * math.Sin(2*math.Pi*s.freq*t)
		samples[i][0] = v
		samples[i][1] = v
		s.pos++
	}
	return len(samples), true
}

func (s *sineStreamer) Err() error { return nil }

// Stop forwards to the Sink.
func (p *Player) Stop() { p.sink.Stop() }

// NowPlaying returns the latest published now-playing snapshot.
func (p *Player) NowPlaying() audio.NowPlaying { return p.sink.NowPlaying().Get() }

// NowPlayingStream blocks until NowPlaying changes from last, or ctx
// ends.
func (p *Player) NowPlayingStream(ctx context.Context, last audio.NowPlaying) (audio.NowPlaying, error) {
	return p.sink.NowPlaying().Wait(ctx, last)
}

// CreateCancel registers a one-shot cancellation channel for name,
// replacing any existing one. The scheduler's timer goroutine selects
// on the returned channel.
func (p *Player) CreateCancel(name string) <-chan struct{} {
	ch := make(chan struct{})
	p.cancelMu.Lock()
	p.cancels[name] = ch
	p.cancelMu.Unlock()
	return ch
}

// DeleteCancel removes name's entry without signaling it, used by a
// timer that fired naturally rather than being cancelled.
func (p *Player) DeleteCancel(name string) {
	p.cancelMu.Lock()
	delete(p.cancels, name)
	p.cancelMu.Unlock()
}

// Cancel signals name's registered channel, if any, and removes it.
// Idempotent: cancelling an absent or already-cancelled key is a
// no-op returning false. Never blocks.
func (p *Player) Cancel(name string) bool {
	p.cancelMu.Lock()
	ch, ok := p.cancels[name]
	if ok {
		delete(p.cancels, name)
	}
	p.cancelMu.Unlock()

	if !ok {
		return false
	}
	close(ch)
	return true
}

// decode picks a beep decoder by fname's extension. Container format
// decoding itself is treated as an already-available capability; this
// is just the small dispatch across the formats csengo's teacher
// stack pulls in.
func decode(fname string, data []byte) (beep.StreamSeekCloser, beep.Format, error) {
	r := readCloser{bytes.NewReader(data)}
	switch strings.ToLower(filepath.Ext(fname)) {
	case ".wav":
		return wav.Decode(r)
	case ".flac":
		return flac.Decode(r)
	default:
		return mp3.Decode(r)
	}
}

type readCloser struct{ *bytes.Reader }

func (readCloser) Close() error { return nil }

// resample normalizes a decoded stream to the sink's fixed output
// sample rate, mirroring the original's UniformSourceIterator step.
func resample(s beep.Streamer, srcRate beep.SampleRate) beep.Streamer {
	if srcRate == audio.SampleRate {
		return s
	}
	return beep.Resample(4, srcRate, audio.SampleRate, s)
}

// pan applies the panning matrix [0.5, priority ? 0.5 : 0.0]:
// priority plays on both channels, non-priority plays left-channel
// only. This separates the bell from other audio on a shared output.
func pan(s beep.Streamer, priority bool) beep.Streamer {
	rightGain := 0.0
	if priority {
		rightGain = 0.5
	}
	return &panStreamer{inner: s, leftGain: 0.5, rightGain: rightGain}
}

type panStreamer struct {
	inner               beep.Streamer
	leftGain, rightGain float64
}

func (p *panStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = p.inner.Stream(samples)
	for i := 0; i < n; i++ {
		mono := (samples[i][0] + samples[i][1]) / 2
		samples[i][0] = mono * p.leftGain
		samples[i][1] = mono * p.rightGain
	}
	return n, ok
}

func (p *panStreamer) Err() error { return p.inner.Err() }

var _ io.Closer = readCloser{}
