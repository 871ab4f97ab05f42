package voice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

// fakeSpeaker records spoken phrases.
type fakeSpeaker struct {
	mu     sync.Mutex
	spoken []string
	err    error
}

func (s *fakeSpeaker) Say(ctx context.Context, text string, allowInterruptions bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.spoken = append(s.spoken, text)
	return nil
}

func (s *fakeSpeaker) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.spoken)
}

func TestFiller_WaitsBeforeSpeaking(t *testing.T) {
	defer goleak.VerifyNone(t)

	speaker := &fakeSpeaker{}
	f := NewFiller(speaker, 100*time.Millisecond, 50*time.Millisecond, nil, nil)

	f.Start(context.Background())
	assert.Equal(t, 0, speaker.count(), "must not speak immediately")

	assert.Eventually(t, func() bool { return speaker.count() >= 2 },
		2*time.Second, 10*time.Millisecond)

	f.Stop(time.Second)
}

func TestFiller_StopBeforeFirstPhrase(t *testing.T) {
	defer goleak.VerifyNone(t)

	speaker := &fakeSpeaker{}
	f := NewFiller(speaker, time.Hour, time.Second, nil, nil)

	f.Start(context.Background())
	f.Stop(time.Second)

	assert.Equal(t, 0, speaker.count())
}

func TestFiller_NoSpeechAfterStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	speaker := &fakeSpeaker{}
	f := NewFiller(speaker, 30*time.Millisecond, 10*time.Millisecond, nil, nil)

	f.Start(context.Background())
	assert.Eventually(t, func() bool { return speaker.count() >= 1 },
		2*time.Second, 5*time.Millisecond)
	f.Stop(time.Second)

	after := speaker.count()
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, after, speaker.count(), "no speech events after stop")
}

func TestFiller_RetriesAfterSpeakError(t *testing.T) {
	defer goleak.VerifyNone(t)

	speaker := &fakeSpeaker{err: errors.New("tts unavailable")}
	f := NewFiller(speaker, 20*time.Millisecond, 20*time.Millisecond, nil, nil)

	f.Start(context.Background())
	time.Sleep(150 * time.Millisecond)

	speaker.mu.Lock()
	speaker.err = nil
	speaker.mu.Unlock()

	assert.Eventually(t, func() bool { return speaker.count() >= 1 },
		2*time.Second, 5*time.Millisecond)
	f.Stop(time.Second)
}

func TestFiller_StartTwiceIsNoop(t *testing.T) {
	defer goleak.VerifyNone(t)

	speaker := &fakeSpeaker{}
	f := NewFiller(speaker, time.Hour, time.Second, nil, nil)

	f.Start(context.Background())
	f.Start(context.Background())
	f.Stop(time.Second)
}
