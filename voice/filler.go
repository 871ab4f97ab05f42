// Package voice holds speech-side helpers for the conversation runtime.
// The transduction itself (STT/TTS) is an external service reached through
// the room; this package only shapes what gets spoken and when.
package voice

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lynkup/aitas/internal/metrics"
	"github.com/lynkup/aitas/room"
)

// Default filler phrases spoken while a long-latency operation runs.
var fillerPhrases = []string{
	"Okay, just checking those numbers now...",
	"Hmm, let me see what the data says...",
	"Analyzing the readings...",
	"Working on the diagnosis for you...",
	"Just a moment while I process this...",
}

// Filler speaks short placeholder phrases so the conversation doesn't go
// silent during a long operation. It is cooperatively cancellable: Stop
// signals the loop and waits for it, bounded.
type Filler struct {
	speaker   room.Speaker
	delay     time.Duration
	backoff   time.Duration
	phrases   []string
	collector *metrics.Collector
	logger    *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// NewFiller creates a filler loop. delay is the pause before each phrase
// (the loop always waits first so it never talks right over the user);
// backoff is the shorter retry pause after a failed utterance.
func NewFiller(speaker room.Speaker, delay, backoff time.Duration, collector *metrics.Collector, logger *zap.Logger) *Filler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if delay <= 0 {
		delay = 8 * time.Second
	}
	if backoff <= 0 {
		backoff = 5 * time.Second
	}
	return &Filler{
		speaker:   speaker,
		delay:     delay,
		backoff:   backoff,
		phrases:   fillerPhrases,
		collector: collector,
		logger:    logger.With(zap.String("component", "filler")),
	}
}

// Start launches the loop. Calling Start on a running filler is a no-op.
func (f *Filler) Start(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started {
		return
	}
	ctx, f.cancel = context.WithCancel(ctx)
	f.done = make(chan struct{})
	f.started = true
	go f.run(ctx)
}

func (f *Filler) run(ctx context.Context) {
	defer close(f.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(f.delay):
		}
		// re-check after waking so we never speak right after a stop
		if ctx.Err() != nil {
			return
		}

		phrase := f.phrases[rand.Intn(len(f.phrases))]
		f.logger.Info("speaking filler", zap.String("phrase", phrase))
		f.collector.IncFillerSpoken()
		if err := f.speaker.Say(ctx, phrase, true); err != nil {
			if ctx.Err() != nil {
				return
			}
			f.logger.Error("filler utterance failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(f.backoff):
			}
		}
	}
}

// Stop signals the loop and waits for it to finish, bounded by wait. A slow
// stop is logged, never an error; the filler not terminating promptly must
// not fail the surrounding operation.
func (f *Filler) Stop(wait time.Duration) {
	f.mu.Lock()
	if !f.started {
		f.mu.Unlock()
		return
	}
	cancel, done := f.cancel, f.done
	f.started = false
	f.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(wait):
		f.logger.Warn("filler loop did not stop promptly")
	}
}
