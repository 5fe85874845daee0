// Package decoder implements the camera/decoder boundary with a replay
// decoder: decoded payloads are fed in (by the HTTP adapter relaying the
// browser scanner, or by tests) and delivered to the session at the
// configured frame rate. The physical camera lives client-side; this adapter
// reproduces its lifecycle semantics server-side.
package decoder

import (
	"context"
	"errors"
	"sync"
	"time"

	"lanyard/internal/ports"
)

var (
	// ErrNoSymbol is the per-frame decode failure: a tick fired with no
	// pending payload. Expected steady-state, silently ignored upstream.
	ErrNoSymbol = errors.New("no symbol found in frame")

	ErrNotRunning = errors.New("decoder not running")
	ErrQueueFull  = errors.New("decode queue full")
)

const frameBuffer = 64

// Replay is a channel-fed ports.Decoder. One successful Start owns the
// "camera" until Stop; Stop waits for the pump goroutine so that no
// callbacks fire after it returns.
type Replay struct {
	failWith error

	mu      sync.Mutex
	running bool
	paused  bool
	frames  chan string
	done    chan struct{}
	wg      sync.WaitGroup
}

type Option func(*Replay)

// FailWith makes Start fail with the given error, simulating camera
// acquisition failures (ports.ErrPermissionDenied, ports.ErrNoDevice).
func FailWith(err error) Option {
	return func(r *Replay) { r.failWith = err }
}

func NewReplay(opts ...Option) *Replay {
	r := &Replay{}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Replay) Start(ctx context.Context, opts ports.DecoderOptions, onDecode ports.OnDecode, onError ports.OnDecodeError) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	if r.running {
		return errors.New("decoder already started")
	}
	rate := opts.FrameRate
	if rate <= 0 {
		rate = ports.DefaultDecoderOptions().FrameRate
	}
	r.running = true
	r.paused = false
	r.frames = make(chan string, frameBuffer)
	r.done = make(chan struct{})
	r.wg.Add(1)
	go r.pump(ctx, time.Second/time.Duration(rate), onDecode, onError)
	return nil
}

// pump delivers at most one payload per tick, mimicking the fixed decode
// cadence of the camera integration.
func (r *Replay) pump(ctx context.Context, interval time.Duration, onDecode ports.OnDecode, onError ports.OnDecodeError) {
	defer r.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.mu.Lock()
			paused := r.paused
			frames := r.frames
			r.mu.Unlock()
			if paused {
				continue
			}
			select {
			case raw := <-frames:
				onDecode(raw)
			default:
				if onError != nil {
					onError(ErrNoSymbol)
				}
			}
		}
	}
}

// Feed queues one decoded payload for delivery.
func (r *Replay) Feed(raw string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return ErrNotRunning
	}
	select {
	case r.frames <- raw:
		return nil
	default:
		return ErrQueueFull
	}
}

// Pause suspends delivery. Queued payloads are retained regardless of
// retainFrame, which only controls the frozen video frame client-side.
func (r *Replay) Pause(retainFrame bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return ErrNotRunning
	}
	r.paused = true
	return nil
}

func (r *Replay) Resume() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return ErrNotRunning
	}
	r.paused = false
	return nil
}

// Stop releases the decoder and waits for the pump, guaranteeing no decode
// callback fires after Stop returns.
func (r *Replay) Stop() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	close(r.done)
	r.mu.Unlock()

	r.wg.Wait()
	return nil
}
