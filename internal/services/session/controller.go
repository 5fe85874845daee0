// Package session owns one badge-scanning session: the decoder lifecycle,
// the per-session seen-set, the bounded result feed and the counters the
// hosting UI renders.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"lanyard/internal/domain"
	"lanyard/internal/ports"
	"lanyard/internal/services/leadgate"
	"lanyard/internal/sniff"
)

// commitTimeout bounds one persistence round-trip. Commits are detached from
// the session context: stopping must not cancel an in-flight insert and leave
// a half-written lead behind.
const commitTimeout = 10 * time.Second

var (
	ErrNotActive     = errors.New("session not active")
	ErrNotPaused     = errors.New("session not paused")
	ErrAlreadyActive = errors.New("session already running")
)

// User-facing camera failure messages, distinguishing the two terminal
// acquisition failures.
const (
	msgPermissionDenied = "Kamera-Zugriff verweigert. Bitte Kamerafreigabe erteilen."
	msgNoDevice         = "Keine Kamera gefunden. Bitte ein Gerät mit Kamera verwenden."
)

// Controller drives one scan session through
// Idle -> Starting -> Active <-> Paused -> Stopping -> Idle, feeding every
// decoded payload through dedup, sniffing and the persistence gate.
type Controller struct {
	userID string
	dec    ports.Decoder
	gate   *leadgate.Gate
	log    zerolog.Logger

	mu         sync.Mutex
	state      domain.SessionState
	cameraErr  string
	seen       *seenSet
	feed       *feed
	created    int
	duplicates int
	cancel     context.CancelFunc

	inflight sync.WaitGroup
}

func New(userID string, dec ports.Decoder, gate *leadgate.Gate, log zerolog.Logger) *Controller {
	return &Controller{
		userID: userID,
		dec:    dec,
		gate:   gate,
		log:    log.With().Str("component", "session").Str("user_id", userID).Logger(),
		state:  domain.StateIdle,
		seen:   newSeenSet(),
		feed:   newFeed(),
	}
}

// Start acquires the camera and begins continuous decoding. A new start
// begins a fresh session: seen-set, feed and counters are cleared. Camera
// acquisition failures leave the controller in the Error state with a
// user-facing message; the caller must retry explicitly.
func (c *Controller) Start(ctx context.Context, opts ports.DecoderOptions) error {
	c.mu.Lock()
	switch c.state {
	case domain.StateIdle, domain.StateError:
	default:
		c.mu.Unlock()
		return ErrAlreadyActive
	}
	c.state = domain.StateStarting
	c.cameraErr = ""
	c.seen.reset()
	c.feed.reset()
	c.created, c.duplicates = 0, 0
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	c.mu.Unlock()

	err := c.dec.Start(runCtx, opts, c.onDecode, c.onDecodeError)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		cancel()
		c.state = domain.StateError
		switch {
		case errors.Is(err, ports.ErrPermissionDenied):
			c.cameraErr = msgPermissionDenied
		case errors.Is(err, ports.ErrNoDevice):
			c.cameraErr = msgNoDevice
		default:
			c.cameraErr = fmt.Sprintf("Kamera konnte nicht gestartet werden: %s", err)
		}
		c.log.Warn().Err(err).Msg("camera start failed")
		return err
	}
	c.state = domain.StateActive
	c.log.Info().Int("frame_rate", opts.FrameRate).Str("facing", opts.FacingMode).Msg("session started")
	return nil
}

// Pause freezes the camera feed; no new payloads are processed until Resume.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != domain.StateActive {
		return ErrNotActive
	}
	if err := c.dec.Pause(true); err != nil {
		return err
	}
	c.state = domain.StatePaused
	return nil
}

func (c *Controller) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != domain.StatePaused {
		return ErrNotPaused
	}
	if err := c.dec.Resume(); err != nil {
		return err
	}
	c.state = domain.StateActive
	return nil
}

// Stop releases the camera. No decode callbacks fire after Stop returns;
// commits already in flight still complete and land in the feed.
func (c *Controller) Stop() error {
	c.mu.Lock()
	switch c.state {
	case domain.StateActive, domain.StatePaused:
	default:
		c.mu.Unlock()
		return ErrNotActive
	}
	c.state = domain.StateStopping
	cancel := c.cancel
	c.mu.Unlock()

	err := c.dec.Stop()
	if cancel != nil {
		cancel()
	}

	c.mu.Lock()
	c.state = domain.StateIdle
	c.mu.Unlock()
	c.log.Info().Msg("session stopped")
	return err
}

// Close force-releases the camera from any state. Used on teardown and
// registry eviction; the camera must never outlive its controller.
func (c *Controller) Close() {
	c.mu.Lock()
	state := c.state
	cancel := c.cancel
	c.state = domain.StateIdle
	c.mu.Unlock()

	switch state {
	case domain.StateStarting, domain.StateActive, domain.StatePaused:
		if err := c.dec.Stop(); err != nil {
			c.log.Warn().Err(err).Msg("camera release on close failed")
		}
	}
	if cancel != nil {
		cancel()
	}
}

// Reset clears the feed and the seen-set without touching camera state or
// durable storage, so it works while Active or Paused. A previously failed
// payload can be rescanned afterwards.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen.reset()
	c.feed.reset()
}

// State returns the lifecycle state and, in the Error state, the camera
// failure message.
func (c *Controller) State() (domain.SessionState, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.cameraErr
}

// Feed returns the bounded result feed, newest first.
func (c *Controller) Feed() []domain.ScanResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.feed.snapshot()
}

func (c *Controller) Counters() domain.SessionCounters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.SessionCounters{
		Created:    c.created,
		Duplicates: c.duplicates,
		Processed:  c.seen.size(),
	}
}

// onDecode handles one successfully decoded frame. The check-then-mark on
// the seen-set happens under the controller lock, so a payload is processed
// at most once per session. The persistence round-trip runs detached so the
// next frame is never blocked on storage latency; the feed therefore orders
// by completion, not decode order.
func (c *Controller) onDecode(raw string) {
	c.mu.Lock()
	if c.state != domain.StateActive {
		c.mu.Unlock()
		return
	}
	if c.seen.seen(raw) {
		c.mu.Unlock()
		return
	}
	c.seen.mark(raw)
	c.mu.Unlock()

	contact := sniff.Parse(raw)

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), commitTimeout)
		defer cancel()
		outcome := c.gate.Commit(ctx, contact, c.userID)

		result := domain.ScanResult{
			ID:        uuid.NewString(),
			Contact:   contact,
			Timestamp: time.Now(),
		}
		switch {
		case outcome.Created:
			result.Status = domain.ScanSuccess
			result.Message = fmt.Sprintf("%s gespeichert", displayName(contact))
		case outcome.Duplicate:
			result.Status = domain.ScanDuplicate
			result.Message = fmt.Sprintf("%s ist bereits erfasst", displayName(contact))
		default:
			result.Status = domain.ScanError
			result.Message = fmt.Sprintf("Speichern fehlgeschlagen: %s", outcome.Err)
		}

		c.mu.Lock()
		switch result.Status {
		case domain.ScanSuccess:
			c.created++
		case domain.ScanDuplicate:
			c.duplicates++
		}
		c.feed.push(result)
		c.mu.Unlock()
	}()
}

// onDecodeError receives per-frame "no symbol found" failures. Expected
// steady-state at typical frame rates; nothing to do.
func (c *Controller) onDecodeError(err error) {
	c.log.Trace().Err(err).Msg("frame without symbol")
}

func displayName(c domain.ParsedContact) string {
	if c.Name != "" {
		return c.Name
	}
	if c.Email != "" {
		return c.Email
	}
	return "Kontakt"
}
