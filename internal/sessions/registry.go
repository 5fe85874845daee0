// Package sessions tracks live scan sessions by id. Sessions idle past the
// TTL are evicted, and eviction force-closes the controller so an abandoned
// browser tab can never keep the camera held.
package sessions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"lanyard/internal/ports"
	"lanyard/internal/services/leadgate"
	"lanyard/internal/services/session"
)

// FrameSource accepts decoded payloads relayed from the hosting UI. The
// replay decoder implements it; a decoder that sources frames itself need
// not.
type FrameSource interface {
	Feed(raw string) error
}

// DecoderFactory builds one decoder per session; the camera handle is owned
// by exactly one controller.
type DecoderFactory func() ports.Decoder

// Entry is one live session.
type Entry struct {
	ID     string
	UserID string
	Ctrl   *session.Controller
	Source FrameSource // nil when the decoder is not frame-fed
}

type Registry struct {
	gate     *leadgate.Gate
	decoders DecoderFactory
	sessions *cache.Cache
	log      zerolog.Logger
}

func New(gate *leadgate.Gate, decoders DecoderFactory, ttl time.Duration, log zerolog.Logger) *Registry {
	var store *cache.Cache
	if ttl > 0 {
		store = cache.New(ttl, ttl/2)
	} else {
		store = cache.New(cache.NoExpiration, 0)
	}
	r := &Registry{
		gate:     gate,
		decoders: decoders,
		sessions: store,
		log:      log.With().Str("component", "sessions").Logger(),
	}
	store.OnEvicted(func(id string, v interface{}) {
		entry := v.(*Entry)
		entry.Ctrl.Close()
		r.log.Info().Str("session_id", id).Str("user_id", entry.UserID).Msg("session evicted, camera released")
	})
	return r
}

// Create registers a new session for the user and starts its decoder. A
// camera acquisition failure still yields a registered session: the caller
// reads the Error state and its message from the entry, and may retry via
// the controller.
func (r *Registry) Create(ctx context.Context, userID string, opts ports.DecoderOptions) *Entry {
	dec := r.decoders()
	entry := &Entry{
		ID:     uuid.NewString(),
		UserID: userID,
		Ctrl:   session.New(userID, dec, r.gate, r.log),
	}
	if fs, ok := dec.(FrameSource); ok {
		entry.Source = fs
	}
	if err := entry.Ctrl.Start(ctx, opts); err != nil {
		r.log.Warn().Err(err).Str("session_id", entry.ID).Msg("session created with camera error")
	}
	r.sessions.Set(entry.ID, entry, cache.DefaultExpiration)
	return entry
}

// Get returns the session and slides its expiry.
func (r *Registry) Get(id string) (*Entry, bool) {
	v, ok := r.sessions.Get(id)
	if !ok {
		return nil, false
	}
	entry := v.(*Entry)
	r.sessions.SetDefault(id, entry)
	return entry, true
}

// Remove drops the session; eviction closes the controller.
func (r *Registry) Remove(id string) {
	r.sessions.Delete(id)
}

// Shutdown closes every live session. Delete fires the eviction hook, which
// releases the camera.
func (r *Registry) Shutdown() {
	for id := range r.sessions.Items() {
		r.sessions.Delete(id)
	}
}
