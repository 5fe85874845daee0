package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lanyard/internal/adapters/decoder"
	"lanyard/internal/adapters/memory"
	"lanyard/internal/domain"
	"lanyard/internal/ports"
	"lanyard/internal/services/leadgate"
)

func newRegistry(t *testing.T, ttl time.Duration) *Registry {
	t.Helper()
	gate := leadgate.New(memory.NewLeadStore(), zerolog.Nop())
	factory := func() ports.Decoder { return decoder.NewReplay() }
	return New(gate, factory, ttl, zerolog.Nop())
}

func TestRegistry_CreateAndGet(t *testing.T) {
	r := newRegistry(t, time.Minute)
	defer r.Shutdown()

	entry := r.Create(context.Background(), "user-1", ports.DefaultDecoderOptions())
	require.NotEmpty(t, entry.ID)
	require.NotNil(t, entry.Source, "replay decoder must be frame-fed")

	state, _ := entry.Ctrl.State()
	assert.Equal(t, domain.StateActive, state)

	got, ok := r.Get(entry.ID)
	require.True(t, ok)
	assert.Same(t, entry, got)

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestRegistry_CameraErrorStillRegistered(t *testing.T) {
	gate := leadgate.New(memory.NewLeadStore(), zerolog.Nop())
	factory := func() ports.Decoder { return decoder.NewReplay(decoder.FailWith(ports.ErrNoDevice)) }
	r := New(gate, factory, time.Minute, zerolog.Nop())
	defer r.Shutdown()

	entry := r.Create(context.Background(), "user-1", ports.DefaultDecoderOptions())
	got, ok := r.Get(entry.ID)
	require.True(t, ok)
	state, msg := got.Ctrl.State()
	assert.Equal(t, domain.StateError, state)
	assert.NotEmpty(t, msg)
}

func TestRegistry_RemoveClosesController(t *testing.T) {
	r := newRegistry(t, time.Minute)
	entry := r.Create(context.Background(), "user-1", ports.DefaultDecoderOptions())

	r.Remove(entry.ID)
	_, ok := r.Get(entry.ID)
	assert.False(t, ok)
	state, _ := entry.Ctrl.State()
	assert.Equal(t, domain.StateIdle, state)
	// Decoder is released: feeding frames must fail.
	assert.Error(t, entry.Source.Feed("payload"))
}

func TestRegistry_ExpiryReleasesCamera(t *testing.T) {
	r := newRegistry(t, 20*time.Millisecond)
	entry := r.Create(context.Background(), "user-1", ports.DefaultDecoderOptions())

	assert.Eventually(t, func() bool {
		if _, ok := r.Get(entry.ID); ok {
			return false
		}
		state, _ := entry.Ctrl.State()
		return state == domain.StateIdle
	}, time.Second, 10*time.Millisecond)
}

func TestRegistry_Shutdown(t *testing.T) {
	r := newRegistry(t, time.Minute)
	a := r.Create(context.Background(), "user-1", ports.DefaultDecoderOptions())
	b := r.Create(context.Background(), "user-2", ports.DefaultDecoderOptions())

	r.Shutdown()
	for _, e := range []*Entry{a, b} {
		state, _ := e.Ctrl.State()
		assert.Equal(t, domain.StateIdle, state)
	}
}
