package ports

import (
	"context"
	"errors"
)

// Camera acquisition failures the decoder must distinguish. Both are terminal
// for the current start attempt; the controller never retries on its own.
var (
	ErrPermissionDenied = errors.New("camera permission denied")
	ErrNoDevice         = errors.New("no camera device available")
)

// DecoderOptions configure one continuous decode run.
type DecoderOptions struct {
	FacingMode string // "environment" or "user"
	FrameRate  int    // decode attempts per second
	WindowSize int    // square detection window edge, px
}

// DefaultDecoderOptions mirror the browser scanner's defaults.
func DefaultDecoderOptions() DecoderOptions {
	return DecoderOptions{FacingMode: "environment", FrameRate: 10, WindowSize: 250}
}

// OnDecode receives the raw text of one successfully decoded frame.
type OnDecode func(raw string)

// OnDecodeError receives per-frame decode failures (no symbol in frame).
// These are expected steady-state and callers normally ignore them.
type OnDecodeError func(err error)

// Decoder is the camera/decoder boundary. Start acquires the device and
// begins continuous decoding; Stop fully releases it. After Stop returns,
// no further callbacks fire. The decoder operates on decoded text only and
// is symbology-agnostic (QR, Code128/39, EAN, Data Matrix, Aztec, PDF417).
type Decoder interface {
	Start(ctx context.Context, opts DecoderOptions, onDecode OnDecode, onError OnDecodeError) error
	Pause(retainFrame bool) error
	Resume() error
	Stop() error
}
