// Package frame provides raw CAN frame sources: a live SocketCAN listener
// and a deterministic log-replay backend. Both feed the same decode path.
package frame

import (
	"context"
	"time"
)

// Frame is a raw bus frame: a 29-bit extended identifier and 8 data bytes.
// Frames are ephemeral, consumed as they arrive and never persisted.
type Frame struct {
	ID   uint32
	Data [8]byte

	// CaptureTime is when the backend saw the frame. Readings decoded from
	// this frame prefer it over the decode time.
	CaptureTime time.Time
}

// EmitFunc receives frames as they arrive. It must not block.
type EmitFunc func(Frame)

// Source is a push-based frame backend. Swapping implementations must not
// change downstream behavior.
type Source interface {
	Init(ctx context.Context) error
	Run(ctx context.Context, emit EmitFunc)
	Stop()
}
