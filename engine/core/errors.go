package core

import (
	"errors"
)

// Sentinels matched with errors.Is throughout the engine.
//
// ErrSurfaceOutOfDate is the only recoverable condition: the caller rebuilds
// the image chain and retries on the next frame. Nothing retries internally.
var (
	ErrSurfaceOutOfDate = errors.New("surface out of date, image chain must be rebuilt")
	ErrFenceWaitTimeout = errors.New("fence wait timed out")
	ErrPoolExhausted    = errors.New("descriptor pool exhausted")
	ErrDeviceLost       = errors.New("device lost")
)
