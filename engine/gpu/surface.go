package gpu

// Surface owns the presentable image chain. Acquire and Present are the two
// points where the engine meets the presentation engine, and the two points
// that can report core.ErrSurfaceOutOfDate. Neither retries internally: the
// caller rebuilds the chain and skips the frame.
type Surface interface {
	Extent() Extent2D
	// ImageCount returns the image chain length. Frame slots are laid out
	// one per image.
	ImageCount() int
	// AcquireNextImage returns the index of the next presentable image,
	// signaling the semaphore when the image is ready to be rendered to.
	AcquireNextImage(timeoutNs uint64, signal Semaphore) (uint32, error)
	// Present queues the image for presentation once wait signals.
	Present(imageIndex uint32, wait Semaphore) error
	// Recreate destroys and rebuilds the image chain at the current surface
	// size. The device must be idle. ImageCount is stable across recreation.
	Recreate() error
	// CreateRenderTarget builds the attachments and framebuffer rendering
	// into the given chain image. Targets are invalidated by Recreate and
	// must be rebuilt.
	CreateRenderTarget(imageIndex uint32) (RenderTarget, error)
	Destroy()
}

// RenderTarget is the set of attachments one frame slot renders into: the
// chain image plus the offscreen geometry attachments the presentation
// subpass reads.
type RenderTarget interface {
	Extent() Extent2D
	Destroy()
}
