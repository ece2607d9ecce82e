package renderer

import (
	"errors"
	"fmt"
	"time"

	"github.com/Fahien/vkr-go/engine/core"
	"github.com/Fahien/vkr-go/engine/gpu"
)

// DefaultFenceTimeout bounds how long a cycle waits for a slot's previous
// submission. A healthy GPU finishes a frame in milliseconds; five seconds
// of silence means a hang worth surfacing instead of blocking forever.
const DefaultFenceTimeout = uint64(5 * time.Second / time.Nanosecond)

// FrameCycler owns the frame slots and rotates through them, one per chain
// image. Every cycle waits out the returned slot's previous submission
// before handing it over, so holding a slot means its resources are yours.
type FrameCycler struct {
	device  gpu.Device
	surface gpu.Surface
	slots   []*FrameSlot
	current int
	timeout uint64
}

// NewFrameCycler builds one slot per chain image, each with its own render
// target and a descriptor pool of the given capacity.
func NewFrameCycler(device gpu.Device, surface gpu.Surface, sizes gpu.PoolSizes) (*FrameCycler, error) {
	count := surface.ImageCount()
	if count == 0 {
		err := fmt.Errorf("surface reports an empty image chain")
		core.LogError(err.Error())
		return nil, err
	}

	slots := make([]*FrameSlot, 0, count)
	for i := 0; i < count; i++ {
		target, err := surface.CreateRenderTarget(uint32(i))
		if err != nil {
			err = fmt.Errorf("failed to create render target %d: %w", i, err)
			core.LogError(err.Error())
			return nil, err
		}
		slot, err := NewFrameSlot(device, i, target, sizes)
		if err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}

	return &FrameCycler{
		device:  device,
		surface: surface,
		slots:   slots,
		timeout: DefaultFenceTimeout,
	}, nil
}

// Next returns the next slot in rotation, its previous submission waited out
// and a fresh chain image acquired.
//
// core.ErrSurfaceOutOfDate resets the rotation to slot 0 for the rebuilt
// chain and propagates; the caller recreates and skips the frame.
// core.ErrFenceWaitTimeout leaves the rotation where it is; retrying next
// tick and treating it as fatal are both sound, so the caller picks.
func (c *FrameCycler) Next() (*FrameSlot, error) {
	slot := c.slots[c.current]
	if err := slot.acquire(c.surface, c.timeout); err != nil {
		if errors.Is(err, core.ErrSurfaceOutOfDate) {
			c.current = 0
		}
		return nil, err
	}
	return slot, nil
}

// Present queues the slot's image for presentation. The rotation advances
// only when presentation succeeds; a stale surface resets it to slot 0 so
// the rotation restarts cleanly against the rebuilt chain.
func (c *FrameCycler) Present(slot *FrameSlot) error {
	if err := c.surface.Present(slot.imageIndex, slot.finished); err != nil {
		if errors.Is(err, core.ErrSurfaceOutOfDate) {
			c.current = 0
		}
		return err
	}
	c.current = (c.current + 1) % len(c.slots)
	return nil
}

// Recreate rebuilds the image chain and every slot's render target against
// the surface's new geometry. Buffer caches, descriptor pools and sync
// objects are untouched: only what depends on surface size is replaced.
func (c *FrameCycler) Recreate() error {
	if err := c.device.WaitIdle(); err != nil {
		err = fmt.Errorf("failed to wait for device before recreation: %w", err)
		core.LogError(err.Error())
		return err
	}
	if err := c.surface.Recreate(); err != nil {
		err = fmt.Errorf("failed to recreate image chain: %w", err)
		core.LogError(err.Error())
		return err
	}
	for i, slot := range c.slots {
		target, err := c.surface.CreateRenderTarget(uint32(i))
		if err != nil {
			err = fmt.Errorf("failed to recreate render target %d: %w", i, err)
			core.LogError(err.Error())
			return err
		}
		slot.ReplaceRenderTarget(target)
	}
	c.current = 0
	return nil
}

// Current returns the index of the slot the next cycle will hand out.
func (c *FrameCycler) Current() int {
	return c.current
}

// Slots returns the slot rotation.
func (c *FrameCycler) Slots() []*FrameSlot {
	return c.slots
}

// Destroy tears down every slot. The device must be idle.
func (c *FrameCycler) Destroy() {
	for _, slot := range c.slots {
		slot.Destroy()
	}
	c.slots = nil
}
