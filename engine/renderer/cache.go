package renderer

import (
	"fmt"

	"github.com/Fahien/vkr-go/engine/containers"
	"github.com/Fahien/vkr-go/engine/gpu"
)

// BufferCache maps entity handles to GPU buffers. Entries are created
// lazily on first request and live until the cache is destroyed; entities
// never hold references back to their buffers.
type BufferCache[T any] struct {
	device  gpu.Device
	usage   gpu.BufferUsage
	buffers map[containers.Handle[T]]*GPUBuffer
}

// NewBufferCache creates an empty cache whose buffers all share one usage.
func NewBufferCache[T any](device gpu.Device, usage gpu.BufferUsage) *BufferCache[T] {
	return &BufferCache[T]{
		device:  device,
		usage:   usage,
		buffers: make(map[containers.Handle[T]]*GPUBuffer),
	}
}

// GetOrCreate returns the buffer for handle, creating a zero-initialized
// one of size bytes when the handle has none yet. The second return value
// reports whether this call created the entry, so callers can run one-time
// uploads exactly once.
func (c *BufferCache[T]) GetOrCreate(handle containers.Handle[T], size uint64) (*GPUBuffer, bool, error) {
	if buffer, ok := c.buffers[handle]; ok {
		return buffer, false, nil
	}
	buffer, err := NewGPUBuffer(c.device, size, c.usage)
	if err != nil {
		return nil, false, err
	}
	if err := buffer.Upload(make([]byte, size)); err != nil {
		buffer.Destroy()
		return nil, false, err
	}
	c.buffers[handle] = buffer
	return buffer, true, nil
}

// MustGet returns the buffer for handle. Looking up a handle before any
// GetOrCreate for it is a bug in the caller, so a miss panics rather than
// limping on with a nil buffer.
func (c *BufferCache[T]) MustGet(handle containers.Handle[T]) *GPUBuffer {
	buffer, ok := c.buffers[handle]
	if !ok {
		panic(fmt.Sprintf("no %s buffer cached for handle %d", c.usage, handle.ID()))
	}
	return buffer
}

// Len returns the number of cached buffers.
func (c *BufferCache[T]) Len() int {
	return len(c.buffers)
}

// Destroy releases every cached buffer and empties the cache.
func (c *BufferCache[T]) Destroy() {
	for _, buffer := range c.buffers {
		buffer.Destroy()
	}
	c.buffers = make(map[containers.Handle[T]]*GPUBuffer)
}
