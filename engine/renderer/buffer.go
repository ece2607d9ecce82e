package renderer

import (
	"fmt"

	"github.com/Fahien/vkr-go/engine/core"
	"github.com/Fahien/vkr-go/engine/gpu"
)

// GPUBuffer owns a device allocation and resizes it to fit whatever is
// uploaded. Size always reports the length of the last successful upload,
// so equal-sized refreshes reuse the allocation in place.
type GPUBuffer struct {
	device  gpu.Device
	backing gpu.Buffer
	size    uint64
	usage   gpu.BufferUsage
}

// NewGPUBuffer allocates a buffer sized for sizeHint bytes. The allocation
// counts as holding sizeHint so the first upload of exactly that many bytes
// writes in place.
func NewGPUBuffer(device gpu.Device, sizeHint uint64, usage gpu.BufferUsage) (*GPUBuffer, error) {
	backing, err := device.CreateBuffer(sizeHint, usage)
	if err != nil {
		err = fmt.Errorf("failed to allocate %s buffer of %d bytes: %w", usage, sizeHint, err)
		core.LogError(err.Error())
		return nil, err
	}
	return &GPUBuffer{device: device, backing: backing, size: sizeHint, usage: usage}, nil
}

// Size returns the byte size of the buffer contents.
func (b *GPUBuffer) Size() uint64 {
	return b.size
}

// Backing returns the device buffer descriptors and bind calls point at.
// The value changes whenever an upload resizes the allocation.
func (b *GPUBuffer) Backing() gpu.Buffer {
	return b.backing
}

// Upload copies data into the buffer. A payload whose size differs from the
// current contents destroys the backing allocation and recreates it at the
// new size before copying, so a resize never leaves a partial write behind.
// The caller guarantees the device is done reading the old contents.
func (b *GPUBuffer) Upload(data []byte) error {
	size := uint64(len(data))
	if size != b.size {
		if b.backing != nil {
			b.backing.Destroy()
			b.backing = nil
		}
		b.size = 0
		backing, err := b.device.CreateBuffer(size, b.usage)
		if err != nil {
			err = fmt.Errorf("failed to resize %s buffer to %d bytes: %w", b.usage, size, err)
			core.LogError(err.Error())
			return err
		}
		b.backing = backing
	}
	if err := b.backing.Write(data); err != nil {
		err = fmt.Errorf("failed to upload %d bytes to %s buffer: %w", size, b.usage, err)
		core.LogError(err.Error())
		return err
	}
	b.size = size
	return nil
}

// Destroy releases the device allocation. Safe to call more than once.
func (b *GPUBuffer) Destroy() {
	if b.backing != nil {
		b.backing.Destroy()
		b.backing = nil
	}
	b.size = 0
}
