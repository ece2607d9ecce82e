package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/Fahien/vkr-go/engine/core"
	"github.com/Fahien/vkr-go/engine/gpu"
)

var _ gpu.Buffer = (*Buffer)(nil)

// Buffer implements gpu.Buffer with host-visible, host-coherent memory that
// stays mapped for the buffer's whole lifetime. Uniform and geometry data
// both refresh every frame, so the extra device-local copy a staging path
// would buy is not worth its complexity here.
type Buffer struct {
	device *Device
	handle vk.Buffer
	memory vk.DeviceMemory
	mapped unsafe.Pointer
	size   uint64
}

func bufferUsageFlags(usage gpu.BufferUsage) vk.BufferUsageFlags {
	switch usage {
	case gpu.BufferUsageVertex:
		return vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit)
	case gpu.BufferUsageIndex:
		return vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit)
	default:
		return vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit)
	}
}

// CreateBuffer allocates a mapped host-visible buffer of at least size
// bytes.
func (d *Device) CreateBuffer(size uint64, usage gpu.BufferUsage) (gpu.Buffer, error) {
	return d.newBuffer(size, bufferUsageFlags(usage))
}

func (d *Device) newBuffer(size uint64, usage vk.BufferUsageFlags) (*Buffer, error) {
	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}

	var handle vk.Buffer
	if res := vk.CreateBuffer(d.logical, &bufferInfo, d.context.Allocator, &handle); res != vk.Success {
		err := fmt.Errorf("failed to create buffer of %d bytes: %w", size, vkError("vkCreateBuffer", res))
		core.LogError(err.Error())
		return nil, err
	}

	var memReqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.logical, handle, &memReqs)
	memReqs.Deref()

	memoryIndex := d.FindMemoryIndex(memReqs.MemoryTypeBits,
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if memoryIndex < 0 {
		vk.DestroyBuffer(d.logical, handle, d.context.Allocator)
		err := fmt.Errorf("no host-visible memory type for buffer of %d bytes", size)
		core.LogError(err.Error())
		return nil, err
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: uint32(memoryIndex),
	}

	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(d.logical, &allocInfo, d.context.Allocator, &memory); res != vk.Success {
		vk.DestroyBuffer(d.logical, handle, d.context.Allocator)
		err := fmt.Errorf("failed to allocate %d bytes of buffer memory: %w", memReqs.Size, vkError("vkAllocateMemory", res))
		core.LogError(err.Error())
		return nil, err
	}

	if res := vk.BindBufferMemory(d.logical, handle, memory, 0); res != vk.Success {
		vk.FreeMemory(d.logical, memory, d.context.Allocator)
		vk.DestroyBuffer(d.logical, handle, d.context.Allocator)
		err := fmt.Errorf("failed to bind buffer memory: %w", vkError("vkBindBufferMemory", res))
		core.LogError(err.Error())
		return nil, err
	}

	var mapped unsafe.Pointer
	if res := vk.MapMemory(d.logical, memory, 0, vk.DeviceSize(memReqs.Size), 0, &mapped); res != vk.Success {
		vk.FreeMemory(d.logical, memory, d.context.Allocator)
		vk.DestroyBuffer(d.logical, handle, d.context.Allocator)
		err := fmt.Errorf("failed to map buffer memory: %w", vkError("vkMapMemory", res))
		core.LogError(err.Error())
		return nil, err
	}

	return &Buffer{
		device: d,
		handle: handle,
		memory: memory,
		mapped: mapped,
		size:   uint64(memReqs.Size),
	}, nil
}

// Size reports the allocated size, which may exceed what was asked for.
func (b *Buffer) Size() uint64 {
	return b.size
}

// Write copies data into the mapped memory. The memory is host-coherent,
// so no flush is needed.
func (b *Buffer) Write(data []byte) error {
	if uint64(len(data)) > b.size {
		err := fmt.Errorf("write of %d bytes exceeds buffer size %d", len(data), b.size)
		core.LogError(err.Error())
		return err
	}
	vk.Memcopy(b.mapped, data)
	return nil
}

func (b *Buffer) Destroy() {
	if b.handle == vk.NullBuffer {
		return
	}
	vk.UnmapMemory(b.device.logical, b.memory)
	vk.DestroyBuffer(b.device.logical, b.handle, b.device.context.Allocator)
	vk.FreeMemory(b.device.logical, b.memory, b.device.context.Allocator)
	b.handle = vk.NullBuffer
	b.memory = vk.NullDeviceMemory
	b.mapped = nil
}
