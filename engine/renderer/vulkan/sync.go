package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/Fahien/vkr-go/engine/core"
	"github.com/Fahien/vkr-go/engine/gpu"
)

var (
	_ gpu.Fence     = (*Fence)(nil)
	_ gpu.Semaphore = (*Semaphore)(nil)
)

// Fence implements gpu.Fence. The signaled flag shadows the driver state so
// a wait on an already-signaled fence never enters the driver; the flag is
// authoritative only between Wait and Reset on the render goroutine.
type Fence struct {
	device   *Device
	handle   vk.Fence
	signaled bool
}

// CreateFence creates a fence, optionally in the signaled state so the
// first wait on a fresh frame slot passes immediately.
func (d *Device) CreateFence(signaled bool) (gpu.Fence, error) {
	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var handle vk.Fence
	if res := vk.CreateFence(d.logical, &fenceCreateInfo, d.context.Allocator, &handle); res != vk.Success {
		err := fmt.Errorf("failed to create fence: %w", vkError("vkCreateFence", res))
		core.LogError(err.Error())
		return nil, err
	}

	return &Fence{device: d, handle: handle, signaled: signaled}, nil
}

// Wait blocks until the fence signals, returning core.ErrFenceWaitTimeout
// when timeoutNs elapses first.
func (f *Fence) Wait(timeoutNs uint64) error {
	if f.signaled {
		return nil
	}

	result := vk.WaitForFences(f.device.logical, 1, []vk.Fence{f.handle}, vk.True, timeoutNs)
	switch result {
	case vk.Success:
		f.signaled = true
		return nil
	case vk.Timeout:
		return fmt.Errorf("fence wait exceeded %d ns: %w", timeoutNs, core.ErrFenceWaitTimeout)
	default:
		err := fmt.Errorf("failed to wait for fence: %w", vkError("vkWaitForFences", result))
		core.LogError(err.Error())
		return err
	}
}

func (f *Fence) Reset() error {
	if res := vk.ResetFences(f.device.logical, 1, []vk.Fence{f.handle}); res != vk.Success {
		err := fmt.Errorf("failed to reset fence: %w", vkError("vkResetFences", res))
		core.LogError(err.Error())
		return err
	}
	f.signaled = false
	return nil
}

// IsSignaled reports the fence state without blocking.
func (f *Fence) IsSignaled() bool {
	if f.signaled {
		return true
	}
	if vk.GetFenceStatus(f.device.logical, f.handle) == vk.Success {
		f.signaled = true
	}
	return f.signaled
}

func (f *Fence) Destroy() {
	if f.handle != vk.NullFence {
		vk.DestroyFence(f.device.logical, f.handle, f.device.context.Allocator)
		f.handle = vk.NullFence
	}
	f.signaled = false
}

// Semaphore implements gpu.Semaphore. It only ever travels between queue
// submission and presentation; the CPU never waits on one.
type Semaphore struct {
	device *Device
	handle vk.Semaphore
}

func (d *Device) CreateSemaphore() (gpu.Semaphore, error) {
	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}

	var handle vk.Semaphore
	if res := vk.CreateSemaphore(d.logical, &semaphoreCreateInfo, d.context.Allocator, &handle); res != vk.Success {
		err := fmt.Errorf("failed to create semaphore: %w", vkError("vkCreateSemaphore", res))
		core.LogError(err.Error())
		return nil, err
	}

	return &Semaphore{device: d, handle: handle}, nil
}

func (s *Semaphore) Destroy() {
	if s.handle != vk.NullSemaphore {
		vk.DestroySemaphore(s.device.logical, s.handle, s.device.context.Allocator)
		s.handle = vk.NullSemaphore
	}
}
