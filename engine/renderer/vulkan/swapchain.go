package vulkan

import (
	"fmt"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/Fahien/vkr-go/engine/core"
	"github.com/Fahien/vkr-go/engine/gpu"
	"github.com/Fahien/vkr-go/engine/math"
)

var _ gpu.Surface = (*Swapchain)(nil)

// Swapchain implements gpu.Surface on top of the Vulkan swapchain. It also
// owns the render pass: attachment formats are fixed once the device is
// chosen, so the pass survives any number of Recreate calls and pipelines
// built against it stay valid.
type Swapchain struct {
	device    *Device
	window    *glfw.Window
	minImages uint32

	handle     vk.Swapchain
	format     vk.SurfaceFormat
	extent     gpu.Extent2D
	images     []vk.Image
	views      []vk.ImageView
	renderPass vk.RenderPass
}

// NewSwapchain builds the image chain and its render pass. minImages asks
// the driver for at least that many chain images; zero means the driver
// minimum plus one. The driver may hand back more either way, and frame
// slots are laid out against what it actually returns.
func NewSwapchain(device *Device, window *glfw.Window, minImages uint32) (*Swapchain, error) {
	s := &Swapchain{device: device, window: window, minImages: minImages}
	if err := s.createSwapchain(); err != nil {
		return nil, err
	}

	renderPass, err := newRenderPass(device, s.format.Format)
	if err != nil {
		s.destroySwapchain()
		return nil, err
	}
	s.renderPass = renderPass

	core.LogInfo("swapchain ready: %d images, %dx%d", len(s.images), s.extent.Width, s.extent.Height)
	return s, nil
}

func (s *Swapchain) createSwapchain() error {
	support, err := s.device.querySwapchainSupport(s.device.physicalDevice)
	if err != nil {
		return err
	}

	s.format = chooseSurfaceFormat(support.Formats)
	presentMode := choosePresentMode(support.PresentModes)
	extent := s.chooseExtent(support.Capabilities)

	imageCount := support.Capabilities.MinImageCount + 1
	if s.minImages > imageCount {
		imageCount = s.minImages
	}
	if support.Capabilities.MaxImageCount > 0 && imageCount > support.Capabilities.MaxImageCount {
		imageCount = support.Capabilities.MaxImageCount
	}

	createInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          s.device.context.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      s.format.Format,
		ImageColorSpace:  s.format.ColorSpace,
		ImageExtent:      vk.Extent2D{Width: extent.Width, Height: extent.Height},
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     support.Capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vk.True,
	}

	if s.device.graphicsQueueIndex != s.device.presentQueueIndex {
		createInfo.ImageSharingMode = vk.SharingModeConcurrent
		createInfo.QueueFamilyIndexCount = 2
		createInfo.PQueueFamilyIndices = []uint32{
			uint32(s.device.graphicsQueueIndex),
			uint32(s.device.presentQueueIndex),
		}
	} else {
		createInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	var handle vk.Swapchain
	if res := vk.CreateSwapchain(s.device.logical, &createInfo, s.device.context.Allocator, &handle); res != vk.Success {
		err := fmt.Errorf("failed to create swapchain: %w", vkError("vkCreateSwapchain", res))
		core.LogError(err.Error())
		return err
	}

	var count uint32
	if res := vk.GetSwapchainImages(s.device.logical, handle, &count, nil); res != vk.Success {
		vk.DestroySwapchain(s.device.logical, handle, s.device.context.Allocator)
		err := fmt.Errorf("failed to count swapchain images: %w", vkError("vkGetSwapchainImages", res))
		core.LogError(err.Error())
		return err
	}
	images := make([]vk.Image, count)
	if res := vk.GetSwapchainImages(s.device.logical, handle, &count, images); res != vk.Success {
		vk.DestroySwapchain(s.device.logical, handle, s.device.context.Allocator)
		err := fmt.Errorf("failed to get swapchain images: %w", vkError("vkGetSwapchainImages", res))
		core.LogError(err.Error())
		return err
	}

	views := make([]vk.ImageView, count)
	for i := range images {
		viewInfo := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    images[i],
			ViewType: vk.ImageViewType2d,
			Format:   s.format.Format,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		}
		if res := vk.CreateImageView(s.device.logical, &viewInfo, s.device.context.Allocator, &views[i]); res != vk.Success {
			for j := 0; j < i; j++ {
				vk.DestroyImageView(s.device.logical, views[j], s.device.context.Allocator)
			}
			vk.DestroySwapchain(s.device.logical, handle, s.device.context.Allocator)
			err := fmt.Errorf("failed to create swapchain image view %d: %w", i, vkError("vkCreateImageView", res))
			core.LogError(err.Error())
			return err
		}
	}

	s.handle = handle
	s.extent = extent
	s.images = images
	s.views = views
	return nil
}

func chooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, format := range formats {
		if format.Format == vk.FormatB8g8r8a8Unorm && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return format
		}
	}
	return formats[0]
}

func choosePresentMode(modes []vk.PresentMode) vk.PresentMode {
	for _, mode := range modes {
		if mode == vk.PresentModeMailbox {
			return mode
		}
	}
	// Fifo is the only mode the driver must support.
	return vk.PresentModeFifo
}

func (s *Swapchain) chooseExtent(caps vk.SurfaceCapabilities) gpu.Extent2D {
	// 0xFFFFFFFF means the surface takes its size from the swapchain.
	if caps.CurrentExtent.Width != 0xFFFFFFFF {
		return gpu.Extent2D{
			Width:  caps.CurrentExtent.Width,
			Height: caps.CurrentExtent.Height,
		}
	}
	width, height := s.window.GetFramebufferSize()
	return gpu.Extent2D{
		Width:  math.Clamp(uint32(width), caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: math.Clamp(uint32(height), caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

func (s *Swapchain) Extent() gpu.Extent2D {
	return s.extent
}

func (s *Swapchain) ImageCount() int {
	return len(s.images)
}

// AcquireNextImage blocks until the driver hands out a swapchain image,
// signalling the given semaphore when the image is actually ready to be
// rendered to. A suboptimal surface still acquires; only a truly out of
// date one reports ErrSurfaceOutOfDate.
func (s *Swapchain) AcquireNextImage(timeoutNs uint64, signal gpu.Semaphore) (uint32, error) {
	sem, ok := signal.(*Semaphore)
	if !ok {
		err := fmt.Errorf("acquire needs a semaphore created by this device, got %T", signal)
		core.LogError(err.Error())
		return 0, err
	}

	var imageIndex uint32
	res := vk.AcquireNextImage(s.device.logical, s.handle, timeoutNs, sem.handle, vk.NullFence, &imageIndex)
	switch res {
	case vk.Success, vk.Suboptimal:
		return imageIndex, nil
	default:
		return 0, vkError("vkAcquireNextImage", res)
	}
}

// Present queues the image for display. Both out of date and suboptimal
// results report ErrSurfaceOutOfDate here: the image was consumed either
// way, and the caller is expected to recreate before the next frame.
func (s *Swapchain) Present(imageIndex uint32, wait gpu.Semaphore) error {
	sem, ok := wait.(*Semaphore)
	if !ok {
		err := fmt.Errorf("present needs a semaphore created by this device, got %T", wait)
		core.LogError(err.Error())
		return err
	}

	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{sem.handle},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{s.handle},
		PImageIndices:      []uint32{imageIndex},
	}

	var res vk.Result
	s.device.locks.SafeCall(queueManagement, func() error {
		res = vk.QueuePresent(s.device.presentQueue, &presentInfo)
		return nil
	})
	switch res {
	case vk.Success:
		return nil
	case vk.ErrorOutOfDate, vk.Suboptimal:
		return fmt.Errorf("present image %d: %w", imageIndex, core.ErrSurfaceOutOfDate)
	default:
		return vkError("vkQueuePresent", res)
	}
}

// Recreate rebuilds the swapchain against the current surface size. The
// render pass is kept; callers rebuild their render targets. The image
// count must come back unchanged since per-image resources elsewhere are
// sized once at startup.
func (s *Swapchain) Recreate() error {
	oldCount := len(s.images)

	vk.DeviceWaitIdle(s.device.logical)
	s.destroySwapchain()

	if err := s.createSwapchain(); err != nil {
		return err
	}
	if len(s.images) != oldCount {
		err := fmt.Errorf("swapchain came back with %d images, expected %d", len(s.images), oldCount)
		core.LogError(err.Error())
		return err
	}

	core.LogDebug("swapchain recreated at %dx%d", s.extent.Width, s.extent.Height)
	return nil
}

func (s *Swapchain) CreateRenderTarget(imageIndex uint32) (gpu.RenderTarget, error) {
	if int(imageIndex) >= len(s.views) {
		err := fmt.Errorf("render target index %d out of range, swapchain has %d images", imageIndex, len(s.views))
		core.LogError(err.Error())
		return nil, err
	}
	return newRenderTarget(s.device, s.renderPass, s.views[imageIndex], s.format.Format, s.extent)
}

func (s *Swapchain) destroySwapchain() {
	for _, view := range s.views {
		vk.DestroyImageView(s.device.logical, view, s.device.context.Allocator)
	}
	s.views = nil
	s.images = nil
	vk.DestroySwapchain(s.device.logical, s.handle, s.device.context.Allocator)
}

func (s *Swapchain) Destroy() {
	vk.DeviceWaitIdle(s.device.logical)
	vk.DestroyRenderPass(s.device.logical, s.renderPass, s.device.context.Allocator)
	s.renderPass = vk.NullRenderPass
	s.destroySwapchain()
}
