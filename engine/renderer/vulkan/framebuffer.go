package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/Fahien/vkr-go/engine/core"
	"github.com/Fahien/vkr-go/engine/gpu"
)

var _ gpu.RenderTarget = (*RenderTarget)(nil)

// RenderTarget bundles the per-image framebuffer with the offscreen
// attachments backing it. The albedo and depth images belong to the
// target; the swapchain image view and the render pass do not.
type RenderTarget struct {
	device      *Device
	extent      gpu.Extent2D
	albedo      *Image
	depth       *Image
	framebuffer vk.Framebuffer
	renderPass  vk.RenderPass
}

func newRenderTarget(device *Device, renderPass vk.RenderPass, chainView vk.ImageView, colorFormat vk.Format, extent gpu.Extent2D) (*RenderTarget, error) {
	albedo, err := device.newImage(extent.Width, extent.Height, colorFormat,
		vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit|vk.ImageUsageInputAttachmentBit),
		vk.ImageAspectFlags(vk.ImageAspectColorBit))
	if err != nil {
		return nil, err
	}

	depth, err := device.newImage(extent.Width, extent.Height, device.depthFormat,
		vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit|vk.ImageUsageInputAttachmentBit),
		vk.ImageAspectFlags(vk.ImageAspectDepthBit))
	if err != nil {
		albedo.Destroy()
		return nil, err
	}

	// Index order matches the attachment descriptions of the render pass.
	attachments := make([]vk.ImageView, 3)
	attachments[attachmentAlbedo] = albedo.view
	attachments[attachmentDepth] = depth.view
	attachments[attachmentChain] = chainView

	createInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderPass,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		Width:           extent.Width,
		Height:          extent.Height,
		Layers:          1,
	}

	var framebuffer vk.Framebuffer
	if res := vk.CreateFramebuffer(device.logical, &createInfo, device.context.Allocator, &framebuffer); res != vk.Success {
		depth.Destroy()
		albedo.Destroy()
		err := fmt.Errorf("failed to create %dx%d framebuffer: %w", extent.Width, extent.Height, vkError("vkCreateFramebuffer", res))
		core.LogError(err.Error())
		return nil, err
	}

	return &RenderTarget{
		device:      device,
		extent:      extent,
		albedo:      albedo,
		depth:       depth,
		framebuffer: framebuffer,
		renderPass:  renderPass,
	}, nil
}

func (rt *RenderTarget) Extent() gpu.Extent2D {
	return rt.extent
}

func (rt *RenderTarget) Destroy() {
	if rt.framebuffer != vk.NullFramebuffer {
		vk.DestroyFramebuffer(rt.device.logical, rt.framebuffer, rt.device.context.Allocator)
		rt.framebuffer = vk.NullFramebuffer
	}
	rt.depth.Destroy()
	rt.albedo.Destroy()
}
