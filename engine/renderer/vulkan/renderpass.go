package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/Fahien/vkr-go/engine/core"
)

// Attachment indices shared by the render pass, the framebuffers and the
// clear values recorded in BeginRenderPass.
const (
	attachmentAlbedo = 0
	attachmentDepth  = 1
	attachmentChain  = 2
)

// newRenderPass builds the two-subpass pass every frame runs through.
// Subpass 0 draws the scene into the offscreen albedo and depth images,
// subpass 1 reads both as input attachments and composites into the
// swapchain image. Formats are fixed at device selection time, so one
// render pass outlives any number of swapchain rebuilds.
func newRenderPass(device *Device, colorFormat vk.Format) (vk.RenderPass, error) {
	attachments := []vk.AttachmentDescription{
		attachmentAlbedo: {
			Format:         colorFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutShaderReadOnlyOptimal,
		},
		attachmentDepth: {
			Format:         device.depthFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpDontCare,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutDepthStencilReadOnlyOptimal,
		},
		attachmentChain: {
			Format:         colorFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutPresentSrc,
		},
	}

	sceneColor := []vk.AttachmentReference{
		{Attachment: attachmentAlbedo, Layout: vk.ImageLayoutColorAttachmentOptimal},
	}
	sceneDepth := vk.AttachmentReference{
		Attachment: attachmentDepth,
		Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
	}
	presentInputs := []vk.AttachmentReference{
		{Attachment: attachmentAlbedo, Layout: vk.ImageLayoutShaderReadOnlyOptimal},
		{Attachment: attachmentDepth, Layout: vk.ImageLayoutDepthStencilReadOnlyOptimal},
	}
	presentColor := []vk.AttachmentReference{
		{Attachment: attachmentChain, Layout: vk.ImageLayoutColorAttachmentOptimal},
	}

	subpasses := []vk.SubpassDescription{
		{
			PipelineBindPoint:       vk.PipelineBindPointGraphics,
			ColorAttachmentCount:    1,
			PColorAttachments:       sceneColor,
			PDepthStencilAttachment: &sceneDepth,
		},
		{
			PipelineBindPoint:    vk.PipelineBindPointGraphics,
			InputAttachmentCount: uint32(len(presentInputs)),
			PInputAttachments:    presentInputs,
			ColorAttachmentCount: 1,
			PColorAttachments:    presentColor,
		},
	}

	dependencies := []vk.SubpassDependency{
		{
			SrcSubpass:    vk.SubpassExternal,
			DstSubpass:    0,
			SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageEarlyFragmentTestsBit),
			SrcAccessMask: 0,
			DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageEarlyFragmentTestsBit),
			DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit | vk.AccessDepthStencilAttachmentWriteBit),
		},
		{
			SrcSubpass:      0,
			DstSubpass:      1,
			SrcStageMask:    vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageLateFragmentTestsBit),
			SrcAccessMask:   vk.AccessFlags(vk.AccessColorAttachmentWriteBit | vk.AccessDepthStencilAttachmentWriteBit),
			DstStageMask:    vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
			DstAccessMask:   vk.AccessFlags(vk.AccessInputAttachmentReadBit),
			DependencyFlags: vk.DependencyFlags(vk.DependencyByRegionBit),
		},
	}

	createInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    uint32(len(subpasses)),
		PSubpasses:      subpasses,
		DependencyCount: uint32(len(dependencies)),
		PDependencies:   dependencies,
	}

	var renderPass vk.RenderPass
	if res := vk.CreateRenderPass(device.logical, &createInfo, device.context.Allocator, &renderPass); res != vk.Success {
		err := fmt.Errorf("failed to create render pass: %w", vkError("vkCreateRenderPass", res))
		core.LogError(err.Error())
		return vk.NullRenderPass, err
	}
	return renderPass, nil
}
