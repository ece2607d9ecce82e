package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/Fahien/vkr-go/engine/core"
	"github.com/Fahien/vkr-go/engine/gpu"
)

var _ gpu.Texture = (*Texture)(nil)

// Image is a device-local image with its memory and view. Render target
// attachments and sampled textures are both built on it.
type Image struct {
	device *Device
	handle vk.Image
	memory vk.DeviceMemory
	view   vk.ImageView
	format vk.Format
	width  uint32
	height uint32
}

func (d *Device) newImage(width, height uint32, format vk.Format, usage vk.ImageUsageFlags, aspect vk.ImageAspectFlags) (*Image, error) {
	imageInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    format,
		Extent: vk.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         usage,
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}

	var handle vk.Image
	if res := vk.CreateImage(d.logical, &imageInfo, d.context.Allocator, &handle); res != vk.Success {
		err := fmt.Errorf("failed to create %dx%d image: %w", width, height, vkError("vkCreateImage", res))
		core.LogError(err.Error())
		return nil, err
	}

	var memReqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.logical, handle, &memReqs)
	memReqs.Deref()

	memoryIndex := d.FindMemoryIndex(memReqs.MemoryTypeBits, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if memoryIndex < 0 {
		vk.DestroyImage(d.logical, handle, d.context.Allocator)
		err := fmt.Errorf("no device-local memory type for image")
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
		vk.DestroyImage(d.logical, handle, d.context.Allocator)
		err := fmt.Errorf("failed to allocate image memory: %w", vkError("vkAllocateMemory", res))
		core.LogError(err.Error())
		return nil, err
	}
	vk.BindImageMemory(d.logical, handle, memory, 0)

	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    handle,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}

	var view vk.ImageView
	if res := vk.CreateImageView(d.logical, &viewInfo, d.context.Allocator, &view); res != vk.Success {
		vk.FreeMemory(d.logical, memory, d.context.Allocator)
		vk.DestroyImage(d.logical, handle, d.context.Allocator)
		err := fmt.Errorf("failed to create image view: %w", vkError("vkCreateImageView", res))
		core.LogError(err.Error())
		return nil, err
	}

	return &Image{
		device: d,
		handle: handle,
		memory: memory,
		view:   view,
		format: format,
		width:  width,
		height: height,
	}, nil
}

func (i *Image) Destroy() {
	if i.handle == vk.NullImage {
		return
	}
	vk.DestroyImageView(i.device.logical, i.view, i.device.context.Allocator)
	vk.DestroyImage(i.device.logical, i.handle, i.device.context.Allocator)
	vk.FreeMemory(i.device.logical, i.memory, i.device.context.Allocator)
	i.view = vk.NullImageView
	i.handle = vk.NullImage
	i.memory = vk.NullDeviceMemory
}

// Texture implements gpu.Texture: a sampled image plus its sampler.
type Texture struct {
	device  *Device
	image   *Image
	sampler vk.Sampler
}

// CreateTexture uploads tightly packed RGBA pixels through a staging
// buffer and returns a shader-readable texture.
func (d *Device) CreateTexture(pixels []byte, width, height uint32) (gpu.Texture, error) {
	expected := uint64(width) * uint64(height) * 4
	if uint64(len(pixels)) < expected {
		err := fmt.Errorf("texture upload needs %d bytes for %dx%d RGBA, got %d", expected, width, height, len(pixels))
		core.LogError(err.Error())
		return nil, err
	}

	staging, err := d.newBuffer(expected, vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit))
	if err != nil {
		return nil, err
	}
	defer staging.Destroy()
	if err := staging.Write(pixels[:expected]); err != nil {
		return nil, err
	}

	image, err := d.newImage(width, height, vk.FormatR8g8b8a8Srgb,
		vk.ImageUsageFlags(vk.ImageUsageTransferDstBit|vk.ImageUsageSampledBit),
		vk.ImageAspectFlags(vk.ImageAspectColorBit))
	if err != nil {
		return nil, err
	}

	cmd, err := d.beginSingleUse()
	if err != nil {
		image.Destroy()
		return nil, err
	}

	transitionImageLayout(cmd.handle, image.handle,
		vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal,
		0, vk.AccessFlags(vk.AccessTransferWriteBit),
		vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
		vk.PipelineStageFlags(vk.PipelineStageTransferBit))

	region := vk.BufferImageCopy{
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LayerCount: 1,
		},
		ImageExtent: vk.Extent3D{Width: width, Height: height, Depth: 1},
	}
	vk.CmdCopyBufferToImage(cmd.handle, staging.handle, image.handle,
		vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})

	transitionImageLayout(cmd.handle, image.handle,
		vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal,
		vk.AccessFlags(vk.AccessTransferWriteBit), vk.AccessFlags(vk.AccessShaderReadBit),
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit))

	if err := d.endSingleUse(cmd); err != nil {
		image.Destroy()
		return nil, err
	}

	sampler, err := d.newSampler()
	if err != nil {
		image.Destroy()
		return nil, err
	}

	return &Texture{device: d, image: image, sampler: sampler}, nil
}

func (d *Device) newSampler() (vk.Sampler, error) {
	samplerInfo := vk.SamplerCreateInfo{
		SType:            vk.StructureTypeSamplerCreateInfo,
		MagFilter:        vk.FilterLinear,
		MinFilter:        vk.FilterLinear,
		MipmapMode:       vk.SamplerMipmapModeLinear,
		AddressModeU:     vk.SamplerAddressModeRepeat,
		AddressModeV:     vk.SamplerAddressModeRepeat,
		AddressModeW:     vk.SamplerAddressModeRepeat,
		AnisotropyEnable: vk.True,
		MaxAnisotropy:    16,
		BorderColor:      vk.BorderColorIntOpaqueBlack,
		CompareOp:        vk.CompareOpAlways,
	}

	var sampler vk.Sampler
	if res := vk.CreateSampler(d.logical, &samplerInfo, d.context.Allocator, &sampler); res != vk.Success {
		err := fmt.Errorf("failed to create sampler: %w", vkError("vkCreateSampler", res))
		core.LogError(err.Error())
		return sampler, err
	}
	return sampler, nil
}

func (t *Texture) Destroy() {
	vk.DestroySampler(t.device.logical, t.sampler, t.device.context.Allocator)
	t.image.Destroy()
}

func transitionImageLayout(cmd vk.CommandBuffer, image vk.Image,
	oldLayout, newLayout vk.ImageLayout,
	srcAccess, dstAccess vk.AccessFlags,
	srcStage, dstStage vk.PipelineStageFlags) {
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       srcAccess,
		DstAccessMask:       dstAccess,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	vk.CmdPipelineBarrier(cmd, srcStage, dstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
}
