package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/Fahien/vkr-go/engine/core"
	"github.com/Fahien/vkr-go/engine/gpu"
)

var (
	_ gpu.SetLayout      = (*SetLayout)(nil)
	_ gpu.DescriptorPool = (*DescriptorPool)(nil)
	_ gpu.SetGroup       = (*SetGroup)(nil)
)

// SetLayout pairs a descriptor set layout with the binding counts it
// consumes from a pool.
type SetLayout struct {
	device   *Device
	handle   vk.DescriptorSetLayout
	bindings gpu.BindingCounts
}

func newSetLayout(device *Device, bindings []vk.DescriptorSetLayoutBinding, counts gpu.BindingCounts) (*SetLayout, error) {
	createInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}

	var handle vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(device.logical, &createInfo, device.context.Allocator, &handle); res != vk.Success {
		err := fmt.Errorf("failed to create descriptor set layout: %w", vkError("vkCreateDescriptorSetLayout", res))
		core.LogError(err.Error())
		return nil, err
	}
	return &SetLayout{device: device, handle: handle, bindings: counts}, nil
}

func (l *SetLayout) Bindings() gpu.BindingCounts {
	return l.bindings
}

func (l *SetLayout) destroy() {
	vk.DestroyDescriptorSetLayout(l.device.logical, l.handle, l.device.context.Allocator)
}

func uniformBinding(binding uint32, stages vk.ShaderStageFlags) vk.DescriptorSetLayoutBinding {
	return vk.DescriptorSetLayoutBinding{
		Binding:         binding,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		DescriptorCount: 1,
		StageFlags:      stages,
	}
}

func samplerBinding(binding uint32) vk.DescriptorSetLayoutBinding {
	return vk.DescriptorSetLayoutBinding{
		Binding:         binding,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		DescriptorCount: 1,
		StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
	}
}

func inputAttachmentBinding(binding uint32) vk.DescriptorSetLayoutBinding {
	return vk.DescriptorSetLayoutBinding{
		Binding:         binding,
		DescriptorType:  vk.DescriptorTypeInputAttachment,
		DescriptorCount: 1,
		StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
	}
}

// SetGroup is a batch of descriptor sets allocated and freed as one unit.
type SetGroup struct {
	sets []vk.DescriptorSet
}

func (g *SetGroup) Count() int {
	return len(g.sets)
}

// DescriptorPool implements gpu.DescriptorPool. Sets are individually
// freeable so frame caches can return them without resetting the pool.
type DescriptorPool struct {
	device *Device
	handle vk.DescriptorPool
}

func (d *Device) CreateDescriptorPool(sizes gpu.PoolSizes) (gpu.DescriptorPool, error) {
	poolSizes := make([]vk.DescriptorPoolSize, 0, 3)
	if sizes.Uniforms > 0 {
		poolSizes = append(poolSizes, vk.DescriptorPoolSize{
			Type:            vk.DescriptorTypeUniformBuffer,
			DescriptorCount: sizes.Uniforms,
		})
	}
	if sizes.Samplers > 0 {
		poolSizes = append(poolSizes, vk.DescriptorPoolSize{
			Type:            vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: sizes.Samplers,
		})
	}
	if sizes.InputAttachments > 0 {
		poolSizes = append(poolSizes, vk.DescriptorPoolSize{
			Type:            vk.DescriptorTypeInputAttachment,
			DescriptorCount: sizes.InputAttachments,
		})
	}
	if len(poolSizes) == 0 || sizes.MaxSets == 0 {
		err := fmt.Errorf("descriptor pool needs at least one non-zero size, got %+v", sizes)
		core.LogError(err.Error())
		return nil, err
	}

	createInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		MaxSets:       sizes.MaxSets,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}

	var handle vk.DescriptorPool
	if res := vk.CreateDescriptorPool(d.logical, &createInfo, d.context.Allocator, &handle); res != vk.Success {
		err := fmt.Errorf("failed to create descriptor pool: %w", vkError("vkCreateDescriptorPool", res))
		core.LogError(err.Error())
		return nil, err
	}
	return &DescriptorPool{device: d, handle: handle}, nil
}

// Allocate carves one descriptor set per layout out of the pool.
// Exhaustion reports ErrPoolExhausted so callers can fall back to a
// reserve pool instead of failing the frame.
func (p *DescriptorPool) Allocate(layouts []gpu.SetLayout) (gpu.SetGroup, error) {
	if len(layouts) == 0 {
		err := fmt.Errorf("descriptor allocation needs at least one layout")
		core.LogError(err.Error())
		return nil, err
	}

	handles := make([]vk.DescriptorSetLayout, len(layouts))
	for i, layout := range layouts {
		concrete, ok := layout.(*SetLayout)
		if !ok {
			err := fmt.Errorf("layout %d was not created by this device: %T", i, layout)
			core.LogError(err.Error())
			return nil, err
		}
		handles[i] = concrete.handle
	}

	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     p.handle,
		DescriptorSetCount: uint32(len(handles)),
		PSetLayouts:        handles,
	}

	sets := make([]vk.DescriptorSet, len(handles))
	if res := vk.AllocateDescriptorSets(p.device.logical, &allocInfo, &sets[0]); res != vk.Success {
		return nil, vkError("vkAllocateDescriptorSets", res)
	}
	return &SetGroup{sets: sets}, nil
}

func (p *DescriptorPool) Free(group gpu.SetGroup) error {
	concrete, ok := group.(*SetGroup)
	if !ok {
		err := fmt.Errorf("cannot free a set group of type %T", group)
		core.LogError(err.Error())
		return err
	}
	if res := vk.FreeDescriptorSets(p.device.logical, p.handle, uint32(len(concrete.sets)), &concrete.sets[0]); res != vk.Success {
		return vkError("vkFreeDescriptorSets", res)
	}
	return nil
}

func (p *DescriptorPool) Destroy() {
	vk.DestroyDescriptorPool(p.device.logical, p.handle, p.device.context.Allocator)
}
