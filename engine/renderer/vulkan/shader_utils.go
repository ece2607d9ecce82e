package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/Fahien/vkr-go/engine/core"
)

// sliceUint32 reinterprets SPIR-V bytes as the uint32 words Vulkan expects.
func sliceUint32(data []byte) []uint32 {
	return unsafe.Slice((*uint32)(unsafe.Pointer(&data[0])), len(data)/4)
}

func (d *Device) createShaderModule(code []byte) (vk.ShaderModule, error) {
	if len(code) == 0 || len(code)%4 != 0 {
		err := fmt.Errorf("SPIR-V code must be a non-empty multiple of 4 bytes, got %d", len(code))
		core.LogError(err.Error())
		return vk.NullShaderModule, err
	}

	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code)),
		PCode:    sliceUint32(code),
	}

	var module vk.ShaderModule
	if res := vk.CreateShaderModule(d.logical, &createInfo, d.context.Allocator, &module); res != vk.Success {
		err := fmt.Errorf("failed to create shader module: %w", vkError("vkCreateShaderModule", res))
		core.LogError(err.Error())
		return vk.NullShaderModule, err
	}
	return module, nil
}

// shaderStagePair compiles a vertex and fragment module pair. The modules
// only need to live until pipeline creation returns.
type shaderStagePair struct {
	vert vk.ShaderModule
	frag vk.ShaderModule
}

func (d *Device) newShaderStagePair(vertSPV, fragSPV []byte) (*shaderStagePair, error) {
	vert, err := d.createShaderModule(vertSPV)
	if err != nil {
		return nil, fmt.Errorf("vertex stage: %w", err)
	}
	frag, err := d.createShaderModule(fragSPV)
	if err != nil {
		vk.DestroyShaderModule(d.logical, vert, d.context.Allocator)
		return nil, fmt.Errorf("fragment stage: %w", err)
	}
	return &shaderStagePair{vert: vert, frag: frag}, nil
}

func (p *shaderStagePair) stageInfos() []vk.PipelineShaderStageCreateInfo {
	return []vk.PipelineShaderStageCreateInfo{
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageVertexBit,
			Module: p.vert,
			PName:  safeString("main"),
		},
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: p.frag,
			PName:  safeString("main"),
		},
	}
}

func (p *shaderStagePair) destroy(d *Device) {
	vk.DestroyShaderModule(d.logical, p.vert, d.context.Allocator)
	vk.DestroyShaderModule(d.logical, p.frag, d.context.Allocator)
}
