package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/Fahien/vkr-go/engine/core"
	"github.com/Fahien/vkr-go/engine/gpu"
)

var _ gpu.CommandBuffer = (*CommandBuffer)(nil)

type commandBufferState int

const (
	commandBufferReady commandBufferState = iota
	commandBufferRecording
	commandBufferInRenderPass
	commandBufferEnded
)

// CommandBuffer implements gpu.CommandBuffer on a primary command buffer
// allocated from the device's graphics pool. The pool carries the
// reset-command-buffer flag, so Begin implicitly resets previous contents.
type CommandBuffer struct {
	device *Device
	handle vk.CommandBuffer
	state  commandBufferState
}

// boundPipeline is what a command buffer needs from any concrete pipeline.
type boundPipeline interface {
	pipelineHandle() vk.Pipeline
	pipelineLayout() vk.PipelineLayout
}

func (d *Device) CreateCommandBuffer() (gpu.CommandBuffer, error) {
	cmd, err := d.allocateCommandBuffer()
	if err != nil {
		return nil, err
	}
	return cmd, nil
}

func (d *Device) allocateCommandBuffer() (*CommandBuffer, error) {
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        d.commandPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}

	handles := make([]vk.CommandBuffer, 1)
	err := d.locks.SafeCall(commandPoolManagement, func() error {
		if res := vk.AllocateCommandBuffers(d.logical, &allocateInfo, handles); res != vk.Success {
			err := fmt.Errorf("failed to allocate command buffer: %w", vkError("vkAllocateCommandBuffers", res))
			core.LogError(err.Error())
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &CommandBuffer{device: d, handle: handles[0], state: commandBufferReady}, nil
}

func (c *CommandBuffer) Begin() error {
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}
	if res := vk.BeginCommandBuffer(c.handle, &beginInfo); res != vk.Success {
		err := fmt.Errorf("failed to begin command buffer: %w", vkError("vkBeginCommandBuffer", res))
		core.LogError(err.Error())
		return err
	}
	c.state = commandBufferRecording
	return nil
}

func (c *CommandBuffer) End() error {
	if c.state != commandBufferRecording {
		err := fmt.Errorf("ending a command buffer that is not recording")
		core.LogError(err.Error())
		return err
	}
	if res := vk.EndCommandBuffer(c.handle); res != vk.Success {
		err := fmt.Errorf("failed to end command buffer: %w", vkError("vkEndCommandBuffer", res))
		core.LogError(err.Error())
		return err
	}
	c.state = commandBufferEnded
	return nil
}

// BeginRenderPass starts the target's render pass with the scene subpass
// active. Clear values cover the three attachments in order: offscreen
// albedo, depth, chain image.
func (c *CommandBuffer) BeginRenderPass(target gpu.RenderTarget) {
	rt := target.(*RenderTarget)
	extent := rt.Extent()

	clearValues := make([]vk.ClearValue, 3)
	clearValues[0].SetColor([]float32{0.0, 0.0, 0.2, 1.0})
	clearValues[1].SetDepthStencil(1.0, 0)
	clearValues[2].SetColor([]float32{0.0, 0.0, 0.0, 1.0})

	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  rt.renderPass,
		Framebuffer: rt.framebuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: vk.Extent2D{Width: extent.Width, Height: extent.Height},
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}

	vk.CmdBeginRenderPass(c.handle, &beginInfo, vk.SubpassContentsInline)
	c.state = commandBufferInRenderPass
}

// NextSubpass moves from the scene subpass to the presentation subpass.
func (c *CommandBuffer) NextSubpass() {
	vk.CmdNextSubpass(c.handle, vk.SubpassContentsInline)
}

func (c *CommandBuffer) EndRenderPass() {
	vk.CmdEndRenderPass(c.handle)
	c.state = commandBufferRecording
}

// SetViewport flips Y so the GL-style projection the scene uses lands the
// right way up in Vulkan's downward framebuffer space.
func (c *CommandBuffer) SetViewport(extent gpu.Extent2D) {
	viewport := vk.Viewport{
		X:        0.0,
		Y:        float32(extent.Height),
		Width:    float32(extent.Width),
		Height:   -float32(extent.Height),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}
	vk.CmdSetViewport(c.handle, 0, 1, []vk.Viewport{viewport})
}

func (c *CommandBuffer) SetScissor(extent gpu.Extent2D) {
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: vk.Extent2D{Width: extent.Width, Height: extent.Height},
	}
	vk.CmdSetScissor(c.handle, 0, 1, []vk.Rect2D{scissor})
}

func (c *CommandBuffer) BindPipeline(p gpu.Pipeline) {
	vk.CmdBindPipeline(c.handle, vk.PipelineBindPointGraphics, p.(boundPipeline).pipelineHandle())
}

func (c *CommandBuffer) BindDescriptorGroup(p gpu.Pipeline, firstSet uint32, group gpu.SetGroup) {
	sets := group.(*SetGroup).sets
	vk.CmdBindDescriptorSets(c.handle, vk.PipelineBindPointGraphics,
		p.(boundPipeline).pipelineLayout(), firstSet, uint32(len(sets)), sets, 0, nil)
}

func (c *CommandBuffer) BindVertexBuffer(b gpu.Buffer) {
	vk.CmdBindVertexBuffers(c.handle, 0, 1, []vk.Buffer{b.(*Buffer).handle}, []vk.DeviceSize{0})
}

func (c *CommandBuffer) BindIndexBuffer(b gpu.Buffer) {
	vk.CmdBindIndexBuffer(c.handle, b.(*Buffer).handle, 0, vk.IndexTypeUint16)
}

func (c *CommandBuffer) Draw(vertexCount uint32) {
	vk.CmdDraw(c.handle, vertexCount, 1, 0, 0)
}

func (c *CommandBuffer) DrawIndexed(indexCount uint32) {
	vk.CmdDrawIndexed(c.handle, indexCount, 1, 0, 0, 0)
}

func (c *CommandBuffer) Destroy() {
	if c.handle == nil {
		return
	}
	c.device.locks.SafeCall(commandPoolManagement, func() error {
		vk.FreeCommandBuffers(c.device.logical, c.device.commandPool, 1, []vk.CommandBuffer{c.handle})
		return nil
	})
	c.handle = nil
}

// beginSingleUse allocates a one-time command buffer and starts recording.
// Texture staging uploads run through here.
func (d *Device) beginSingleUse() (*CommandBuffer, error) {
	cmd, err := d.allocateCommandBuffer()
	if err != nil {
		return nil, err
	}

	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if res := vk.BeginCommandBuffer(cmd.handle, &beginInfo); res != vk.Success {
		cmd.Destroy()
		err := fmt.Errorf("failed to begin single-use command buffer: %w", vkError("vkBeginCommandBuffer", res))
		core.LogError(err.Error())
		return nil, err
	}
	cmd.state = commandBufferRecording
	return cmd, nil
}

// endSingleUse finishes recording, submits, waits for the queue to drain
// and frees the command buffer.
func (d *Device) endSingleUse(cmd *CommandBuffer) error {
	if err := cmd.End(); err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cmd.handle},
	}

	err := d.locks.SafeCall(queueManagement, func() error {
		if res := vk.QueueSubmit(d.graphicsQueue, 1, []vk.SubmitInfo{submitInfo}, vk.NullFence); res != vk.Success {
			err := fmt.Errorf("failed to submit single-use command buffer: %w", vkError("vkQueueSubmit", res))
			core.LogError(err.Error())
			return err
		}
		if res := vk.QueueWaitIdle(d.graphicsQueue); res != vk.Success {
			err := fmt.Errorf("failed to wait for queue: %w", vkError("vkQueueWaitIdle", res))
			core.LogError(err.Error())
			return err
		}
		return nil
	})

	cmd.Destroy()
	return err
}
