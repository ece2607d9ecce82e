package gpu

// Device creates and destroys GPU objects and owns the one graphics queue.
// All methods are driver calls: they are not safe for concurrent use and
// belong to the render goroutine.
type Device interface {
	// CreateBuffer allocates host-visible memory of at least size bytes.
	CreateBuffer(size uint64, usage BufferUsage) (Buffer, error)
	// CreateTexture uploads RGBA pixels through a staging buffer and returns
	// a sampled image.
	CreateTexture(pixels []byte, width, height uint32) (Texture, error)
	CreateFence(signaled bool) (Fence, error)
	CreateSemaphore() (Semaphore, error)
	CreateDescriptorPool(sizes PoolSizes) (DescriptorPool, error)
	CreateCommandBuffer() (CommandBuffer, error)
	// Submit hands one recorded command buffer to the graphics queue.
	Submit(info SubmitInfo) error
	// WaitIdle blocks until the device finished all submitted work.
	WaitIdle() error
}

// SubmitInfo bundles the arguments of one queue submission. The wait
// semaphore gates the color attachment output stage; the signal semaphore
// and fence fire when execution completes.
type SubmitInfo struct {
	CommandBuffer   CommandBuffer
	WaitSemaphore   Semaphore
	SignalSemaphore Semaphore
	Fence           Fence
}

// Buffer is raw mapped GPU memory. Size reports the allocated size, which
// may exceed what was asked for.
type Buffer interface {
	Size() uint64
	// Write copies data into the buffer synchronously. Fails when data does
	// not fit.
	Write(data []byte) error
	Destroy()
}

// Texture is a sampled image together with its sampler.
type Texture interface {
	Destroy()
}

// Fence is a completion signal the CPU can wait on.
type Fence interface {
	// Wait blocks until the fence signals or the timeout elapses, returning
	// core.ErrFenceWaitTimeout in the latter case.
	Wait(timeoutNs uint64) error
	Reset() error
	IsSignaled() bool
	Destroy()
}

// Semaphore orders GPU work against other GPU work. The CPU never waits on
// one.
type Semaphore interface {
	Destroy()
}

// DescriptorPool allocates descriptor set groups out of fixed capacity.
type DescriptorPool interface {
	// Allocate carves one set per layout out of the pool, returning
	// core.ErrPoolExhausted when capacity runs out.
	Allocate(layouts []SetLayout) (SetGroup, error)
	// Free returns a group's sets to the pool.
	Free(group SetGroup) error
	Destroy()
}

// SetGroup is an opaque group of descriptor sets allocated together and
// freed together. Implementations must be comparable so allocators can
// track ownership.
type SetGroup interface {
	// Count returns how many sets the group holds.
	Count() int
}

// CommandBuffer records the commands of one frame.
type CommandBuffer interface {
	Begin() error
	End() error
	BeginRenderPass(target RenderTarget)
	// NextSubpass moves from the scene subpass to the presentation subpass.
	NextSubpass()
	EndRenderPass()
	SetViewport(extent Extent2D)
	SetScissor(extent Extent2D)
	BindPipeline(p Pipeline)
	// BindDescriptorGroup binds the group's sets starting at firstSet.
	BindDescriptorGroup(p Pipeline, firstSet uint32, group SetGroup)
	BindVertexBuffer(b Buffer)
	// BindIndexBuffer binds b as uint16 indices.
	BindIndexBuffer(b Buffer)
	Draw(vertexCount uint32)
	DrawIndexed(indexCount uint32)
	Destroy()
}
