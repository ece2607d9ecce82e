package renderer

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/Fahien/vkr-go/engine/core"
	"github.com/Fahien/vkr-go/engine/gpu"
)

// The fakes below implement the gpu interfaces in memory with an infinitely
// fast GPU: a submission signals its fence immediately. They count every
// call so tests can assert on allocations, writes and frees instead of
// inspecting driver state.

type fakeDevice struct {
	buffersCreated   int
	buffersDestroyed int
	texturesCreated  int
	submits          []gpu.SubmitInfo
	waitIdleCalls    int
	submitErr        error
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{}
}

func (d *fakeDevice) CreateBuffer(size uint64, usage gpu.BufferUsage) (gpu.Buffer, error) {
	d.buffersCreated++
	return &fakeBuffer{device: d, size: size, usage: usage, data: make([]byte, size)}, nil
}

func (d *fakeDevice) CreateTexture(pixels []byte, width, height uint32) (gpu.Texture, error) {
	d.texturesCreated++
	return &fakeTexture{width: width, height: height}, nil
}

func (d *fakeDevice) CreateFence(signaled bool) (gpu.Fence, error) {
	return &fakeFence{signaled: signaled}, nil
}

func (d *fakeDevice) CreateSemaphore() (gpu.Semaphore, error) {
	return &fakeSemaphore{}, nil
}

func (d *fakeDevice) CreateDescriptorPool(sizes gpu.PoolSizes) (gpu.DescriptorPool, error) {
	return &fakePool{sizes: sizes}, nil
}

func (d *fakeDevice) CreateCommandBuffer() (gpu.CommandBuffer, error) {
	return &fakeCommandBuffer{}, nil
}

func (d *fakeDevice) Submit(info gpu.SubmitInfo) error {
	if d.submitErr != nil {
		return d.submitErr
	}
	d.submits = append(d.submits, info)
	// Work completes instantly.
	if fence, ok := info.Fence.(*fakeFence); ok {
		fence.signaled = true
	}
	return nil
}

func (d *fakeDevice) WaitIdle() error {
	d.waitIdleCalls++
	return nil
}

type fakeBuffer struct {
	device    *fakeDevice
	size      uint64
	usage     gpu.BufferUsage
	data      []byte
	writes    int
	destroyed bool
}

func (b *fakeBuffer) Size() uint64 {
	return b.size
}

func (b *fakeBuffer) Write(data []byte) error {
	if b.destroyed {
		return fmt.Errorf("write to a destroyed buffer")
	}
	if uint64(len(data)) > b.size {
		return fmt.Errorf("%d bytes do not fit in a %d byte buffer", len(data), b.size)
	}
	copy(b.data, data)
	b.writes++
	return nil
}

func (b *fakeBuffer) Destroy() {
	if !b.destroyed {
		b.destroyed = true
		b.device.buffersDestroyed++
	}
}

type fakeTexture struct {
	width     uint32
	height    uint32
	destroyed bool
}

func (t *fakeTexture) Destroy() {
	t.destroyed = true
}

type fakeFence struct {
	signaled bool
	waits    int
	resets   int
	failWait bool
}

func (f *fakeFence) Wait(timeoutNs uint64) error {
	f.waits++
	if f.failWait || !f.signaled {
		return core.ErrFenceWaitTimeout
	}
	return nil
}

func (f *fakeFence) Reset() error {
	f.resets++
	f.signaled = false
	return nil
}

func (f *fakeFence) IsSignaled() bool {
	return f.signaled
}

func (f *fakeFence) Destroy() {}

type fakeSemaphore struct {
	destroyed bool
}

func (s *fakeSemaphore) Destroy() {
	s.destroyed = true
}

type fakePool struct {
	sizes       gpu.PoolSizes
	usedSets    uint32
	used        gpu.BindingCounts
	allocations int
	frees       int
}

func (p *fakePool) Allocate(layouts []gpu.SetLayout) (gpu.SetGroup, error) {
	var want gpu.BindingCounts
	for _, layout := range layouts {
		counts := layout.Bindings()
		want.Uniforms += counts.Uniforms
		want.Samplers += counts.Samplers
		want.InputAttachments += counts.InputAttachments
	}
	if p.usedSets+uint32(len(layouts)) > p.sizes.MaxSets ||
		p.used.Uniforms+want.Uniforms > p.sizes.Uniforms ||
		p.used.Samplers+want.Samplers > p.sizes.Samplers ||
		p.used.InputAttachments+want.InputAttachments > p.sizes.InputAttachments {
		return nil, core.ErrPoolExhausted
	}
	p.usedSets += uint32(len(layouts))
	p.used.Uniforms += want.Uniforms
	p.used.Samplers += want.Samplers
	p.used.InputAttachments += want.InputAttachments
	p.allocations++
	return &fakeSetGroup{sets: len(layouts), counts: want}, nil
}

func (p *fakePool) Free(group gpu.SetGroup) error {
	fake := group.(*fakeSetGroup)
	p.usedSets -= uint32(fake.sets)
	p.used.Uniforms -= fake.counts.Uniforms
	p.used.Samplers -= fake.counts.Samplers
	p.used.InputAttachments -= fake.counts.InputAttachments
	p.frees++
	return nil
}

func (p *fakePool) Destroy() {}

type fakeSetGroup struct {
	sets   int
	counts gpu.BindingCounts
}

func (g *fakeSetGroup) Count() int {
	return g.sets
}

type fakeCommandBuffer struct {
	commands []string
	begun    bool
	draws    int
}

func (c *fakeCommandBuffer) record(cmd string) {
	c.commands = append(c.commands, cmd)
}

func (c *fakeCommandBuffer) Begin() error {
	c.begun = true
	c.commands = nil
	c.draws = 0
	c.record("begin")
	return nil
}

func (c *fakeCommandBuffer) End() error {
	c.begun = false
	c.record("end")
	return nil
}

func (c *fakeCommandBuffer) BeginRenderPass(target gpu.RenderTarget) {
	c.record("begin-pass")
}

func (c *fakeCommandBuffer) NextSubpass() {
	c.record("next-subpass")
}

func (c *fakeCommandBuffer) EndRenderPass() {
	c.record("end-pass")
}

func (c *fakeCommandBuffer) SetViewport(extent gpu.Extent2D) {
	c.record("viewport")
}

func (c *fakeCommandBuffer) SetScissor(extent gpu.Extent2D) {
	c.record("scissor")
}

func (c *fakeCommandBuffer) BindPipeline(p gpu.Pipeline) {
	c.record("bind-pipeline")
}

func (c *fakeCommandBuffer) BindDescriptorGroup(p gpu.Pipeline, firstSet uint32, group gpu.SetGroup) {
	c.record(fmt.Sprintf("bind-descriptors:%d", firstSet))
}

func (c *fakeCommandBuffer) BindVertexBuffer(b gpu.Buffer) {
	c.record("bind-vertex")
}

func (c *fakeCommandBuffer) BindIndexBuffer(b gpu.Buffer) {
	c.record("bind-index")
}

func (c *fakeCommandBuffer) Draw(vertexCount uint32) {
	c.draws++
	c.record(fmt.Sprintf("draw:%d", vertexCount))
}

func (c *fakeCommandBuffer) DrawIndexed(indexCount uint32) {
	c.draws++
	c.record(fmt.Sprintf("draw-indexed:%d", indexCount))
}

func (c *fakeCommandBuffer) Destroy() {}

type fakeSurface struct {
	extent         gpu.Extent2D
	imageCount     int
	nextImage      uint32
	acquires       int
	presented      []uint32
	recreates      int
	targetsCreated int
	acquireErr     error
	presentErr     error
}

func newFakeSurface(imageCount int, width, height uint32) *fakeSurface {
	return &fakeSurface{
		extent:     gpu.Extent2D{Width: width, Height: height},
		imageCount: imageCount,
	}
}

func (s *fakeSurface) Extent() gpu.Extent2D {
	return s.extent
}

func (s *fakeSurface) ImageCount() int {
	return s.imageCount
}

func (s *fakeSurface) AcquireNextImage(timeoutNs uint64, signal gpu.Semaphore) (uint32, error) {
	s.acquires++
	if s.acquireErr != nil {
		err := s.acquireErr
		s.acquireErr = nil
		return 0, err
	}
	image := s.nextImage
	s.nextImage = (s.nextImage + 1) % uint32(s.imageCount)
	return image, nil
}

func (s *fakeSurface) Present(imageIndex uint32, wait gpu.Semaphore) error {
	if s.presentErr != nil {
		err := s.presentErr
		s.presentErr = nil
		return err
	}
	s.presented = append(s.presented, imageIndex)
	return nil
}

func (s *fakeSurface) Recreate() error {
	s.recreates++
	s.nextImage = 0
	return nil
}

func (s *fakeSurface) CreateRenderTarget(imageIndex uint32) (gpu.RenderTarget, error) {
	s.targetsCreated++
	return &fakeRenderTarget{extent: s.extent, image: imageIndex}, nil
}

func (s *fakeSurface) Destroy() {}

type fakeRenderTarget struct {
	extent    gpu.Extent2D
	image     uint32
	destroyed bool
}

func (t *fakeRenderTarget) Extent() gpu.Extent2D {
	return t.extent
}

func (t *fakeRenderTarget) Destroy() {
	t.destroyed = true
}

type fakeSetLayout struct {
	counts gpu.BindingCounts
}

func (l *fakeSetLayout) Bindings() gpu.BindingCounts {
	return l.counts
}

type fakeScenePipeline struct {
	id              uuid.UUID
	modelLayouts    []gpu.SetLayout
	viewLayouts     []gpu.SetLayout
	materialLayouts []gpu.SetLayout
	modelWrites     int
	viewWrites      int
	materialWrites  int
}

func newFakeScenePipeline() *fakeScenePipeline {
	return &fakeScenePipeline{
		id:              uuid.New(),
		modelLayouts:    []gpu.SetLayout{&fakeSetLayout{counts: gpu.BindingCounts{Uniforms: 2}}},
		viewLayouts:     []gpu.SetLayout{&fakeSetLayout{counts: gpu.BindingCounts{Uniforms: 2}}},
		materialLayouts: []gpu.SetLayout{&fakeSetLayout{counts: gpu.BindingCounts{Uniforms: 1, Samplers: 1}}},
	}
}

func (p *fakeScenePipeline) LayoutID() uuid.UUID {
	return p.id
}

func (p *fakeScenePipeline) ModelSetLayouts() []gpu.SetLayout {
	return p.modelLayouts
}

func (p *fakeScenePipeline) ViewSetLayouts() []gpu.SetLayout {
	return p.viewLayouts
}

func (p *fakeScenePipeline) MaterialSetLayouts() []gpu.SetLayout {
	return p.materialLayouts
}

func (p *fakeScenePipeline) WriteModelSet(group gpu.SetGroup, model gpu.Buffer, modelView gpu.Buffer) {
	p.modelWrites++
}

func (p *fakeScenePipeline) WriteViewSet(group gpu.SetGroup, view gpu.Buffer, proj gpu.Buffer) {
	p.viewWrites++
}

func (p *fakeScenePipeline) WriteMaterialSet(group gpu.SetGroup, material gpu.Buffer, albedo gpu.Texture) {
	p.materialWrites++
}

type fakePresentPipeline struct {
	id             uuid.UUID
	presentLayouts []gpu.SetLayout
	presentWrites  int
	writtenTargets []gpu.RenderTarget
}

func newFakePresentPipeline() *fakePresentPipeline {
	return &fakePresentPipeline{
		id:             uuid.New(),
		presentLayouts: []gpu.SetLayout{&fakeSetLayout{counts: gpu.BindingCounts{InputAttachments: 1}}},
	}
}

func (p *fakePresentPipeline) LayoutID() uuid.UUID {
	return p.id
}

func (p *fakePresentPipeline) PresentSetLayouts() []gpu.SetLayout {
	return p.presentLayouts
}

func (p *fakePresentPipeline) WritePresentSet(group gpu.SetGroup, target gpu.RenderTarget) {
	p.presentWrites++
	p.writtenTargets = append(p.writtenTargets, target)
}
