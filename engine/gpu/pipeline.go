package gpu

import "github.com/google/uuid"

// Pipeline is a bound graphics pipeline. The renderer never inspects one
// beyond its layout identity; drivers type-assert their own concrete
// pipelines when binding.
type Pipeline interface {
	// LayoutID identifies the pipeline layout. Descriptor groups written
	// against one layout are never reused with another.
	LayoutID() uuid.UUID
}

// ScenePipeline renders entities. Sets bind in role order: model sets at
// set 0, view sets after them, material sets last. The Write methods fill
// freshly allocated groups; the descriptor cache guarantees each group is
// written exactly once, while the buffers it points at refresh every frame.
type ScenePipeline interface {
	Pipeline
	ModelSetLayouts() []SetLayout
	ViewSetLayouts() []SetLayout
	MaterialSetLayouts() []SetLayout
	// WriteModelSet points a model group at the entity's transform and
	// model-view buffers.
	WriteModelSet(group SetGroup, model Buffer, modelView Buffer)
	// WriteViewSet points a view group at the camera's view and projection
	// buffers.
	WriteViewSet(group SetGroup, view Buffer, proj Buffer)
	// WriteMaterialSet points a material group at the material's colour
	// buffer and albedo texture.
	WriteMaterialSet(group SetGroup, material Buffer, albedo Texture)
}

// PresentPipeline blits the offscreen attachments onto the chain image in
// the presentation subpass.
type PresentPipeline interface {
	Pipeline
	PresentSetLayouts() []SetLayout
	// WritePresentSet points a present group at the target's offscreen
	// attachments. The group goes stale when the target is destroyed.
	WritePresentSet(group SetGroup, target RenderTarget)
}
