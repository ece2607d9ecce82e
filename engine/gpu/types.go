// Package gpu declares the device-facing types the renderer is written
// against. The vulkan package provides the real implementation; tests supply
// in-memory fakes.
package gpu

type Extent2D struct {
	Width  uint32
	Height uint32
}

// BufferUsage selects what a buffer binds as.
type BufferUsage uint8

const (
	BufferUsageUniform BufferUsage = iota
	BufferUsageVertex
	BufferUsageIndex
)

func (u BufferUsage) String() string {
	switch u {
	case BufferUsageUniform:
		return "uniform"
	case BufferUsageVertex:
		return "vertex"
	case BufferUsageIndex:
		return "index"
	}
	return "unknown"
}

// PoolSizes fixes the capacity of a descriptor pool. Pools never grow: an
// allocation past any limit fails with core.ErrPoolExhausted.
type PoolSizes struct {
	MaxSets          uint32
	Uniforms         uint32
	Samplers         uint32
	InputAttachments uint32
}

// DefaultPoolSizes returns capacities comfortable for a few hundred entities
// per frame slot. Applications override them through configuration.
func DefaultPoolSizes() PoolSizes {
	return PoolSizes{
		MaxSets:          512,
		Uniforms:         512,
		Samplers:         256,
		InputAttachments: 64,
	}
}

// BindingCounts is the number of descriptors of each kind one set allocated
// from a layout consumes.
type BindingCounts struct {
	Uniforms         uint32
	Samplers         uint32
	InputAttachments uint32
}

// SetLayout describes one descriptor set's shape. Implementations wrap the
// driver layout object; Bindings lets pools account for capacity.
type SetLayout interface {
	Bindings() BindingCounts
}
