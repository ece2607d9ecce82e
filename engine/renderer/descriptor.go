package renderer

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/Fahien/vkr-go/engine/containers"
	"github.com/Fahien/vkr-go/engine/core"
	"github.com/Fahien/vkr-go/engine/gpu"
)

// DescriptorAllocator fronts one fixed-capacity descriptor pool and keeps
// track of every group it hands out. Pools never grow at runtime: capacity
// comes from configuration, and exhausting it is a sizing bug surfaced as
// core.ErrPoolExhausted.
type DescriptorAllocator struct {
	pool   gpu.DescriptorPool
	issued map[gpu.SetGroup]struct{}
}

// NewDescriptorAllocator creates the backing pool with the given capacity.
func NewDescriptorAllocator(device gpu.Device, sizes gpu.PoolSizes) (*DescriptorAllocator, error) {
	pool, err := device.CreateDescriptorPool(sizes)
	if err != nil {
		err = fmt.Errorf("failed to create descriptor pool: %w", err)
		core.LogError(err.Error())
		return nil, err
	}
	return &DescriptorAllocator{
		pool:   pool,
		issued: make(map[gpu.SetGroup]struct{}),
	}, nil
}

// Allocate carves one descriptor group out of the pool, a set per layout.
func (a *DescriptorAllocator) Allocate(layouts []gpu.SetLayout) (gpu.SetGroup, error) {
	group, err := a.pool.Allocate(layouts)
	if err != nil {
		err = fmt.Errorf("failed to allocate descriptor group of %d sets: %w", len(layouts), err)
		core.LogError(err.Error())
		return nil, err
	}
	a.issued[group] = struct{}{}
	return group, nil
}

// Free returns a group to the pool. Handing back a group this allocator
// never issued is a bug in the caller and panics.
func (a *DescriptorAllocator) Free(group gpu.SetGroup) {
	if _, ok := a.issued[group]; !ok {
		panic("freeing a descriptor group from a different allocator")
	}
	delete(a.issued, group)
	if err := a.pool.Free(group); err != nil {
		core.LogWarn("failed to free descriptor group: %s", err.Error())
	}
}

// IssuedCount returns how many groups are currently out of the pool.
func (a *DescriptorAllocator) IssuedCount() int {
	return len(a.issued)
}

// Destroy tears down the pool. Outstanding groups go with it.
func (a *DescriptorAllocator) Destroy() {
	a.pool.Destroy()
	a.issued = make(map[gpu.SetGroup]struct{})
}

type descriptorKey[T any] struct {
	layout uuid.UUID
	handle containers.Handle[T]
}

// DescriptorCache memoizes descriptor groups per pipeline layout and entity
// handle. A group is allocated and written once, on first request; from then
// on binding is a map lookup, and only the buffer contents behind the group
// change frame to frame.
type DescriptorCache[T any] struct {
	allocator *DescriptorAllocator
	groups    map[descriptorKey[T]]gpu.SetGroup
}

// NewDescriptorCache creates an empty cache drawing from allocator.
func NewDescriptorCache[T any](allocator *DescriptorAllocator) *DescriptorCache[T] {
	return &DescriptorCache[T]{
		allocator: allocator,
		groups:    make(map[descriptorKey[T]]gpu.SetGroup),
	}
}

// BindOrCreate returns the group for the layout and handle pair. On a miss
// it allocates a group for layouts and invokes write on it, exactly once
// for the lifetime of the pair.
func (c *DescriptorCache[T]) BindOrCreate(layoutID uuid.UUID, handle containers.Handle[T], layouts []gpu.SetLayout, write func(gpu.SetGroup)) (gpu.SetGroup, error) {
	key := descriptorKey[T]{layout: layoutID, handle: handle}
	if group, ok := c.groups[key]; ok {
		return group, nil
	}
	group, err := c.allocator.Allocate(layouts)
	if err != nil {
		return nil, err
	}
	write(group)
	c.groups[key] = group
	return group, nil
}

// Len returns the number of cached groups.
func (c *DescriptorCache[T]) Len() int {
	return len(c.groups)
}

// Clear forgets every cached group without freeing them; use when the
// allocator's pool is being destroyed wholesale.
func (c *DescriptorCache[T]) Clear() {
	c.groups = make(map[descriptorKey[T]]gpu.SetGroup)
}
