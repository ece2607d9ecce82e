package containers

const noIndex = ^uint32(0)

// Handle is a stable, copyable reference to an element stored in a Pack.
// The zero value refers to nothing. Handles survive removal of other
// elements and can be used as map keys.
type Handle[T any] struct {
	id uint32
}

// NewHandle builds a handle from a raw slot id. Mostly useful in tests;
// normal code receives handles from Pack.Push.
func NewHandle[T any](id uint32) Handle[T] {
	return Handle[T]{id: id + 1}
}

// NoneHandle returns a handle referring to nothing.
func NoneHandle[T any]() Handle[T] {
	return Handle[T]{}
}

// Valid reports whether the handle refers to something.
func (h Handle[T]) Valid() bool {
	return h.id != 0
}

// ID returns the raw slot id. Only valid handles have a meaningful id.
func (h Handle[T]) ID() uint32 {
	return h.id - 1
}

// Pack is an arena of elements addressed through stable handles.
// Elements live in a dense slice so iteration stays cache-friendly, while
// a slot table keeps handles valid as elements move during removal.
// Removing an element frees its slot for reuse by a later Push.
//
// Not safe for concurrent use; callers confine a Pack to a single goroutine.
type Pack[T any] struct {
	// dense element storage
	items []T
	// position of each element's slot id, parallel to items
	ids []uint32
	// slot id -> position in items, or noIndex when free
	indices []uint32
	// slot ids available for reuse
	free []uint32
}

func NewPack[T any]() *Pack[T] {
	return &Pack[T]{}
}

// Push stores an element and returns a stable handle to it.
func (p *Pack[T]) Push(item T) Handle[T] {
	pos := uint32(len(p.items))
	p.items = append(p.items, item)

	var id uint32
	if n := len(p.free); n > 0 {
		id = p.free[n-1]
		p.free = p.free[:n-1]
		p.indices[id] = pos
	} else {
		id = uint32(len(p.indices))
		p.indices = append(p.indices, pos)
	}
	p.ids = append(p.ids, id)

	return Handle[T]{id: id + 1}
}

// Get returns a pointer to the element the handle refers to, or false when
// the handle is none, stale, or out of range. The pointer is only good until
// the next Push or Remove.
func (p *Pack[T]) Get(h Handle[T]) (*T, bool) {
	pos, ok := p.position(h)
	if !ok {
		return nil, false
	}
	return &p.items[pos], true
}

// Remove frees the element the handle refers to, keeping every other handle
// valid. The freed slot is recycled by a later Push. Returns false when the
// handle refers to nothing.
func (p *Pack[T]) Remove(h Handle[T]) bool {
	pos, ok := p.position(h)
	if !ok {
		return false
	}
	id := h.id - 1

	// Swap the last element into the hole and fix up its slot.
	last := uint32(len(p.items) - 1)
	movedID := p.ids[last]
	p.items[pos] = p.items[last]
	p.ids[pos] = movedID
	p.items = p.items[:last]
	p.ids = p.ids[:last]
	if movedID != id {
		p.indices[movedID] = pos
	}

	p.indices[id] = noIndex
	p.free = append(p.free, id)
	return true
}

// Len returns the number of stored elements.
func (p *Pack[T]) Len() int {
	return len(p.items)
}

// Each visits every stored element together with its handle. The visit order
// is storage order, which changes across removals.
func (p *Pack[T]) Each(fn func(Handle[T], *T)) {
	for pos := range p.items {
		fn(Handle[T]{id: p.ids[pos] + 1}, &p.items[pos])
	}
}

func (p *Pack[T]) position(h Handle[T]) (uint32, bool) {
	if !h.Valid() {
		return 0, false
	}
	id := h.id - 1
	if id >= uint32(len(p.indices)) {
		return 0, false
	}
	pos := p.indices[id]
	if pos == noIndex {
		return 0, false
	}
	return pos, true
}
