package vulkan

import "sync"

// lockGroup names a class of driver objects whose calls must not interleave.
// The render loop itself is single-goroutine; the groups exist for the paths
// that are not: texture staging uploads and queue submission both touch the
// graphics queue, and the command pool is shared by every allocation.
type lockGroup string

const (
	queueManagement       lockGroup = "queue_management"
	commandPoolManagement lockGroup = "command_pool_management"
)

// lockPool hands out one mutex per lock group on demand.
type lockPool struct {
	mu    sync.Mutex
	locks map[lockGroup]*sync.Mutex
}

func newLockPool() *lockPool {
	return &lockPool{
		locks: make(map[lockGroup]*sync.Mutex),
	}
}

func (p *lockPool) acquire(group lockGroup) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()

	l, exists := p.locks[group]
	if !exists {
		l = &sync.Mutex{}
		p.locks[group] = l
	}
	l.Lock()
	return l
}

// SafeCall runs fn while holding the group's mutex.
func (p *lockPool) SafeCall(group lockGroup, fn func() error) error {
	l := p.acquire(group)
	defer l.Unlock()

	return fn()
}
