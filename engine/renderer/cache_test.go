package renderer

import (
	"testing"

	"github.com/Fahien/vkr-go/engine/containers"
	"github.com/Fahien/vkr-go/engine/gpu"
	"github.com/Fahien/vkr-go/engine/scene"
)

func TestCacheCreatesOncePerHandle(t *testing.T) {
	device := newFakeDevice()
	cache := NewBufferCache[scene.Node](device, gpu.BufferUsageUniform)
	handle := containers.NewHandle[scene.Node](0)

	first, created, err := cache.GetOrCreate(handle, mat4Size)
	if err != nil {
		t.Fatalf("failed to create buffer: %v", err)
	}
	if !created {
		t.Fatal("first request should create the buffer")
	}

	for i := 0; i < 99; i++ {
		buffer, created, err := cache.GetOrCreate(handle, mat4Size)
		if err != nil {
			t.Fatalf("request %d failed: %v", i, err)
		}
		if created {
			t.Fatalf("request %d created a second buffer for the same handle", i)
		}
		if buffer != first {
			t.Fatalf("request %d returned a different buffer", i)
		}
	}

	if device.buffersCreated != 1 {
		t.Fatalf("expected exactly one allocation, got %d", device.buffersCreated)
	}
	if cache.Len() != 1 {
		t.Fatalf("expected one cached buffer, got %d", cache.Len())
	}
}

func TestCacheZeroInitializesNewBuffers(t *testing.T) {
	device := newFakeDevice()
	cache := NewBufferCache[scene.Node](device, gpu.BufferUsageUniform)

	buffer, _, err := cache.GetOrCreate(containers.NewHandle[scene.Node](3), 16)
	if err != nil {
		t.Fatalf("failed to create buffer: %v", err)
	}

	fake := buffer.Backing().(*fakeBuffer)
	if fake.writes != 1 {
		t.Fatalf("expected the zero-initializing write, got %d writes", fake.writes)
	}
	for i, b := range fake.data {
		if b != 0 {
			t.Fatalf("byte %d not zeroed: %d", i, b)
		}
	}
}

func TestCacheDistinctHandlesGetDistinctBuffers(t *testing.T) {
	device := newFakeDevice()
	cache := NewBufferCache[scene.Node](device, gpu.BufferUsageUniform)

	a, _, err := cache.GetOrCreate(containers.NewHandle[scene.Node](0), mat4Size)
	if err != nil {
		t.Fatalf("failed to create first buffer: %v", err)
	}
	b, _, err := cache.GetOrCreate(containers.NewHandle[scene.Node](1), mat4Size)
	if err != nil {
		t.Fatalf("failed to create second buffer: %v", err)
	}

	if a == b {
		t.Fatal("distinct handles must not share a buffer")
	}
	if device.buffersCreated != 2 {
		t.Fatalf("expected two allocations, got %d", device.buffersCreated)
	}
}

func TestCacheMustGetPanicsBeforeCreation(t *testing.T) {
	device := newFakeDevice()
	cache := NewBufferCache[scene.Node](device, gpu.BufferUsageUniform)

	defer func() {
		if recover() == nil {
			t.Fatal("MustGet on an empty cache should panic")
		}
	}()
	cache.MustGet(containers.NewHandle[scene.Node](7))
}

func TestCacheDestroyReleasesBuffers(t *testing.T) {
	device := newFakeDevice()
	cache := NewBufferCache[scene.Node](device, gpu.BufferUsageUniform)
	for i := uint32(0); i < 4; i++ {
		if _, _, err := cache.GetOrCreate(containers.NewHandle[scene.Node](i), mat4Size); err != nil {
			t.Fatalf("failed to create buffer %d: %v", i, err)
		}
	}

	cache.Destroy()

	if device.buffersDestroyed != 4 {
		t.Fatalf("expected 4 deallocations, got %d", device.buffersDestroyed)
	}
	if cache.Len() != 0 {
		t.Fatalf("expected an empty cache, got %d entries", cache.Len())
	}
}
