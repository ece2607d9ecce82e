package renderer

import (
	"testing"

	"github.com/Fahien/vkr-go/engine/gpu"
)

func TestBufferUploadSameSizeWritesInPlace(t *testing.T) {
	device := newFakeDevice()
	buffer, err := NewGPUBuffer(device, 64, gpu.BufferUsageUniform)
	if err != nil {
		t.Fatalf("failed to create buffer: %v", err)
	}

	for i := 0; i < 10; i++ {
		if err := buffer.Upload(make([]byte, 64)); err != nil {
			t.Fatalf("upload %d failed: %v", i, err)
		}
	}

	if device.buffersCreated != 1 {
		t.Fatalf("expected 1 allocation, got %d", device.buffersCreated)
	}
	if device.buffersDestroyed != 0 {
		t.Fatalf("expected no deallocations, got %d", device.buffersDestroyed)
	}
	if buffer.Size() != 64 {
		t.Fatalf("expected size 64, got %d", buffer.Size())
	}
}

func TestBufferUploadDifferentSizeReallocatesOnce(t *testing.T) {
	device := newFakeDevice()
	buffer, err := NewGPUBuffer(device, 64, gpu.BufferUsageUniform)
	if err != nil {
		t.Fatalf("failed to create buffer: %v", err)
	}
	if err := buffer.Upload(make([]byte, 64)); err != nil {
		t.Fatalf("first upload failed: %v", err)
	}

	if err := buffer.Upload(make([]byte, 128)); err != nil {
		t.Fatalf("resizing upload failed: %v", err)
	}

	if device.buffersCreated != 2 {
		t.Fatalf("expected exactly one reallocation, got %d allocations", device.buffersCreated)
	}
	if device.buffersDestroyed != 1 {
		t.Fatalf("expected the old allocation destroyed once, got %d", device.buffersDestroyed)
	}
	if buffer.Size() != 128 {
		t.Fatalf("expected size 128 after resize, got %d", buffer.Size())
	}
}

func TestBufferUploadShrinksToo(t *testing.T) {
	device := newFakeDevice()
	buffer, err := NewGPUBuffer(device, 128, gpu.BufferUsageVertex)
	if err != nil {
		t.Fatalf("failed to create buffer: %v", err)
	}

	if err := buffer.Upload(make([]byte, 16)); err != nil {
		t.Fatalf("shrinking upload failed: %v", err)
	}

	if buffer.Size() != 16 {
		t.Fatalf("expected size 16 after shrink, got %d", buffer.Size())
	}
	if device.buffersCreated != 2 || device.buffersDestroyed != 1 {
		t.Fatalf("expected one reallocation, got %d created %d destroyed",
			device.buffersCreated, device.buffersDestroyed)
	}
}

func TestBufferDestroyTwice(t *testing.T) {
	device := newFakeDevice()
	buffer, err := NewGPUBuffer(device, 32, gpu.BufferUsageIndex)
	if err != nil {
		t.Fatalf("failed to create buffer: %v", err)
	}

	buffer.Destroy()
	buffer.Destroy()

	if device.buffersDestroyed != 1 {
		t.Fatalf("expected one deallocation, got %d", device.buffersDestroyed)
	}
	if buffer.Size() != 0 {
		t.Fatalf("expected size 0 after destroy, got %d", buffer.Size())
	}
}
