package containers

import "testing"

func TestRingQueueEnqueueDequeue(t *testing.T) {
	rq := NewRingQueue[int](4)

	for i := 0; i < 4; i++ {
		if err := rq.Enqueue(i); err != nil {
			t.Fatalf("Enqueue(%d) failed: %v", i, err)
		}
	}
	if !rq.IsFull() {
		t.Error("queue should be full after filling capacity")
	}
	if err := rq.Enqueue(4); err == nil {
		t.Error("Enqueue on a full queue should fail")
	}

	for i := 0; i < 4; i++ {
		v, err := rq.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue %d failed: %v", i, err)
		}
		if v != i {
			t.Errorf("Dequeue returned %d, want %d", v, i)
		}
	}
	if !rq.IsEmpty() {
		t.Error("queue should be empty after draining")
	}
	if _, err := rq.Dequeue(); err == nil {
		t.Error("Dequeue on an empty queue should fail")
	}
}

func TestRingQueueWrapAround(t *testing.T) {
	rq := NewRingQueue[int](3)

	// Fill, half-drain, refill to force index wrap.
	rq.Enqueue(0)
	rq.Enqueue(1)
	rq.Enqueue(2)
	rq.Dequeue()
	rq.Dequeue()
	rq.Enqueue(3)
	rq.Enqueue(4)

	want := []int{2, 3, 4}
	for _, w := range want {
		v, err := rq.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue failed: %v", err)
		}
		if v != w {
			t.Errorf("Dequeue returned %d, want %d", v, w)
		}
	}
}

func TestRingQueuePeekAndEach(t *testing.T) {
	rq := NewRingQueue[string](3)
	rq.Enqueue("a")
	rq.Enqueue("b")

	front, err := rq.Peek()
	if err != nil {
		t.Fatalf("Peek failed: %v", err)
	}
	if front != "a" {
		t.Errorf("Peek returned %q, want %q", front, "a")
	}
	if rq.Len() != 2 {
		t.Errorf("Peek should not consume, Len = %d, want 2", rq.Len())
	}

	var seen []string
	rq.Each(func(s string) { seen = append(seen, s) })
	if len(seen) != 2 || seen[0] != "a" || seen[1] != "b" {
		t.Errorf("Each visited %v, want [a b]", seen)
	}
}
