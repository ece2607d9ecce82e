package containers

import "testing"

func TestPackPushGet(t *testing.T) {
	pack := NewPack[uint32]()

	h := pack.Push(42)
	if !h.Valid() {
		t.Fatal("handle from Push should be valid")
	}

	got, ok := pack.Get(h)
	if !ok {
		t.Fatal("Get failed for a live handle")
	}
	if *got != 42 {
		t.Errorf("Get returned %d, want 42", *got)
	}
}

func TestPackZeroHandle(t *testing.T) {
	pack := NewPack[int]()
	pack.Push(1)

	var none Handle[int]
	if none.Valid() {
		t.Error("zero handle should not be valid")
	}
	if _, ok := pack.Get(none); ok {
		t.Error("Get with the zero handle should fail")
	}
}

func TestPackMultiple(t *testing.T) {
	pack := NewPack[int]()

	handles := make([]Handle[int], 8)
	for i := range handles {
		handles[i] = pack.Push(i * 10)
	}

	for i, h := range handles {
		got, ok := pack.Get(h)
		if !ok {
			t.Fatalf("Get failed for handle %d", i)
		}
		if *got != i*10 {
			t.Errorf("handle %d resolved to %d, want %d", i, *got, i*10)
		}
	}
}

func TestPackRemoveKeepsOtherHandles(t *testing.T) {
	pack := NewPack[string]()

	a := pack.Push("a")
	b := pack.Push("b")
	c := pack.Push("c")

	if !pack.Remove(a) {
		t.Fatal("Remove failed for a live handle")
	}
	if pack.Len() != 2 {
		t.Fatalf("Len = %d after removal, want 2", pack.Len())
	}

	if _, ok := pack.Get(a); ok {
		t.Error("removed handle should no longer resolve")
	}
	for _, tc := range []struct {
		h    Handle[string]
		want string
	}{{b, "b"}, {c, "c"}} {
		got, ok := pack.Get(tc.h)
		if !ok {
			t.Fatalf("handle for %q went stale after an unrelated removal", tc.want)
		}
		if *got != tc.want {
			t.Errorf("handle resolved to %q, want %q", *got, tc.want)
		}
	}
}

func TestPackSlotReuse(t *testing.T) {
	pack := NewPack[int]()

	a := pack.Push(1)
	pack.Push(2)
	pack.Remove(a)

	d := pack.Push(3)
	if pack.Len() != 2 {
		t.Fatalf("Len = %d, want 2", pack.Len())
	}
	got, ok := pack.Get(d)
	if !ok || *got != 3 {
		t.Fatalf("recycled slot did not resolve to the new element")
	}
}

func TestPackGetMutates(t *testing.T) {
	pack := NewPack[int]()

	h := pack.Push(1)
	got, _ := pack.Get(h)
	*got = 7

	again, _ := pack.Get(h)
	if *again != 7 {
		t.Errorf("mutation through Get was lost, got %d", *again)
	}
}

func TestPackEach(t *testing.T) {
	pack := NewPack[int]()

	h0 := pack.Push(10)
	pack.Push(20)
	pack.Remove(h0)

	seen := 0
	pack.Each(func(h Handle[int], v *int) {
		seen++
		got, ok := pack.Get(h)
		if !ok {
			t.Fatal("Each yielded a handle that does not resolve")
		}
		if got != v {
			t.Error("Each handle resolves to a different element than it yielded")
		}
	})
	if seen != 1 {
		t.Errorf("Each visited %d elements, want 1", seen)
	}
}
