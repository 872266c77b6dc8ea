package u32set

import "testing"

func TestArray16SpliceAndWiden(t *testing.T) {
	a := NewHeapAllocator()
	ids := make([]uint32, 0, 300)
	for i := uint32(0); i < 300; i++ {
		ids = append(ids, i*20)
	}
	h, err := Create(a, ids)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if h.kind() != kindArray16 {
		t.Fatalf("representation = %v, want Array16", h.kind())
	}

	// Insert an id far beyond array16Max: the splice path must widen to
	// Array32 rather than truncate the inserted value.
	h2, changed, err := TryAdd(h, a, array16Max+1000)
	if err != nil {
		t.Fatalf("TryAdd: %v", err)
	}
	if !changed {
		t.Fatalf("TryAdd reported unchanged")
	}
	if h2.kind() != kindArray32 {
		t.Fatalf("representation after widening = %v, want Array32", h2.kind())
	}
	if !Contains(h2, array16Max+1000) {
		t.Fatalf("Contains(array16Max+1000) = false after widening insert")
	}
	if !Contains(h, 0) {
		t.Fatalf("original handle h lost content after insert on h2")
	}
}

func TestArray16RemoveCollapsesToInline(t *testing.T) {
	a := NewHeapAllocator()
	h, err := Create(a, []uint32{1, 2, 3, 4, 5, 6, 7})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for _, id := range []uint32{1, 2} {
		h2, changed, err := TryRemove(h, a, id)
		if err != nil {
			t.Fatalf("TryRemove(%d): %v", id, err)
		}
		if !changed {
			t.Fatalf("TryRemove(%d) reported unchanged", id)
		}
		Release(h, a)
		h = h2
	}
	h2, changed, err := TryRemove(h, a, 3)
	if err != nil {
		t.Fatalf("TryRemove(3): %v", err)
	}
	if !changed {
		t.Fatalf("TryRemove(3) reported unchanged")
	}
	if Count(h2) != 4 {
		t.Fatalf("Count after collapse = %d, want 4", Count(h2))
	}
	Release(h, a)
	Release(h2, a)
}

func TestArray32NoWideningCases(t *testing.T) {
	a := NewHeapAllocator()
	ids := make([]uint32, 0, 300)
	for i := uint32(0); i < 300; i++ {
		ids = append(ids, 1<<20+i*2)
	}
	h, err := Create(a, ids)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if h.kind() != kindArray32 {
		t.Fatalf("representation = %v, want Array32", h.kind())
	}
	h2, changed, err := TryAdd(h, a, 1<<20+1)
	if err != nil {
		t.Fatalf("TryAdd: %v", err)
	}
	if !changed || h2.kind() != kindArray32 {
		t.Fatalf("TryAdd within range should stay Array32, got kind=%v changed=%v", h2.kind(), changed)
	}
}
