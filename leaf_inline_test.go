package u32set

import "testing"

func TestInlinePackUnpack(t *testing.T) {
	h1 := buildInline1(42)
	if got := inline1Get(h1); got != 42 {
		t.Fatalf("inline1Get = %d, want 42", got)
	}

	h2 := buildInline2(10, 20)
	a, b := inline2Get(h2)
	if a != 10 || b != 20 {
		t.Fatalf("inline2Get = (%d, %d), want (10, 20)", a, b)
	}

	h3 := buildInline3(1, 2, 3)
	ids3 := inline3Get(h3)
	if ids3 != [3]uint32{1, 2, 3} {
		t.Fatalf("inline3Get = %v, want [1 2 3]", ids3)
	}

	h4 := buildInline4(1, 3, 5, 7)
	ids4 := inline4Get(h4)
	if ids4 != [4]uint32{1, 3, 5, 7} {
		t.Fatalf("inline4Get = %v, want [1 3 5 7]", ids4)
	}
}

func TestInlineContainsAndCount(t *testing.T) {
	h := buildInline4(1, 3, 5, 7)
	if Count(h) != 4 {
		t.Fatalf("Count = %d, want 4", Count(h))
	}
	for _, id := range []uint32{1, 3, 5, 7} {
		if !Contains(h, id) {
			t.Fatalf("Contains(%d) = false, want true", id)
		}
	}
	for _, id := range []uint32{0, 2, 4, 6, 8} {
		if Contains(h, id) {
			t.Fatalf("Contains(%d) = true, want false", id)
		}
	}
}

// TestInlineStreamReaderFidelity covers scenario S3 of spec.md §8: adding
// [7, 3, 5, 1] in that order from Empty yields Inline4 holding [1,3,5,7].
func TestInlineStreamReaderFidelity(t *testing.T) {
	a := NewHeapAllocator()
	h := Empty()
	for _, id := range []uint32{7, 3, 5, 1} {
		nh, err := Add(h, a, id)
		if err != nil {
			t.Fatalf("Add(%d): %v", id, err)
		}
		h = nh
	}
	if h.kind() != kindInline4 {
		t.Fatalf("representation = %v, want Inline4", h.kind())
	}
	if Count(h) != 4 {
		t.Fatalf("Count = %d, want 4", Count(h))
	}

	r := NewStreamReader(h)
	buf := make([]uint32, 8)
	n := r.Read(buf)
	if n != 4 || buf[0] != 1 || buf[1] != 3 || buf[2] != 5 || buf[3] != 7 {
		t.Fatalf("stream = %v (n=%d), want [1 3 5 7]", buf[:n], n)
	}
}
