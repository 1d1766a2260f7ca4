package alloc

import (
	"testing"
)

type chunk struct {
	a, b float64
	id   int
}

func TestSizeClass(t *testing.T) {
	tests := []struct {
		n, want int
	}{
		{0, 16},
		{1, 16},
		{16, 16},
		{17, 32},
		{64, 64},
		{65, 128},
		{700, 1024},
		{3000, 4096},
	}
	for _, tt := range tests {
		if got := SizeClass(tt.n); got != tt.want {
			t.Errorf("SizeClass(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestPoolReusesFreedSlot(t *testing.T) {
	p := NewPool[chunk]()
	h1, c1 := p.Alloc()
	c1.id = 7
	h2, _ := p.Alloc()
	if p.Len() != 2 {
		t.Fatalf("Len = %d, want 2", p.Len())
	}

	p.Free(h1)
	if _, ok := p.Get(h1); ok {
		t.Fatal("freed handle still resolves")
	}

	h3, c3 := p.Alloc()
	if h3.Index != h1.Index {
		t.Errorf("expected slot %d to be reused, got %d", h1.Index, h3.Index)
	}
	if h3.Gen == h1.Gen {
		t.Errorf("generation not bumped on reuse")
	}
	if c3.id != 0 {
		t.Errorf("reused slot not zeroed: %+v", *c3)
	}
	if _, ok := p.Get(h1); ok {
		t.Error("stale handle resolves after reuse")
	}
	if got := p.MustGet(h2); got == nil {
		t.Error("live handle does not resolve")
	}
}

func TestPoolGrowsAndKeepsPointers(t *testing.T) {
	p := NewPool[chunk]()
	handles := make([]Handle, 0, 5000)
	ptrs := make([]*chunk, 0, 5000)
	for i := 0; i < 5000; i++ {
		h, c := p.Alloc()
		c.id = i
		handles = append(handles, h)
		ptrs = append(ptrs, c)
	}
	if p.Cap() < 5000 || p.Cap()%p.perPage != 0 {
		t.Fatalf("Cap = %d with %d per page", p.Cap(), p.perPage)
	}
	for i, h := range handles {
		c, ok := p.Get(h)
		if !ok || c != ptrs[i] || c.id != i {
			t.Fatalf("slot %d moved or lost", i)
		}
	}

	n := 0
	for h, c := range p.All() {
		if int(h.Index) != c.id {
			t.Fatalf("iteration out of index order at %d", c.id)
		}
		n++
	}
	if n != 5000 {
		t.Errorf("iterated %d slots", n)
	}
}

func TestPoolFreeStalePanics(t *testing.T) {
	p := NewPool[chunk]()
	h, _ := p.Alloc()
	p.Free(h)
	defer func() {
		if recover() == nil {
			t.Fatal("double free did not panic")
		}
	}()
	p.Free(h)
}

func TestZeroPoolIsUsable(t *testing.T) {
	var p Pool[int]
	if _, ok := p.Get(Handle{Index: 0, Gen: 1}); ok {
		t.Fatal("empty pool resolved a handle")
	}
	h, v := p.Alloc()
	*v = 3
	if h.IsNil() || *p.MustGet(h) != 3 {
		t.Fatalf("zero pool alloc failed: %+v", h)
	}
}

func TestStackLIFO(t *testing.T) {
	s := NewStack[float64](8)
	a := s.Alloc(3)
	b := s.Alloc(4)
	a[0], b[0] = 1, 2
	if s.Allocated() != 7 || s.Depth() != 2 {
		t.Fatalf("allocated %d depth %d", s.Allocated(), s.Depth())
	}
	s.Free(b)
	s.Free(a)
	if s.Allocated() != 0 || s.Depth() != 0 {
		t.Fatalf("allocated %d depth %d after free", s.Allocated(), s.Depth())
	}

	c := s.Alloc(3)
	if c[0] != 0 {
		t.Errorf("stack memory not cleared: %v", c)
	}
	s.Free(c)
}

func TestStackGrowsAfterOverflow(t *testing.T) {
	s := NewStack[int](4)
	a := s.Alloc(3)
	b := s.Alloc(5) // spills to the heap
	b[4] = 9
	s.Free(b)
	s.Free(a)
	if s.Size() < 8 {
		t.Errorf("arena did not grow to the high-water mark: %d", s.Size())
	}
	if s.MaxAllocation() != 8 {
		t.Errorf("MaxAllocation = %d", s.MaxAllocation())
	}
}

func TestStackOutOfOrderFreePanics(t *testing.T) {
	s := NewStack[int](16)
	a := s.Alloc(2)
	_ = s.Alloc(2)
	defer func() {
		if recover() == nil {
			t.Fatal("out of order free did not panic")
		}
	}()
	s.Free(a)
}

func TestPoolMustGetDoesNotAllocate(t *testing.T) {
	p := NewPool[chunk]()
	h, _ := p.Alloc()
	allocs := testing.AllocsPerRun(1000, func() {
		if p.MustGet(h).id != 0 {
			t.Fatal("unexpected value")
		}
	})
	if allocs != 0 {
		t.Errorf("MustGet allocates %.1f times per call", allocs)
	}
}

func TestStackSteadyStateDoesNotAllocate(t *testing.T) {
	s := NewStack[float64](DefaultStackSize)
	// The first round sizes the entry list.
	a := s.Alloc(300)
	b := s.Alloc(300)
	s.Free(b)
	s.Free(a)

	allocs := testing.AllocsPerRun(1000, func() {
		a := s.Alloc(300)
		b := s.Alloc(300)
		s.Free(b)
		s.Free(a)
		s.Reset()
	})
	if allocs != 0 {
		t.Errorf("Alloc/Free allocates %.1f times per round", allocs)
	}
}
