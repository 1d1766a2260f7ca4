package alloc

import "github.com/ByteArena/box2d/v2/common"

// DefaultStackSize is the initial arena length of a Stack, in elements.
const DefaultStackSize = 1024

type stackEntry struct {
	offset int
	n      int
	heap   bool
}

// Stack is a LIFO scratch allocator. Every Alloc must be matched by a Free in exact
// reverse order; anything else is a programming error and panics. When the arena is
// exhausted the request is served from the heap and the arena grows to the
// high-water mark the next time the stack is empty.
type Stack[T any] struct {
	data      []T
	index     int
	allocated int
	maxAlloc  int
	entries   []stackEntry
	heap      [][]T
}

// NewStack creates a stack whose arena holds size elements.
func NewStack[T any](size int) *Stack[T] {
	if size <= 0 {
		size = DefaultStackSize
	}
	return &Stack[T]{data: make([]T, size)}
}

// Alloc returns n zeroed elements.
func (s *Stack[T]) Alloc(n int) []T {
	common.Assert(n >= 0, "negative stack allocation")
	e := stackEntry{offset: s.index, n: n}
	var out []T
	if s.index+n > len(s.data) {
		e.heap = true
		out = make([]T, n)
		s.heap = append(s.heap, out)
	} else {
		out = s.data[s.index : s.index+n : s.index+n]
		clear(out)
		s.index += n
	}
	s.allocated += n
	s.maxAlloc = max(s.maxAlloc, s.allocated)
	s.entries = append(s.entries, e)
	return out
}

// Free releases the most recent allocation, which must be buf.
func (s *Stack[T]) Free(buf []T) {
	common.Assert(len(s.entries) > 0, "stack free without allocation")
	e := s.entries[len(s.entries)-1]
	if e.n != len(buf) {
		common.Panicf("stack free out of order: top has %d elements, got %d", e.n, len(buf))
	}
	if e.heap {
		top := s.heap[len(s.heap)-1]
		common.Assert(len(top) == 0 || &top[0] == &buf[0], "stack free out of order")
		s.heap = s.heap[:len(s.heap)-1]
	} else {
		common.Assert(e.n == 0 || &s.data[e.offset] == &buf[0], "stack free out of order")
		s.index -= e.n
	}
	s.allocated -= e.n
	s.entries = s.entries[:len(s.entries)-1]

	if len(s.entries) == 0 && s.maxAlloc > len(s.data) {
		s.data = make([]T, s.maxAlloc)
	}
}

// Reset checks that every allocation has been returned. Stacks are reused from
// step to step and must be empty in between.
func (s *Stack[T]) Reset() {
	if len(s.entries) != 0 {
		common.Panicf("stack reset with %d outstanding allocations", len(s.entries))
	}
	s.index = 0
	s.allocated = 0
}

// Depth is the number of outstanding allocations.
func (s *Stack[T]) Depth() int {
	return len(s.entries)
}

// Allocated is the number of outstanding elements.
func (s *Stack[T]) Allocated() int {
	return s.allocated
}

// MaxAllocation is the high-water mark in elements.
func (s *Stack[T]) MaxAllocation() int {
	return s.maxAlloc
}

// Size is the arena length in elements.
func (s *Stack[T]) Size() int {
	return len(s.data)
}
