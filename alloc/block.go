// Package alloc provides the two allocators that back the engine: a block
// allocator for small objects with a long, variable lifetime (bodies, fixtures,
// contacts, joints) and a stack allocator for per-step scratch space.
package alloc

import (
	"iter"
	"unsafe"

	"github.com/ByteArena/box2d/v2/common"
)

const (
	// PageSize is the number of bytes carved into chunks when a size class runs dry.
	PageSize = 16 * 1024

	minBlockSize = 16

	// MaxBlockSize is the largest power-of-two size class. Larger objects get one
	// chunk per page.
	MaxBlockSize = 1024
)

// SizeClass maps an object size in bytes to its power-of-two size class.
func SizeClass(n int) int {
	common.Assert(n >= 0, "negative allocation size")
	if n <= minBlockSize {
		return minBlockSize
	}
	if common.IsPowerOfTwo(uint32(n)) {
		return n
	}
	return int(common.NextPowerOfTwo(uint32(n)))
}

// Handle identifies a pool slot. The generation detects use after free: a handle
// stays invalid forever once its slot has been freed.
type Handle struct {
	Index uint32
	Gen   uint32
}

// Nil is never issued by a pool.
var Nil = Handle{}

func (h Handle) IsNil() bool {
	return h.Gen == 0
}

type slot[T any] struct {
	value T
	gen   uint32
	live  bool
	next  int32
}

// Pool is a typed block allocator. Chunks of its size class are carved out of
// fixed pages; Alloc and Free are O(1) free-list operations and pages are never
// moved or released, so a pointer returned by Alloc stays valid until its handle
// is freed.
type Pool[T any] struct {
	pages    [][]slot[T]
	perPage  int
	freeList int32
	count    int
	capacity int
}

// NewPool sizes pages from the size class of T.
func NewPool[T any]() *Pool[T] {
	p := &Pool[T]{freeList: -1}
	p.init()
	return p
}

func (p *Pool[T]) init() {
	if p.perPage != 0 {
		return
	}
	var zero slot[T]
	class := SizeClass(int(unsafe.Sizeof(zero)))
	p.perPage = PageSize / class
	if p.perPage < 1 {
		p.perPage = 1
	}
	p.freeList = -1
}

func (p *Pool[T]) slot(index int32) *slot[T] {
	return &p.pages[int(index)/p.perPage][int(index)%p.perPage]
}

func (p *Pool[T]) grow() {
	base := p.capacity
	page := make([]slot[T], p.perPage)
	for i := range page {
		page[i].next = int32(base + i + 1)
	}
	page[len(page)-1].next = p.freeList
	p.pages = append(p.pages, page)
	p.capacity += p.perPage
	p.freeList = int32(base)
}

// Alloc returns a zeroed slot and its handle.
func (p *Pool[T]) Alloc() (Handle, *T) {
	p.init()
	if p.freeList < 0 {
		p.grow()
	}
	index := p.freeList
	s := p.slot(index)
	p.freeList = s.next
	s.next = -1
	s.live = true
	s.gen++
	if s.gen == 0 {
		// Zero is reserved for Nil.
		s.gen = 1
	}
	var zero T
	s.value = zero
	p.count++
	return Handle{Index: uint32(index), Gen: s.gen}, &s.value
}

// Free returns the slot to its free list. Freeing a stale handle panics.
func (p *Pool[T]) Free(h Handle) {
	s := p.lookup(h)
	if s == nil {
		common.Panicf("free of stale handle %+v", h)
	}
	var zero T
	s.value = zero
	s.live = false
	s.next = p.freeList
	p.freeList = int32(h.Index)
	p.count--
}

func (p *Pool[T]) lookup(h Handle) *slot[T] {
	if h.Gen == 0 || int(h.Index) >= p.capacity {
		return nil
	}
	s := p.slot(int32(h.Index))
	if !s.live || s.gen != h.Gen {
		return nil
	}
	return s
}

// Get resolves a handle. It reports false for nil or stale handles.
func (p *Pool[T]) Get(h Handle) (*T, bool) {
	s := p.lookup(h)
	if s == nil {
		return nil, false
	}
	return &s.value, true
}

// MustGet resolves a handle and panics on a stale one.
func (p *Pool[T]) MustGet(h Handle) *T {
	s := p.lookup(h)
	if s == nil {
		common.Panicf("stale handle %+v", h)
	}
	return &s.value
}

// Valid reports whether h refers to a live slot.
func (p *Pool[T]) Valid(h Handle) bool {
	return p.lookup(h) != nil
}

// Len is the number of live slots.
func (p *Pool[T]) Len() int {
	return p.count
}

// Cap is the number of slots carved so far.
func (p *Pool[T]) Cap() int {
	return p.capacity
}

// At returns the slot at index i, which must be below Cap, and whether it is
// live. It walks a pool without building an iterator.
func (p *Pool[T]) At(i int) (*T, bool) {
	s := p.slot(int32(i))
	return &s.value, s.live
}

// All yields live slots in index order. Freeing the yielded slot during iteration
// is allowed; slots allocated during iteration may or may not be visited.
func (p *Pool[T]) All() iter.Seq2[Handle, *T] {
	return func(yield func(Handle, *T) bool) {
		for i := 0; i < p.capacity; i++ {
			s := p.slot(int32(i))
			if !s.live {
				continue
			}
			if !yield(Handle{Index: uint32(i), Gen: s.gen}, &s.value) {
				return
			}
		}
	}
}
