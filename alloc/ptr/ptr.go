// Package ptr provides an owning handle that ties an object allocated inside one of the
// allocators in this module to the allocator operation that must reclaim it.
//
// Unlike the raw allocators, which report exhaustion with a nil result, the constructors in
// this package treat a failed allocation as a hard error and panic with a diagnostic carrying
// the requested size and the allocator's capacity and usage. A handle therefore always wraps
// a live object until Release is called.
package ptr

import (
	"unsafe"

	"github.com/TheRetikGM/ren-utils/alloc/pool"
	"github.com/TheRetikGM/ren-utils/alloc/stack"
	cerrors "github.com/cockroachdb/errors"
)

// Ptr is an owning handle for an object of type T placed inside an allocator. Exactly one
// handle owns a given live allocation; there is no sharing model. Releasing the handle tears
// the object down and reclaims its memory, after which the handle is empty.
type Ptr[T any] struct {
	value   *T
	release func(value *T)
}

// Get returns the held object. It panics if the handle was already released or was never
// initialized, since using memory after it was reclaimed is a hard usage bug.
func (p *Ptr[T]) Get() *T {
	if p.value == nil {
		panic(cerrors.New("use of an empty Ptr - the handle was already released or never initialized"))
	}
	return p.value
}

// IsNil returns true if the handle no longer owns an object.
func (p *Ptr[T]) IsNil() bool {
	return p.value == nil
}

// Release zeroes the held object, reclaims its memory from the originating allocator, and
// empties the handle. Releasing an empty handle is a no-op.
//
// For stack-backed handles the reclamation frees back to the marker taken just before the
// allocation, so handles must be released in the reverse of their allocation order; releasing
// out of order panics once the marker ordering check catches it.
func (p *Ptr[T]) Release() {
	if p.value == nil {
		return
	}
	p.release(p.value)
	p.value = nil
	p.release = nil
}

// NewInStack allocates value inside a stack allocator at T's natural alignment and returns an
// owning handle for it. It panics if the stack does not have enough room.
func NewInStack[T any](a *stack.Allocator, value T) Ptr[T] {
	return NewInStackAligned(a, uint(unsafe.Alignof(value)), value)
}

// NewInStackAligned allocates value inside a stack allocator at the given alignment and
// returns an owning handle for it. Alignments below T's natural alignment are raised to it.
// It panics if the stack does not have enough room.
func NewInStackAligned[T any](a *stack.Allocator, align uint, value T) Ptr[T] {
	if natural := uint(unsafe.Alignof(value)); align < natural {
		align = natural
	}

	marker := a.Marker()
	size := int(unsafe.Sizeof(value))
	mem := a.AllocAligned(size, align)
	if mem == nil {
		panic(cerrors.Newf("cannot allocate object in StackAllocator: wanted %d bytes, stack size %d, current size %d", size, a.Size(), a.CurrentSize()))
	}

	item := (*T)(mem)
	*item = value
	return Ptr[T]{
		value: item,
		release: func(item *T) {
			var zero T
			*item = zero
			err := a.FreeToMarker(marker)
			if err != nil {
				panic(err)
			}
		},
	}
}

// NewInDouble allocates value on one side of a double stack allocator at T's natural
// alignment and returns an owning handle for it. It panics if the allocation would make the
// two stacks overlap.
func NewInDouble[T any](a *stack.DoubleAllocator, side stack.Side, value T) Ptr[T] {
	return NewInDoubleAligned(a, side, uint(unsafe.Alignof(value)), value)
}

// NewInDoubleAligned allocates value on one side of a double stack allocator at the given
// alignment and returns an owning handle for it. Alignments below T's natural alignment are
// raised to it. It panics if the allocation would make the two stacks overlap.
func NewInDoubleAligned[T any](a *stack.DoubleAllocator, side stack.Side, align uint, value T) Ptr[T] {
	if natural := uint(unsafe.Alignof(value)); align < natural {
		align = natural
	}

	marker := a.Marker(side)
	size := int(unsafe.Sizeof(value))
	mem := a.AllocAligned(side, size, align)
	if mem == nil {
		panic(cerrors.Newf("cannot allocate object on the %s stack - the stacks would overlap. Total size %d, left size %d, right size %d, wanted %d bytes",
			side, a.Size(), a.CurrentSize(stack.SideLeft), a.CurrentSize(stack.SideRight), size))
	}

	item := (*T)(mem)
	*item = value
	return Ptr[T]{
		value: item,
		release: func(item *T) {
			var zero T
			*item = zero
			err := a.FreeToMarker(marker)
			if err != nil {
				panic(err)
			}
		},
	}
}

// NewInPool allocates value inside a pool allocator and returns an owning handle for it. It
// panics if all of the pool's slots are in use.
func NewInPool[T any](a *pool.Allocator[T], value T) Ptr[T] {
	item := a.New(value)
	if item == nil {
		panic(cerrors.Newf("cannot allocate object in PoolAllocator: all %d slots are in use, %d free", a.TotalCount(), a.FreeCount()))
	}

	return Ptr[T]{
		value: item,
		release: func(item *T) {
			a.Delete(item)
		},
	}
}
