// Package pool provides a fixed-slot free-list allocator for items of a single type.
//
// The allocator owns one pre-sized buffer holding a fixed number of slots. Free slots are
// threaded into a singly linked list through their own memory: the leading bytes of each
// free slot hold the buffer offset of the next free slot. Allocation pops the list head and
// freeing pushes onto it, so slots are reused in LIFO order and both operations are O(1).
package pool

import (
	"encoding/binary"
	"unsafe"

	"github.com/TheRetikGM/ren-utils/alloc"
	cerrors "github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"golang.org/x/exp/slog"
)

const (
	// Size of the free-list link word at the start of every free slot.
	linkWordSize = 8
	// Link word value marking the end of the free list.
	listEndWord = ^uint64(0)
	// Offset value marking the end of the free list.
	listEnd = -1
)

// Allocator hands out fixed-size slots for items of type T from a pre-sized buffer.
//
// Each slot is large enough for the bigger of T and the free-list link word, plus alignment
// padding. Allocated items are aligned using the recoverable-shift scheme from package alloc,
// so freeing an item does not require any bookkeeping outside the buffer itself.
//
// Allocator is not safe for concurrent use.
type Allocator[T any] struct {
	logger *slog.Logger

	// Holds all of the slots.
	pool []byte
	// Offset of the first free slot, or listEnd when the pool is exhausted.
	first  int
	stride int
	total  int
	used   int
	align  uint
	live   liveSet
}

// New creates an Allocator with room for numItems items of type T, each aligned to align
// bytes when allocated. align must be a power of two no greater than alloc.MaxAlign; it is
// raised to T's natural alignment if it is below it, so the returned item pointers are always
// properly aligned for T.
func New[T any](logger *slog.Logger, numItems int, align uint) (*Allocator[T], error) {
	if logger == nil {
		logger = slog.Default()
	}
	if numItems <= 0 {
		return nil, cerrors.Wrapf(alloc.InvalidSizeError, "invalid item count %d - it must be positive", numItems)
	}
	if err := alloc.CheckPow2(align, "align"); err != nil {
		return nil, err
	}
	if align > alloc.MaxAlign {
		return nil, cerrors.Newf("alignment %d is over the supported maximum of %d", align, alloc.MaxAlign)
	}

	var zero T
	if natural := uint(unsafe.Alignof(zero)); align < natural {
		align = natural
	}

	slotSize := int(unsafe.Sizeof(zero))
	if slotSize < linkWordSize {
		slotSize = linkWordSize
	}
	stride := slotSize + int(align)

	a := &Allocator[T]{
		logger: logger,
		pool:   make([]byte, numItems*stride),
		stride: stride,
		total:  numItems,
		align:  align,
		live:   newLiveSet(numItems),
	}

	// Thread every slot onto the free list, each pointing at its right neighbour.
	for i := 0; i < numItems; i++ {
		next := listEnd
		if i != numItems-1 {
			next = (i + 1) * stride
		}
		a.setNextFree(i*stride, next)
	}

	logger.Debug("PoolAllocator::New", slog.Int("NumItems", numItems), slog.Uint64("Align", uint64(align)), slog.Int("PoolBytes", len(a.pool)))
	return a, nil
}

func (a *Allocator[T]) nextFree(offset int) int {
	word := binary.LittleEndian.Uint64(a.pool[offset:])
	if word == listEndWord {
		return listEnd
	}
	return int(word)
}

func (a *Allocator[T]) setNextFree(offset, next int) {
	word := listEndWord
	if next != listEnd {
		word = uint64(next)
	}
	binary.LittleEndian.PutUint64(a.pool[offset:], word)
}

// Alloc reserves one slot and returns an aligned pointer to uninitialized item memory, or nil
// if all slots are in use.
func (a *Allocator[T]) Alloc() *T {
	if a.used == a.total {
		a.logger.Debug("PoolAllocator::Alloc FAILED", slog.Int("UsedItems", a.used), slog.Int("TotalItems", a.total))
		return nil
	}

	offset := a.first
	a.first = a.nextFree(offset)

	raw := unsafe.Add(unsafe.Pointer(unsafe.SliceData(a.pool)), offset)
	aligned := alloc.AlignPtrWithShift(raw, a.align)

	a.used++
	a.live.add(uintptr(aligned))
	return (*T)(aligned)
}

// New reserves one slot, copies value into it, and returns a pointer to the stored item, or
// nil if all slots are in use.
func (a *Allocator[T]) New(value T) *T {
	item := a.Alloc()
	if item == nil {
		return nil
	}
	*item = value
	return item
}

// Free returns the item's slot to the free list. The slot becomes the next one handed out by
// Alloc. Freeing nil is a no-op. The item's contents are left untouched; use Delete to tear
// the item down first.
func (a *Allocator[T]) Free(item *T) {
	if item == nil {
		return
	}
	a.live.remove(uintptr(unsafe.Pointer(item)))

	raw := alloc.OriginalPtr(unsafe.Pointer(item))
	offset := int(uintptr(raw) - uintptr(unsafe.Pointer(unsafe.SliceData(a.pool))))

	a.setNextFree(offset, a.first)
	a.first = offset
	a.used--
}

// Delete zeroes the item and returns its slot to the free list. Deleting nil is a no-op.
func (a *Allocator[T]) Delete(item *T) {
	if item == nil {
		return
	}
	var zero T
	*item = zero
	a.Free(item)
}

// FreeCount returns the number of free slots.
func (a *Allocator[T]) FreeCount() int {
	return a.total - a.used
}

// UsedCount returns the number of slots currently in use.
func (a *Allocator[T]) UsedCount() int {
	return a.used
}

// TotalCount returns the total number of slots fixed at construction.
func (a *Allocator[T]) TotalCount() int {
	return a.total
}

// Alignment returns the effective item alignment.
func (a *Allocator[T]) Alignment() uint {
	return a.align
}

// Validate walks the free list and performs internal consistency checks. When the
// implementation is functioning correctly it should not be possible for this method to return
// an error, but a caller freeing pointers that did not come from Alloc can corrupt the list in
// ways this method detects.
func (a *Allocator[T]) Validate() error {
	var freeSlots int
	for offset := a.first; offset != listEnd; offset = a.nextFree(offset) {
		if offset < 0 || offset >= len(a.pool) {
			return cerrors.Newf("free-list offset %d is outside the pool bounds [0, %d)", offset, len(a.pool))
		}
		if offset%a.stride != 0 {
			return cerrors.Newf("free-list offset %d is not a multiple of the slot stride %d", offset, a.stride)
		}
		freeSlots++
		if freeSlots > a.total {
			return cerrors.Newf("free list is longer than the %d slots in the pool - it must contain a cycle", a.total)
		}
	}

	if freeSlots != a.total-a.used {
		return cerrors.Newf("free list holds %d slots, but %d of %d slots are in use", freeSlots, a.used, a.total)
	}
	return nil
}

// AddStatistics accumulates this allocator's capacity and usage into stats.
func (a *Allocator[T]) AddStatistics(stats *alloc.PoolStatistics) {
	stats.TotalBytes += len(a.pool)
	stats.UsedBytes += a.used * a.stride
	stats.TotalItems += a.total
	stats.UsedItems += a.used
}

// StatsJson populates a json object with information about this allocator.
func (a *Allocator[T]) StatsJson(json jwriter.ObjectState) {
	json.Name("TotalBytes").Int(len(a.pool))
	json.Name("UsedBytes").Int(a.used * a.stride)
	json.Name("TotalItems").Int(a.total)
	json.Name("UsedItems").Int(a.used)
	json.Name("FreeItems").Int(a.total - a.used)
}

var _ alloc.Validatable = &Allocator[int]{}
