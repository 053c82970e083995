package stack

import (
	"math"
	"unsafe"

	"github.com/TheRetikGM/ren-utils/alloc"
	cerrors "github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"golang.org/x/exp/slog"
)

// Marker identifies a position between allocated regions in a stack allocator. It is obtained
// from Allocator.Marker and consumed by Allocator.FreeToMarker.
type Marker int

// InvalidMarker is a reserved Marker value that never identifies a valid stack position.
const InvalidMarker Marker = math.MaxInt

// Allocator carves allocations out of a single fixed-size buffer in stack order. New
// allocations are bumped onto the top of the stack, and memory can only be reclaimed
// from the top down, either wholesale with Clear or back to a saved Marker.
//
// Allocator is not safe for concurrent use.
type Allocator struct {
	logger *slog.Logger

	// Holds the stack memory. All the allocations point into this buffer.
	memory []byte
	// Offset one past the last allocated byte.
	top int
}

var _ alloc.Validatable = &Allocator{}

// New creates an empty Allocator with the requested stack size in bytes. It returns
// InvalidSizeError if stackSize is not positive or collides with the InvalidMarker sentinel.
func New(logger *slog.Logger, stackSize int) (*Allocator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if stackSize <= 0 || Marker(stackSize) == InvalidMarker {
		return nil, cerrors.Wrapf(alloc.InvalidSizeError, "invalid stack size %d - it must be positive and cannot equal %d", stackSize, InvalidMarker)
	}

	logger.Debug("StackAllocator::New", slog.Int("StackSize", stackSize))
	return &Allocator{
		logger: logger,
		memory: make([]byte, stackSize),
	}, nil
}

// Alloc reserves nBytes bytes on top of the stack and returns a pointer to the start of the
// reserved region, or nil if the stack does not have enough room left. The reservation is
// all-or-nothing.
func (a *Allocator) Alloc(nBytes int) unsafe.Pointer {
	if nBytes < 0 {
		panic(cerrors.Newf("negative allocation size %d", nBytes))
	}
	if a.top+nBytes > len(a.memory) {
		a.logger.Debug("StackAllocator::Alloc FAILED", slog.Int("Size", nBytes), slog.Int("UsedBytes", a.top), slog.Int("TotalBytes", len(a.memory)))
		return nil
	}

	offset := a.top
	a.top += nBytes
	return unsafe.Add(unsafe.Pointer(unsafe.SliceData(a.memory)), offset)
}

// AllocAligned reserves nBytes bytes plus align bytes of padding and returns a pointer that is
// a multiple of align, or nil if the stack does not have enough room left. The base of the
// padded region can be recovered later with AlignedBase.
//
// align must be a power of two no greater than alloc.MaxAlign; violating that is a programming
// error and panics.
func (a *Allocator) AllocAligned(nBytes int, align uint) unsafe.Pointer {
	if err := alloc.CheckPow2(align, "align"); err != nil {
		panic(err)
	}
	if align > alloc.MaxAlign {
		panic(cerrors.Newf("alignment %d is over the supported maximum of %d", align, alloc.MaxAlign))
	}

	mem := a.Alloc(nBytes + int(align))
	if mem == nil {
		return nil
	}
	return alloc.AlignPtrWithShift(mem, align)
}

// AlignedBase returns the base address of the padded region backing a pointer returned from
// AllocAligned. The result is undefined if alignedMem did not come from AllocAligned on this
// allocator. A nil pointer yields nil.
func (a *Allocator) AlignedBase(alignedMem unsafe.Pointer) unsafe.Pointer {
	if alignedMem == nil {
		return nil
	}
	return alloc.OriginalPtr(alignedMem)
}

// Marker returns a marker for the current top of the stack.
func (a *Allocator) Marker() Marker {
	return Marker(a.top)
}

// FreeToMarker reclaims all memory allocated after the provided marker was taken. It returns
// InvalidMarkerError if the marker lies above the current top - that happens when the marker
// was already reclaimed by an earlier FreeToMarker call with a lower marker.
//
// Freeing to a marker below other still-outstanding markers silently invalidates those
// markers; this is not detected.
func (a *Allocator) FreeToMarker(marker Marker) error {
	if marker < 0 || int(marker) > a.top {
		a.logger.Debug("StackAllocator::FreeToMarker FAILED", slog.Int("Marker", int(marker)), slog.Int("UsedBytes", a.top))
		return cerrors.Wrapf(alloc.InvalidMarkerError, "marker %d is above the current top %d - it may have been invalidated by an earlier FreeToMarker call with a lower marker", marker, a.top)
	}

	a.top = int(marker)
	return nil
}

// Clear reclaims all allocated memory in the stack.
func (a *Allocator) Clear() {
	a.top = 0
}

// Size returns the total stack size fixed at construction.
func (a *Allocator) Size() int {
	return len(a.memory)
}

// CurrentSize returns the number of bytes currently allocated.
func (a *Allocator) CurrentSize() int {
	return a.top
}

// Empty returns true if nothing is currently allocated.
func (a *Allocator) Empty() bool {
	return a.top == 0
}

// Validate performs internal consistency checks on the allocator. When the implementation is
// functioning correctly it should not be possible for this method to return an error.
func (a *Allocator) Validate() error {
	if a.top < 0 || a.top > len(a.memory) {
		return cerrors.Newf("stack top %d is outside the buffer bounds [0, %d]", a.top, len(a.memory))
	}
	return nil
}

// AddStatistics accumulates this allocator's capacity and usage into stats.
func (a *Allocator) AddStatistics(stats *alloc.Statistics) {
	stats.TotalBytes += len(a.memory)
	stats.UsedBytes += a.top
}

// StatsJson populates a json object with information about this allocator.
func (a *Allocator) StatsJson(json jwriter.ObjectState) {
	json.Name("TotalBytes").Int(len(a.memory))
	json.Name("UsedBytes").Int(a.top)
	json.Name("FreeBytes").Int(len(a.memory) - a.top)
}
