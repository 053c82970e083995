package stack

import (
	"unsafe"

	"github.com/TheRetikGM/ren-utils/alloc"
	cerrors "github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"golang.org/x/exp/slog"
)

// Side identifies one of the two stacks in a DoubleAllocator.
type Side uint32

const (
	SideLeft Side = iota
	SideRight
)

var sideMapping = map[Side]string{
	SideLeft:  "SideLeft",
	SideRight: "SideRight",
}

func (s Side) String() string {
	return sideMapping[s]
}

// DoubleMarker identifies a position on one side of a DoubleAllocator. It is obtained from
// DoubleAllocator.Marker and consumed by DoubleAllocator.FreeToMarker.
type DoubleMarker struct {
	side   Side
	offset int
}

// Side returns the stack side this marker was taken from.
func (m DoubleMarker) Side() Side {
	return m.side
}

// DoubleAllocator manages two stack allocators sharing a single fixed-size buffer. The left
// stack grows upward from offset 0 and the right stack grows downward from the end of the
// buffer. Allocations on either side fail rather than let the two stacks overlap, so
// left <= right holds at all times.
//
// DoubleAllocator is not safe for concurrent use.
type DoubleAllocator struct {
	logger *slog.Logger

	memory []byte
	left   int
	right  int
}

var _ alloc.Validatable = &DoubleAllocator{}

// NewDouble creates an empty DoubleAllocator over a buffer of totalSize bytes. It returns
// InvalidSizeError if totalSize is not positive or collides with the InvalidMarker sentinel.
func NewDouble(logger *slog.Logger, totalSize int) (*DoubleAllocator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if totalSize <= 0 || Marker(totalSize) == InvalidMarker {
		return nil, cerrors.Wrapf(alloc.InvalidSizeError, "invalid total size %d - it must be positive and cannot equal %d", totalSize, InvalidMarker)
	}

	logger.Debug("DoubleStackAllocator::New", slog.Int("TotalSize", totalSize))
	return &DoubleAllocator{
		logger: logger,
		memory: make([]byte, totalSize),
		right:  totalSize,
	}, nil
}

// Alloc reserves nBytes bytes on the given side and returns a pointer to the start of the
// reserved region, or nil if the reservation would make the two stacks overlap.
func (a *DoubleAllocator) Alloc(side Side, nBytes int) unsafe.Pointer {
	if nBytes < 0 {
		panic(cerrors.Newf("negative allocation size %d", nBytes))
	}

	var offset int
	if side == SideLeft {
		if a.left+nBytes > a.right {
			a.logFailedAlloc(side, nBytes)
			return nil
		}
		offset = a.left
		a.left += nBytes
	} else {
		if nBytes > a.right || a.right-nBytes < a.left {
			a.logFailedAlloc(side, nBytes)
			return nil
		}
		a.right -= nBytes
		offset = a.right
	}

	return unsafe.Add(unsafe.Pointer(unsafe.SliceData(a.memory)), offset)
}

func (a *DoubleAllocator) logFailedAlloc(side Side, nBytes int) {
	a.logger.Debug("DoubleStackAllocator::Alloc FAILED",
		slog.String("Side", side.String()),
		slog.Int("Size", nBytes),
		slog.Int("LeftBytes", a.left),
		slog.Int("RightBytes", len(a.memory)-a.right),
		slog.Int("TotalBytes", len(a.memory)))
}

// AllocAligned reserves nBytes bytes plus align bytes of padding on the given side and returns
// a pointer that is a multiple of align, or nil if the reservation would make the two stacks
// overlap. The base of the padded region can be recovered later with AlignedBase.
//
// align must be a power of two no greater than alloc.MaxAlign; violating that is a programming
// error and panics.
func (a *DoubleAllocator) AllocAligned(side Side, nBytes int, align uint) unsafe.Pointer {
	if err := alloc.CheckPow2(align, "align"); err != nil {
		panic(err)
	}
	if align > alloc.MaxAlign {
		panic(cerrors.Newf("alignment %d is over the supported maximum of %d", align, alloc.MaxAlign))
	}

	mem := a.Alloc(side, nBytes+int(align))
	if mem == nil {
		return nil
	}
	return alloc.AlignPtrWithShift(mem, align)
}

// AlignedBase returns the base address of the padded region backing a pointer returned from
// AllocAligned. The result is undefined if alignedMem did not come from AllocAligned on this
// allocator. A nil pointer yields nil.
func (a *DoubleAllocator) AlignedBase(alignedMem unsafe.Pointer) unsafe.Pointer {
	if alignedMem == nil {
		return nil
	}
	return alloc.OriginalPtr(alignedMem)
}

// Marker returns a marker for the current top of the given side's stack.
func (a *DoubleAllocator) Marker(side Side) DoubleMarker {
	if side == SideLeft {
		return DoubleMarker{side: side, offset: a.left}
	}
	return DoubleMarker{side: side, offset: a.right}
}

// FreeToMarker reclaims all memory allocated on the marker's side after the marker was taken.
// It returns InvalidMarkerError if the marker would move its side's cursor forward instead of
// backward - that happens when the marker was already reclaimed by an earlier FreeToMarker
// call on the same side.
func (a *DoubleAllocator) FreeToMarker(marker DoubleMarker) error {
	if marker.side == SideLeft {
		if marker.offset < 0 || marker.offset > a.left {
			return a.invalidMarker(marker)
		}
		a.left = marker.offset
		return nil
	}

	if marker.offset < a.right || marker.offset > len(a.memory) {
		return a.invalidMarker(marker)
	}
	a.right = marker.offset
	return nil
}

func (a *DoubleAllocator) invalidMarker(marker DoubleMarker) error {
	a.logger.Debug("DoubleStackAllocator::FreeToMarker FAILED",
		slog.String("Side", marker.side.String()),
		slog.Int("Marker", marker.offset))
	return cerrors.Wrapf(alloc.InvalidMarkerError, "%s marker %d does not lie within the allocated region - it may have been invalidated by an earlier FreeToMarker call on the same side", marker.side, marker.offset)
}

// Clear reclaims all allocated memory on one side.
func (a *DoubleAllocator) Clear(side Side) {
	if side == SideLeft {
		a.left = 0
	} else {
		a.right = len(a.memory)
	}
}

// ClearAll reclaims all allocated memory on both sides.
func (a *DoubleAllocator) ClearAll() {
	a.left = 0
	a.right = len(a.memory)
}

// Size returns the total buffer size fixed at construction.
func (a *DoubleAllocator) Size() int {
	return len(a.memory)
}

// CurrentSize returns the number of bytes currently allocated on the given side.
func (a *DoubleAllocator) CurrentSize(side Side) int {
	if side == SideLeft {
		return a.left
	}
	return len(a.memory) - a.right
}

// Empty returns true if nothing is currently allocated on the given side.
func (a *DoubleAllocator) Empty(side Side) bool {
	if side == SideLeft {
		return a.left == 0
	}
	return a.right == len(a.memory)
}

// EmptyBoth returns true if nothing is currently allocated on either side.
func (a *DoubleAllocator) EmptyBoth() bool {
	return a.Empty(SideLeft) && a.Empty(SideRight)
}

// Validate performs internal consistency checks on the allocator. When the implementation is
// functioning correctly it should not be possible for this method to return an error.
func (a *DoubleAllocator) Validate() error {
	if a.left < 0 || a.left > a.right || a.right > len(a.memory) {
		return cerrors.Newf("cursors are inconsistent: left %d, right %d, total %d", a.left, a.right, len(a.memory))
	}
	return nil
}

// AddStatistics accumulates this allocator's capacity and combined usage into stats.
func (a *DoubleAllocator) AddStatistics(stats *alloc.Statistics) {
	stats.TotalBytes += len(a.memory)
	stats.UsedBytes += a.left + len(a.memory) - a.right
}

// StatsJson populates a json object with information about this allocator.
func (a *DoubleAllocator) StatsJson(json jwriter.ObjectState) {
	json.Name("TotalBytes").Int(len(a.memory))
	json.Name("LeftUsedBytes").Int(a.left)
	json.Name("RightUsedBytes").Int(len(a.memory) - a.right)
	json.Name("FreeBytes").Int(a.right - a.left)
}
