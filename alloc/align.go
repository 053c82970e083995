package alloc

import "unsafe"

// MaxAlign is the largest supported alignment for the recoverable-shift scheme. The shift is
// stored in a single byte, with 0 encoding a full 256-byte shift, so larger alignments cannot
// be represented.
const MaxAlign uint = 256

// AlignPtr rounds ptr up to the next multiple of align. A pointer that is already aligned is
// returned unchanged. align must be a power of two.
func AlignPtr(ptr unsafe.Pointer, align uint) unsafe.Pointer {
	DebugCheckPow2(align, "align")

	offset := uintptr(ptr) & (uintptr(align) - 1)
	if offset == 0 {
		return ptr
	}
	return unsafe.Add(ptr, uintptr(align)-offset)
}

// AlignPtrWithShift moves ptr forward by 1 to align bytes so that the result is a multiple of
// align, and records the distance moved in the byte immediately preceding the returned pointer.
// A pointer that is already aligned is moved forward by a full align bytes so that the shift
// byte always has somewhere to live. The memory at ptr must have room for align extra bytes
// beyond the caller's payload.
//
// The stored shift is in the range 1..256, with 256 encoded as 0. align must be a power of two
// no greater than MaxAlign.
func AlignPtrWithShift(ptr unsafe.Pointer, align uint) unsafe.Pointer {
	DebugCheckPow2(align, "align")

	shift := uintptr(align) - uintptr(ptr)&(uintptr(align)-1)
	aligned := unsafe.Add(ptr, shift)
	*(*byte)(unsafe.Add(aligned, -1)) = byte(shift)
	return aligned
}

// OriginalPtr reads the shift byte stored by AlignPtrWithShift and undoes the shift, yielding
// the pointer that was originally handed to AlignPtrWithShift. The result is undefined if
// aligned was not produced by AlignPtrWithShift.
func OriginalPtr(aligned unsafe.Pointer) unsafe.Pointer {
	shift := int(*(*byte)(unsafe.Add(aligned, -1)))
	if shift == 0 {
		shift = int(MaxAlign)
	}
	return unsafe.Add(aligned, -shift)
}

// IsAligned reports whether ptr is a multiple of align.
func IsAligned(ptr unsafe.Pointer, align uint) bool {
	return uintptr(ptr)&(uintptr(align)-1) == 0
}
