//go:build !debug_alloc

package pool

// liveSet tracks the aligned pointers of all items currently handed out, so that a double
// free or a free of a pointer that never came from Alloc can be caught immediately. It is
// only maintained when the debug_alloc build tag is present.
type liveSet struct{}

func newLiveSet(capacity int) liveSet {
	return liveSet{}
}

func (l liveSet) add(ptr uintptr) {
}

func (l liveSet) remove(ptr uintptr) {
}
