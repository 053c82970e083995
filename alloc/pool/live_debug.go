//go:build debug_alloc

package pool

import (
	cerrors "github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
)

// liveSet tracks the aligned pointers of all items currently handed out, so that a double
// free or a free of a pointer that never came from Alloc can be caught immediately. It is
// only maintained when the debug_alloc build tag is present.
type liveSet struct {
	items *swiss.Map[uintptr, struct{}]
}

func newLiveSet(capacity int) liveSet {
	return liveSet{
		items: swiss.NewMap[uintptr, struct{}](uint32(capacity)),
	}
}

func (l liveSet) add(ptr uintptr) {
	l.items.Put(ptr, struct{}{})
}

func (l liveSet) remove(ptr uintptr) {
	_, ok := l.items.Get(ptr)
	if !ok {
		panic(cerrors.Newf("freed pointer %x is not a live pool item - it was either already freed or never allocated from this pool", ptr))
	}
	l.items.Delete(ptr)
}
