package ptr_test

import (
	"testing"
	"unsafe"

	"github.com/TheRetikGM/ren-utils/alloc"
	"github.com/TheRetikGM/ren-utils/alloc/pool"
	"github.com/TheRetikGM/ren-utils/alloc/ptr"
	"github.com/TheRetikGM/ren-utils/alloc/stack"
	"github.com/stretchr/testify/require"
)

func TestPtrInStack(t *testing.T) {
	a, err := stack.New(nil, 64)
	require.NoError(t, err)

	p := ptr.NewInStack(a, int64(1234))
	require.False(t, p.IsNil())
	require.Equal(t, int64(1234), *p.Get())
	require.True(t, alloc.IsAligned(unsafe.Pointer(p.Get()), uint(unsafe.Alignof(int64(0)))))
	require.Greater(t, a.CurrentSize(), 0)

	p.Release()
	require.True(t, p.IsNil())
	require.True(t, a.Empty())
}

func TestPtrInStackAligned(t *testing.T) {
	a, err := stack.New(nil, 256)
	require.NoError(t, err)

	p := ptr.NewInStackAligned(a, 64, int32(7))
	require.True(t, alloc.IsAligned(unsafe.Pointer(p.Get()), 64))
	require.Equal(t, int32(7), *p.Get())
	p.Release()
	require.True(t, a.Empty())
}

func TestPtrGetAfterReleasePanics(t *testing.T) {
	a, err := stack.New(nil, 64)
	require.NoError(t, err)

	p := ptr.NewInStack(a, int64(5))
	p.Release()
	require.Panics(t, func() { p.Get() })

	// Releasing twice is a harmless no-op.
	require.NotPanics(t, func() { p.Release() })
}

func TestPtrInStackNoMemoryPanics(t *testing.T) {
	a, err := stack.New(nil, 2)
	require.NoError(t, err)
	require.Panics(t, func() { ptr.NewInStack(a, int64(1)) })
}

func TestPtrInStackWrongOrderReleasePanics(t *testing.T) {
	a, err := stack.New(nil, 64)
	require.NoError(t, err)

	p1 := ptr.NewInStack(a, int64(1))
	p2 := ptr.NewInStack(a, int64(2))

	// Releasing the lower handle reclaims the upper one's memory as well; allocating
	// afterwards leaves p2's marker above the cursor.
	p1.Release()
	ptr.NewInStack(a, int8(3))
	require.Panics(t, func() { p2.Release() })
}

func TestPtrInStackLifoRelease(t *testing.T) {
	a, err := stack.New(nil, 256)
	require.NoError(t, err)

	p1 := ptr.NewInStack(a, int64(1))
	afterFirst := a.CurrentSize()
	p2 := ptr.NewInStack(a, int64(2))
	p3 := ptr.NewInStack(a, int64(3))

	p3.Release()
	p2.Release()
	require.Equal(t, afterFirst, a.CurrentSize())
	p1.Release()
	require.True(t, a.Empty())
}

func TestPtrInDouble(t *testing.T) {
	a, err := stack.NewDouble(nil, 128)
	require.NoError(t, err)

	left := ptr.NewInDouble(a, stack.SideLeft, int64(10))
	right := ptr.NewInDouble(a, stack.SideRight, int64(20))
	require.Equal(t, int64(10), *left.Get())
	require.Equal(t, int64(20), *right.Get())

	right.Release()
	require.True(t, a.Empty(stack.SideRight))
	left.Release()
	require.True(t, a.EmptyBoth())
}

func TestPtrInDoubleAligned(t *testing.T) {
	a, err := stack.NewDouble(nil, 512)
	require.NoError(t, err)

	p := ptr.NewInDoubleAligned(a, stack.SideRight, 128, int16(3))
	require.True(t, alloc.IsAligned(unsafe.Pointer(p.Get()), 128))
	p.Release()
	require.True(t, a.EmptyBoth())
}

func TestPtrInDoubleNoMemoryPanics(t *testing.T) {
	a, err := stack.NewDouble(nil, 3)
	require.NoError(t, err)

	require.Panics(t, func() { ptr.NewInDouble(a, stack.SideLeft, uint16(1)) })
	require.Panics(t, func() { ptr.NewInDouble(a, stack.SideRight, uint16(1)) })
}

func TestPtrInPool(t *testing.T) {
	a, err := pool.New[int64](nil, 2, 1)
	require.NoError(t, err)

	p1 := ptr.NewInPool(a, int64(100))
	p2 := ptr.NewInPool(a, int64(200))
	require.Equal(t, int64(100), *p1.Get())
	require.Equal(t, int64(200), *p2.Get())
	require.Equal(t, 0, a.FreeCount())

	require.Panics(t, func() { ptr.NewInPool(a, int64(300)) })

	p2.Release()
	require.Equal(t, 1, a.FreeCount())
	require.True(t, p2.IsNil())

	// The released slot is immediately reusable.
	p3 := ptr.NewInPool(a, int64(300))
	require.Equal(t, int64(300), *p3.Get())

	p3.Release()
	p1.Release()
	require.Equal(t, 2, a.FreeCount())
}
