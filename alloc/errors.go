package alloc

import "github.com/pkg/errors"

// PowerOfTwoError is the error returned from CheckPow2 or other methods if the number being tested is not a power of two
var PowerOfTwoError error = errors.New("number must be a power of two")

// InvalidSizeError is the error returned from allocator constructors when the requested capacity is zero, negative,
// or collides with the reserved invalid-marker sentinel
var InvalidSizeError error = errors.New("allocator capacity is not valid")

// InvalidMarkerError is the error returned from FreeToMarker when the marker lies above the current allocation
// boundary. Such a marker has usually been invalidated by an earlier FreeToMarker call with a lower marker.
var InvalidMarkerError error = errors.New("marker does not lie within the allocated region")
