// Package alloc provides fixed-capacity, non-garbage-collected allocation
// strategies for latency-sensitive code: a single and a double-ended stack
// allocator (package stack), a fixed-slot pool allocator (package pool),
// and an owning-handle wrapper tying an allocation to the operation that
// reclaims it (package ptr).
//
// This package itself holds the utilities shared by the allocators:
// power-of-two alignment math, the recoverable-shift pointer alignment
// trick, error sentinels, statistics, and debug validation hooks.
//
// None of the allocators are safe for concurrent use. Each allocator
// instance exclusively owns its backing buffer for its entire lifetime.
package alloc
