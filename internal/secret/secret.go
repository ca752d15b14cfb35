// Package secret provides erase primitives for credential material.
//
// Go strings cannot be overwritten, so every secret that passes through the
// agent is carried as a []byte and wiped with Wipe once it is no longer needed.
// Buffer is a fixed-size scratch area for reading secrets out of storage. On
// Linux it lives outside the Go heap (mmap), is locked against swap and is
// excluded from core dumps. Elsewhere, or when the kernel refuses, it falls
// back to an ordinary heap slice that is still wiped on every reuse.
package secret

import (
	"fmt"
	"runtime"
	"sync"
)

// Wipe overwrites every byte of b with zero.
func Wipe(b []byte) {
	clear(b)
	runtime.KeepAlive(b)
}

// IsZero reports whether every byte of b is zero.
func IsZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

// Buffer is a reusable scratch buffer for secret bytes. Callers must call
// Wipe after every use and Close when the buffer is no longer needed.
type Buffer struct {
	mu     sync.Mutex
	data   []byte
	locked bool
	closed bool
}

// New allocates a scratch buffer of the given size.
func New(size int) (*Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("secret: buffer size must be positive, got %d", size)
	}

	data, locked := allocate(size)
	return &Buffer{data: data, locked: locked}, nil
}

// Bytes returns the backing memory. The slice must not be retained after
// Close. Panics if the buffer has been closed.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		panic("secret: use of closed buffer")
	}
	return b.data
}

// Len returns the capacity of the buffer in bytes.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// Locked reports whether the buffer is backed by locked memory outside the
// Go heap.
func (b *Buffer) Locked() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.locked
}

// Wipe zeroes the buffer contents. No-op after Close.
func (b *Buffer) Wipe() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	Wipe(b.data)
}

// Close zeroes the buffer and releases its memory. Idempotent.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	Wipe(b.data)
	err := release(b.data, b.locked)
	b.data = nil
	return err
}
