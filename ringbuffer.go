package bipe

import (
	"io"
	"sync/atomic"
)

// ringBuffer implements a single-producer, single-consumer ring buffer.
//
// head and tail are monotonic byte counters. The producer owns tail and the
// consumer owns head; each side only loads the other's counter. A byte range
// becomes visible to the reader when the producer stores the new tail, and
// is handed back to the writer when the consumer stores the new head.
type ringBuffer struct {
	data []byte
	head atomic.Uint64
	tail atomic.Uint64
	done atomic.Bool
}

// newRingBuffer creates a ring buffer holding exactly size bytes.
func newRingBuffer(size int) *ringBuffer {
	return &ringBuffer{
		data: make([]byte, size),
	}
}

// write copies at most the contiguous free span of the ring.
func (r *ringBuffer) write(src []byte) (int, error) {
	if r.done.Load() {
		return 0, ErrBrokenPipe
	}
	if len(src) == 0 {
		return 0, nil
	}

	size := uint64(len(r.data))
	tail := r.tail.Load()
	free := size - (tail - r.head.Load())
	if free == 0 {
		return 0, errWouldBlock
	}

	pos := tail % size
	n := min(free, size-pos, uint64(len(src)))
	copy(r.data[pos:pos+n], src[:n])
	r.tail.Store(tail + n)

	return int(n), nil
}

// read copies at most the contiguous readable span of the ring.
func (r *ringBuffer) read(dst []byte) (int, error) {
	// closure must be observed before emptiness, otherwise bytes published
	// just before close could be reported as EOF.
	done := r.done.Load()

	size := uint64(len(r.data))
	head := r.head.Load()
	available := r.tail.Load() - head
	if available == 0 {
		if done {
			return 0, io.EOF
		}
		return 0, errWouldBlock
	}

	pos := head % size
	n := min(available, size-pos, uint64(len(dst)))
	copy(dst[:n], r.data[pos:pos+n])
	r.head.Store(head + n)

	return int(n), nil
}

func (r *ringBuffer) close() bool {
	return r.done.CompareAndSwap(false, true)
}

func (r *ringBuffer) closed() bool {
	return r.done.Load()
}

func (r *ringBuffer) buffered() int {
	head := r.head.Load()
	return int(r.tail.Load() - head)
}

func (r *ringBuffer) capacity() int {
	return len(r.data)
}
