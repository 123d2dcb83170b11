package bipe

import (
	"bytes"
	"io"
	"sync/atomic"
)

// chunkQueue is a bounded single-producer, single-consumer queue of whole
// writes. Every accepted write is one chunk no matter its size, so capacity
// bounds the number of pending writes rather than the number of bytes.
//
// The consumer keeps the unread rest of the dequeued chunk in cur and only
// takes the next chunk once cur is exhausted.
type chunkQueue struct {
	slots [][]byte
	head  atomic.Uint64
	tail  atomic.Uint64
	done  atomic.Bool

	cur []byte // consumer owned
}

func newChunkQueue(size int) *chunkQueue {
	return &chunkQueue{
		slots: make([][]byte, size),
	}
}

// write enqueues a copy of p. Zero-length writes are accepted without
// taking a slot.
func (q *chunkQueue) write(p []byte) (int, error) {
	if q.done.Load() {
		return 0, ErrBrokenPipe
	}
	if len(p) == 0 {
		return 0, nil
	}

	size := uint64(len(q.slots))
	tail := q.tail.Load()
	if tail-q.head.Load() == size {
		return 0, errWouldBlock
	}

	q.slots[tail%size] = bytes.Clone(p)
	q.tail.Store(tail + 1)

	return len(p), nil
}

func (q *chunkQueue) read(p []byte) (int, error) {
	if len(q.cur) > 0 {
		n := copy(p, q.cur)
		q.cur = q.cur[n:]
		return n, nil
	}

	done := q.done.Load()

	size := uint64(len(q.slots))
	head := q.head.Load()
	if head == q.tail.Load() {
		if done {
			return 0, io.EOF
		}
		return 0, errWouldBlock
	}

	i := head % size
	chunk := q.slots[i]
	q.slots[i] = nil
	q.head.Store(head + 1)

	n := copy(p, chunk)
	q.cur = chunk[n:]
	return n, nil
}

func (q *chunkQueue) close() bool {
	return q.done.CompareAndSwap(false, true)
}

func (q *chunkQueue) closed() bool {
	return q.done.Load()
}

// buffered counts queued chunks. The partially read chunk held by the
// consumer no longer occupies a slot.
func (q *chunkQueue) buffered() int {
	head := q.head.Load()
	return int(q.tail.Load() - head)
}

func (q *chunkQueue) capacity() int {
	return len(q.slots)
}
