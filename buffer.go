package bipe

import (
	"io"
	"sync"
)

// compactSlack is the allowance before read compacts the backing array:
// storage is released once cap > 4*len + compactSlack.
const compactSlack = 16

// boundedBuffer is a growable byte deque capped at limit bytes.
// Unread bytes live in buf[off:].
type boundedBuffer struct {
	mu    sync.Mutex
	buf   []byte
	off   int
	limit int
	done  bool
}

func newBoundedBuffer(limit int) *boundedBuffer {
	return &boundedBuffer{limit: limit}
}

// write appends min(len(p), limit-len) bytes. An empty p returns (0, nil);
// a full buffer returns (0, errWouldBlock).
func (b *boundedBuffer) write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.done {
		return 0, ErrBrokenPipe
	}
	if len(p) == 0 {
		return 0, nil
	}

	used := len(b.buf) - b.off
	if used >= b.limit {
		return 0, errWouldBlock
	}

	n := min(len(p), b.limit-used)
	if b.off > 0 && len(b.buf)+n > cap(b.buf) {
		// slide the unread bytes down before append reallocates
		copy(b.buf, b.buf[b.off:])
		b.buf = b.buf[:used]
		b.off = 0
	}
	b.buf = append(b.buf, p[:n]...)

	if len(b.buf)-b.off > b.limit {
		panic("bipe: buffer exceeded its limit")
	}
	return n, nil
}

func (b *boundedBuffer) read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	used := len(b.buf) - b.off
	if cap(b.buf) > 4*used+compactSlack {
		b.compactLocked(used)
	}

	if used == 0 {
		if b.done {
			return 0, io.EOF
		}
		return 0, errWouldBlock
	}

	n := copy(p, b.buf[b.off:])
	b.off += n
	if b.off == len(b.buf) {
		b.buf = b.buf[:0]
		b.off = 0
	}
	return n, nil
}

func (b *boundedBuffer) compactLocked(used int) {
	if used == 0 {
		b.buf = nil
		b.off = 0
		return
	}
	b.buf = append(make([]byte, 0, used), b.buf[b.off:]...)
	b.off = 0
}

func (b *boundedBuffer) close() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done {
		return false
	}
	b.done = true
	return true
}

func (b *boundedBuffer) closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.done
}

func (b *boundedBuffer) buffered() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buf) - b.off
}

func (b *boundedBuffer) capacity() int {
	return b.limit
}

// allocated reports the size of the backing array.
func (b *boundedBuffer) allocated() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return cap(b.buf)
}
