package bipe

import (
	"errors"
	"fmt"
	"io"
)

// ErrBrokenPipe is returned by writes on a closed pipe.
// It is the same value as io.ErrClosedPipe so callers using the io
// conventions keep working.
var ErrBrokenPipe = io.ErrClosedPipe

// errWouldBlock is reported by a transport that is full (on write) or empty
// (on read). It never leaves the package: the handles turn it into a wait.
var errWouldBlock = errors.New("bipe: operation would block")

// transport holds the bytes in flight between the two handles.
//
// write accepts as much of p as fits and reports how much it took. It returns
// (0, errWouldBlock) when there is no room at all and (0, ErrBrokenPipe) once
// the transport is closed.
//
// read returns (0, errWouldBlock) when empty and open, and (0, io.EOF) when
// empty and closed. Bytes written before close stay readable.
//
// Each transport allows exactly one goroutine in write and one in read at a
// time; close and the accessors may be called from anywhere.
type transport interface {
	write(p []byte) (int, error)
	read(p []byte) (int, error)
	close() bool
	closed() bool
	buffered() int
	capacity() int
}

// Strategy selects the transport backing a pipe.
type Strategy int

const (
	// StrategyRing is a pre-allocated lock-free ring of bytes.
	StrategyRing Strategy = iota
	// StrategyBuffer is a mutex protected growable buffer with a byte limit.
	StrategyBuffer
	// StrategyChunk is a bounded queue of whole writes. Its capacity counts
	// chunks, not bytes.
	StrategyChunk
)

func (s Strategy) String() string {
	switch s {
	case StrategyRing:
		return "ring"
	case StrategyBuffer:
		return "buffer"
	case StrategyChunk:
		return "chunk"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy maps a strategy name back to its value.
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case "ring":
		return StrategyRing, nil
	case "buffer":
		return StrategyBuffer, nil
	case "chunk":
		return StrategyChunk, nil
	}
	return 0, fmt.Errorf("bipe: unknown strategy %q", name)
}

func newTransport(s Strategy, capacity int) transport {
	switch s {
	case StrategyRing:
		return newRingBuffer(capacity)
	case StrategyBuffer:
		return newBoundedBuffer(capacity)
	case StrategyChunk:
		return newChunkQueue(capacity)
	default:
		panic(fmt.Sprintf("bipe: invalid strategy %v", s))
	}
}
