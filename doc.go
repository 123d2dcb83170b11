// Package bipe provides a bounded, in-process byte pipe connecting one
// writer to one reader. It mirrors io.Pipe semantics, but the writer only
// blocks once capacity bytes are in flight, so bursty producers get a
// cushion while memory stays bounded.
//
// Three transports are available through WithStrategy: a lock-free ring of
// bytes (the default), a mutex protected growable buffer, and a queue of
// whole writes whose capacity counts writes rather than bytes.
//
// Closing either half stops new writes. Bytes already in the pipe remain
// readable; once they are drained reads return io.EOF. A half that is
// dropped without Close is closed by the runtime.
package bipe
