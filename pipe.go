package bipe

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	_ io.Reader     = (*PipeReader)(nil)
	_ io.WriterTo   = (*PipeReader)(nil)
	_ io.Closer     = (*PipeReader)(nil)
	_ io.Writer     = (*PipeWriter)(nil)
	_ io.ReaderFrom = (*PipeWriter)(nil)
	_ io.Closer     = (*PipeWriter)(nil)
)

type pipe struct {
	t transport

	// dataReady wakes the reader, spaceReady wakes the writer.
	dataReady  event
	spaceReady event

	mu       sync.Mutex
	readErr  error // set by PipeWriter.CloseWithError, replaces io.EOF
	writeErr error // set by PipeReader.CloseWithError, wrapped in ErrBrokenPipe

	log *zap.Logger
	obs Observer
}

func newPipe(capacity int, o options) *pipe {
	p := &pipe{
		t:   newTransport(o.strategy, capacity),
		log: o.logger,
		obs: o.observer,
	}
	if p.log.Core().Enabled(zap.DebugLevel) {
		p.log = p.log.With(zap.String("pipe", uuid.NewString()))
		p.log.Debug("pipe created",
			zap.Stringer("strategy", o.strategy),
			zap.Int("capacity", capacity),
		)
	}
	return p
}

func (p *pipe) read(ctx context.Context, b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}

	var ready <-chan struct{}
	for {
		n, err := p.t.read(b)
		switch err {
		case nil:
			p.spaceReady.notify()
			p.obs.Transferred(OpRead, n)
			return n, nil
		case io.EOF:
			return 0, p.readError()
		}

		// the first miss only registers; the next pass re-checks the
		// transport with the registration in place before blocking.
		if ready != nil {
			if err := p.wait(ctx, OpRead, ready); err != nil {
				return 0, err
			}
		}
		ready = p.dataReady.listen()
	}
}

func (p *pipe) write(ctx context.Context, b []byte) (n int, err error) {
	if p.t.closed() {
		return 0, p.writeError()
	}
	for len(b) > 0 {
		wrote, err := p.writeSome(ctx, b)
		b = b[wrote:]
		n += wrote
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func (p *pipe) writeSome(ctx context.Context, b []byte) (int, error) {
	var ready <-chan struct{}
	for {
		n, err := p.t.write(b)
		switch err {
		case nil:
			p.dataReady.notify()
			p.obs.Transferred(OpWrite, n)
			return n, nil
		case ErrBrokenPipe:
			return 0, p.writeError()
		}

		if ready != nil {
			if err := p.wait(ctx, OpWrite, ready); err != nil {
				return 0, err
			}
		}
		ready = p.spaceReady.listen()
	}
}

func (p *pipe) wait(ctx context.Context, op Op, ready <-chan struct{}) error {
	start := time.Now()
	select {
	case <-ready:
		p.obs.Waited(op, time.Since(start))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pipe) readError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.readErr != nil {
		return p.readErr
	}
	return io.EOF
}

func (p *pipe) writeError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writeErr != nil {
		return fmt.Errorf("%w: %w", ErrBrokenPipe, p.writeErr)
	}
	return ErrBrokenPipe
}

// close records err for the peer, flips the shared flag and wakes both
// sides so they re-evaluate and observe closure. The first recorded error
// wins.
func (p *pipe) close(op Op, err error) {
	p.mu.Lock()
	if err != nil {
		switch {
		case op == OpWrite && p.readErr == nil:
			p.readErr = err
		case op == OpRead && p.writeErr == nil:
			p.writeErr = err
		}
	}
	p.mu.Unlock()

	if p.t.close() {
		p.obs.Closed(op)
		p.log.Debug("pipe closed",
			zap.Stringer("side", op),
			zap.Int("buffered", p.t.buffered()),
			zap.Error(err),
		)
	}

	p.dataReady.notify()
	p.spaceReady.notify()
}

// Pipe creates a pipe that holds up to capacity units in flight: bytes for
// StrategyRing and StrategyBuffer, pending writes for StrategyChunk.
//
// Pipe panics if capacity is not positive.
func Pipe(capacity int, opts ...Option) (*PipeReader, *PipeWriter) {
	if capacity <= 0 {
		panic(fmt.Sprintf("bipe: capacity must be positive, got %d", capacity))
	}
	p := newPipe(capacity, buildOptions(opts))

	r := &PipeReader{p: p}
	r.cleanup = runtime.AddCleanup(r, func(p *pipe) { p.close(OpRead, nil) }, p)

	w := &PipeWriter{p: p}
	w.cleanup = runtime.AddCleanup(w, func(p *pipe) { p.close(OpWrite, nil) }, p)

	return r, w
}

// PipeReader is the read half of a pipe.
//
// A PipeReader that becomes unreachable without being closed is closed
// by the runtime, so a blocked writer fails instead of hanging.
type PipeReader struct {
	p       *pipe
	cleanup runtime.Cleanup
}

// Read implements io.Reader. It blocks until data is available. Once the
// writer has closed and the buffered bytes are drained it returns io.EOF,
// or the error passed to PipeWriter.CloseWithError.
func (r *PipeReader) Read(b []byte) (int, error) {
	n, err := r.p.read(context.Background(), b)
	runtime.KeepAlive(r)
	return n, err
}

// ReadContext is like Read but gives up waiting when ctx is done, returning
// ctx.Err(). Abandoning the wait leaves the pipe usable.
func (r *PipeReader) ReadContext(ctx context.Context, b []byte) (int, error) {
	n, err := r.p.read(ctx, b)
	runtime.KeepAlive(r)
	return n, err
}

// WriteTo implements io.WriterTo by reading data from the pipe
// and writing it to w until EOF or an error occurs.
func (r *PipeReader) WriteTo(w io.Writer) (n int64, err error) {
	n, err = copyBuffered(r.Read, w.Write)
	runtime.KeepAlive(r)
	return n, err
}

// Buffered reports the bytes (or chunks, for StrategyChunk) waiting to be read.
func (r *PipeReader) Buffered() int {
	return r.p.t.buffered()
}

// Cap reports the capacity the pipe was created with.
func (r *PipeReader) Cap() int {
	return r.p.t.capacity()
}

// Close closes the pipe from the reader side. Subsequent writes fail with
// ErrBrokenPipe; bytes already buffered can still be read.
func (r *PipeReader) Close() error {
	return r.CloseWithError(nil)
}

// CloseWithError closes the reader side of the pipe with an error.
// Future writes fail with an error matching both ErrBrokenPipe and err.
// It never overwrites an earlier error and always returns nil.
func (r *PipeReader) CloseWithError(err error) error {
	r.cleanup.Stop()
	r.p.close(OpRead, err)
	return nil
}

// PipeWriter is the write half of a pipe.
//
// A PipeWriter that becomes unreachable without being closed is closed by
// the runtime, and the reader observes io.EOF exactly as after Close.
type PipeWriter struct {
	p       *pipe
	cleanup runtime.Cleanup
}

// Write implements io.Writer. It blocks until every byte is in the pipe or
// the pipe is closed. A write on a closed pipe transfers nothing and
// returns ErrBrokenPipe.
func (w *PipeWriter) Write(b []byte) (int, error) {
	n, err := w.p.write(context.Background(), b)
	runtime.KeepAlive(w)
	return n, err
}

// WriteContext is like Write but gives up waiting for room when ctx is done.
// It returns the bytes accepted so far together with ctx.Err().
func (w *PipeWriter) WriteContext(ctx context.Context, b []byte) (int, error) {
	n, err := w.p.write(ctx, b)
	runtime.KeepAlive(w)
	return n, err
}

// ReadFrom implements io.ReaderFrom by reading data from r
// and writing it to the pipe until EOF or an error occurs.
func (w *PipeWriter) ReadFrom(r io.Reader) (n int64, err error) {
	n, err = copyBuffered(r.Read, w.Write)
	runtime.KeepAlive(w)
	return n, err
}

// Close closes the writer side of the pipe. The reader drains what is
// buffered and then gets io.EOF.
func (w *PipeWriter) Close() error {
	return w.CloseWithError(nil)
}

// CloseWithError closes the writer side of the pipe with an error.
// The error will be returned to reads once the buffered bytes are drained.
// It never overwrites an earlier error and always returns nil.
func (w *PipeWriter) CloseWithError(err error) error {
	w.cleanup.Stop()
	w.p.close(OpWrite, err)
	return nil
}

func copyBuffered(read func([]byte) (int, error), write func([]byte) (int, error)) (int64, error) {
	buf := make([]byte, 32*1024)
	var total int64
	for {
		n, rErr := read(buf)
		if n > 0 {
			wn, wErr := write(buf[:n])
			if wn < 0 || wn > n {
				wn = 0
				if wErr == nil {
					wErr = io.ErrShortWrite
				}
			}
			total += int64(wn)
			if wErr != nil {
				return total, wErr
			}
			if wn != n {
				return total, io.ErrShortWrite
			}
		}
		if rErr != nil {
			if rErr != io.EOF {
				return total, rErr
			}
			return total, nil
		}
	}
}
