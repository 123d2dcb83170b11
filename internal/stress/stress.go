// Package stress pushes a counted integer stream through a pipe and checks
// that it arrives intact.
package stress

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/jacoelho/bipe"
)

// ErrMismatch reports a stream that did not arrive exactly as written.
var ErrMismatch = errors.New("stress: stream mismatch")

const wordSize = 8

// Options describes one run.
type Options struct {
	Strategy bipe.Strategy
	Capacity int
	Count    int           // integers written, each 8 bytes big-endian
	Rate     float64       // writes per second, 0 is unlimited
	Jitter   time.Duration // upper bound of random pauses on both sides
	Seed     uint64
	Logger   *zap.Logger
	Observer bipe.Observer
}

// Result summarises a successful run.
type Result struct {
	Bytes   int64
	Reads   int
	Elapsed time.Duration
}

// Run writes Count sequential integers through a new pipe, closes it, and
// reads until EOF verifying every integer in order.
func Run(ctx context.Context, opts Options) (Result, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	r, w := bipe.Pipe(opts.Capacity,
		bipe.WithStrategy(opts.Strategy),
		bipe.WithLogger(opts.Logger),
		bipe.WithObserver(opts.Observer),
	)

	limit := rate.Inf
	if opts.Rate > 0 {
		limit = rate.Limit(opts.Rate)
	}
	limiter := rate.NewLimiter(limit, 1)

	var res Result
	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rng := rand.New(rand.NewPCG(opts.Seed, 1))
		var word [wordSize]byte
		for i := range uint64(opts.Count) {
			if err := limiter.Wait(ctx); err != nil {
				w.CloseWithError(err)
				return err
			}
			if err := pause(ctx, rng, opts.Jitter); err != nil {
				w.CloseWithError(err)
				return err
			}
			binary.BigEndian.PutUint64(word[:], i)
			if _, err := w.WriteContext(ctx, word[:]); err != nil {
				w.CloseWithError(err)
				return fmt.Errorf("write %d: %w", i, err)
			}
		}
		return w.Close()
	})

	g.Go(func() error {
		defer r.Close()

		rng := rand.New(rand.NewPCG(opts.Seed, 2))
		buf := make([]byte, 2*wordSize)
		var (
			next    uint64
			pending []byte
		)
		for {
			n, err := r.ReadContext(ctx, buf[:1+rng.IntN(len(buf))])
			res.Reads++
			res.Bytes += int64(n)
			pending = append(pending, buf[:n]...)
			for len(pending) >= wordSize {
				if got := binary.BigEndian.Uint64(pending); got != next {
					return fmt.Errorf("%w: got %d, want %d", ErrMismatch, got, next)
				}
				next++
				pending = pending[wordSize:]
			}

			if err == io.EOF {
				break
			}
			if err != nil {
				return fmt.Errorf("read after %d integers: %w", next, err)
			}
			if err := pause(ctx, rng, opts.Jitter); err != nil {
				return err
			}
		}

		if next != uint64(opts.Count) || len(pending) != 0 {
			return fmt.Errorf("%w: read %d integers and %d stray bytes, want %d integers",
				ErrMismatch, next, len(pending), opts.Count)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return res, err
	}
	res.Elapsed = time.Since(start)

	opts.Logger.Debug("stream verified",
		zap.Stringer("strategy", opts.Strategy),
		zap.Int64("bytes", res.Bytes),
		zap.Int("reads", res.Reads),
	)
	return res, nil
}

func pause(ctx context.Context, rng *rand.Rand, upTo time.Duration) error {
	if upTo <= 0 {
		return nil
	}
	d := time.Duration(rng.Int64N(int64(upTo)))
	if d == 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
