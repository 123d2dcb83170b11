package stress

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jacoelho/bipe"
)

func TestRunSequentialIntegers(t *testing.T) {
	for _, s := range []bipe.Strategy{bipe.StrategyRing, bipe.StrategyBuffer, bipe.StrategyChunk} {
		t.Run(s.String(), func(t *testing.T) {
			res, err := Run(context.Background(), Options{
				Strategy: s,
				Capacity: 9,
				Count:    1000,
				Seed:     42,
				Logger:   zaptest.NewLogger(t),
			})
			require.NoError(t, err)
			assert.EqualValues(t, 8000, res.Bytes)
			assert.Positive(t, res.Reads)
		})
	}
}

func TestRunWithJitterAndRate(t *testing.T) {
	res, err := Run(context.Background(), Options{
		Strategy: bipe.StrategyRing,
		Capacity: 3,
		Count:    50,
		Rate:     5000,
		Jitter:   200 * time.Microsecond,
		Seed:     7,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 400, res.Bytes)
}

func TestRunEmptyStream(t *testing.T) {
	res, err := Run(context.Background(), Options{
		Strategy: bipe.StrategyChunk,
		Capacity: 1,
	})
	require.NoError(t, err)
	assert.Zero(t, res.Bytes)
}

func TestRunHonoursContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := Run(ctx, Options{
		Strategy: bipe.StrategyBuffer,
		Capacity: 9,
		Count:    1000,
		Jitter:   time.Second,
		Seed:     3,
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
