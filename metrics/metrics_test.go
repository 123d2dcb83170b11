package metrics_test

import (
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacoelho/bipe"
	"github.com/jacoelho/bipe/metrics"
)

func TestObserverRecordsTraffic(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	r, w := bipe.Pipe(4, bipe.WithObserver(m.Observer("test")))

	go func() {
		defer w.Close()
		w.Write([]byte("0123456789"))
	}()

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Len(t, data, 10)

	assert.Equal(t, 10.0, testutil.ToFloat64(m.Bytes.WithLabelValues("test", "write")))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.Bytes.WithLabelValues("test", "read")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Closes.WithLabelValues("test", "write")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Closes.WithLabelValues("test", "read")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.Ops.WithLabelValues("test", "write")), 3.0,
		"ten bytes through a four byte ring take at least three writes")
}

func TestObserverRecordsWaits(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	r, w := bipe.Pipe(1, bipe.WithObserver(m.Observer("wait")))
	defer r.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Write([]byte("ab"))
	}()

	// let the writer fill the single byte and block on the second
	time.Sleep(20 * time.Millisecond)

	buf := make([]byte, 2)
	_, err := io.ReadFull(r, buf)
	require.NoError(t, err)
	<-done

	count, err := testutil.GatherAndCount(reg, "bipe_wait_seconds")
	require.NoError(t, err)
	assert.Positive(t, count)
}

func TestObserverPerPipeLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	for _, name := range []string{"a", "b"} {
		r, w := bipe.Pipe(8, bipe.WithObserver(m.Observer(name)))
		w.Write([]byte(name))
		w.Close()
		io.ReadAll(r)
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Bytes.WithLabelValues("a", "read")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Bytes.WithLabelValues("b", "read")))
}
