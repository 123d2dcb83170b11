package main

import (
	"bytes"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithEnvironment(t *testing.T) {
	t.Setenv("BIPE_COUNT", "100")
	t.Setenv("BIPE_SEED", "9")
	t.Setenv("LOG_LEVEL", "error")

	require.NoError(t, run())
}

func TestRunRejectsBadConfig(t *testing.T) {
	t.Setenv("BIPE_STRATEGIES", "tube")

	require.Error(t, run())
}

func TestWriteMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "bipe_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Add(3)

	var buf bytes.Buffer
	require.NoError(t, writeMetrics(reg, &buf))
	assert.Contains(t, buf.String(), "bipe_test_total 3")
}
