package database

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolStatsCollector_Describe(t *testing.T) {
	c := NewPoolStatsCollector(nil, "seeder")

	ch := make(chan *prometheus.Desc, 16)
	c.Describe(ch)
	close(ch)

	var names []string
	for d := range ch {
		names = append(names, d.String())
	}

	assert.Len(t, names, 8)
	for _, n := range names {
		assert.Contains(t, n, "seeder_db_pool_")
	}
}

func TestPoolStatsCollector_CollectNilPool(t *testing.T) {
	c := NewPoolStatsCollector(nil, "seeder")

	ch := make(chan prometheus.Metric, 16)
	c.Collect(ch)
	close(ch)

	assert.Empty(t, ch)
}

func TestRegisterPoolMetrics_OnCustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, RegisterPoolMetrics(reg, nil, "seeder"))

	err := RegisterPoolMetrics(reg, nil, "seeder")
	assert.Error(t, err, "duplicate registration should be rejected")
}
