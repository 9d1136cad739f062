package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRingMetricsRegistersIntoCallerRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRingMetrics(reg, "ingress")
	require.NotNil(t, m)

	m.Published.Inc()
	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestSeparateRegistriesDoNotCollide(t *testing.T) {
	regA := prometheus.NewRegistry()
	regB := prometheus.NewRegistry()

	assert.NotPanics(t, func() {
		NewArchiveMetrics(regA, "a.log")
		NewArchiveMetrics(regB, "a.log")
	})
}
