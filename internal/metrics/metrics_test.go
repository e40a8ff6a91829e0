package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPipelineRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPipeline(reg)

	m.Messages.WithLabelValues("succeeded").Inc()
	m.CreateAttempts.WithLabelValues("transient").Add(2)
	m.CommitErrors.Inc()

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["eventcatcher_messages_total"])
	assert.True(t, names["eventcatcher_create_attempts_total"])
	assert.True(t, names["eventcatcher_commit_errors_total"])
}

func TestNewPipelineTwiceOnPrivateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewPipeline(nil)
		NewPipeline(nil)
		NewHTTP(nil)
	})
}
