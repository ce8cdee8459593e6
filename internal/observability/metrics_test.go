package observability

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_CustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	m.ReportsByLabel.WithLabelValues("HIGH").Inc()
	m.RPCCallErrors.WithLabelValues("getAccountInfo").Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReportsByLabel.WithLabelValues("HIGH")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestRecordHelpers(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.RPCCallErrors.WithLabelValues("getSlot"))

	RecordRPCCall("getSlot", 0.01, nil)
	RecordRPCCall("getSlot", 0.02, errors.New("boom"))

	after := testutil.ToFloat64(DefaultMetrics.RPCCallErrors.WithLabelValues("getSlot"))
	assert.Equal(t, before+1, after)

	RecordQueueState(4, 2)
	assert.Equal(t, 4.0, testutil.ToFloat64(DefaultMetrics.QueueSize))
	assert.Equal(t, 2.0, testutil.ToFloat64(DefaultMetrics.TasksInFlight))
}
