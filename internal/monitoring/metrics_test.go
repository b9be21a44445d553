package monitoring

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCollector(t *testing.T) {
	monitor := NewMonitor()
	mc := NewMetricsCollector(monitor)

	mc.RecordMessage("local")
	mc.RecordMessage("remote")
	mc.RecordMessage("remote")
	mc.RecordAssistantCall("offline", OutcomeOK, 120*time.Millisecond)
	mc.RecordAction("add", true)
	mc.RecordOrderConfirmed("ORD-ABCDEF12", 1200, "delivery")
	mc.RecordStorageError("save_chat")
	mc.SetActiveSessions(3)

	count, err := testutil.GatherAndCount(mc.Registry(), "seasonbot_messages_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	snapshot := monitor.GetMetrics()
	assert.Equal(t, 2, snapshot["messages_remote"])
	assert.Equal(t, 1, snapshot["assistant_ok"])
	assert.Equal(t, 1, snapshot["orders_confirmed"])
	assert.Equal(t, 3, snapshot["active_sessions"])
}

func TestMetricsCollector_Nil(t *testing.T) {
	var mc *MetricsCollector

	assert.NotPanics(t, func() {
		mc.RecordMessage("local")
		mc.RecordAssistantCall("openai", OutcomeTimeout, time.Second)
		mc.RecordAction("confirm", false)
		mc.RecordOrderConfirmed("ORD-1", 1, "pickup")
		mc.RecordStorageError("load_chat")
		mc.SetActiveSessions(0)
	})
	assert.NotNil(t, mc.Registry())
}
