package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordDataIntegrityCritical(t *testing.T) {
	before := testutil.ToFloat64(DataIntegrityCritical.WithLabelValues("unlock_exceeds_locked", "USDT"))

	RecordDataIntegrityCritical("unlock_exceeds_locked", "USDT")

	after := testutil.ToFloat64(DataIntegrityCritical.WithLabelValues("unlock_exceeds_locked", "USDT"))
	assert.Equal(t, before+1, after)
}

func TestRecordCacheRequest(t *testing.T) {
	before := testutil.ToFloat64(CacheRequests.WithLabelValues("wallet", "hit"))

	RecordCacheRequest("wallet", "hit")
	RecordCacheRequest("wallet", "hit")

	assert.Equal(t, before+2, testutil.ToFloat64(CacheRequests.WithLabelValues("wallet", "hit")))
}

func TestObserveOrderLatency(t *testing.T) {
	ObserveOrderLatency("create", time.Now().Add(-10*time.Millisecond))

	assert.Equal(t, 1, testutil.CollectAndCount(OrderLatency))
}
