package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/arthur-debert/assetstore/internal/metrics"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(metrics.BulkChangeTotal.WithLabelValues("ok"))
	metrics.BulkChange("ok", 3)
	if got := testutil.ToFloat64(metrics.BulkChangeTotal.WithLabelValues("ok")); got != before+1 {
		t.Errorf("expected %v, got %v", before+1, got)
	}

	beforeCols := testutil.ToFloat64(metrics.ColumnsAddedTotal.WithLabelValues("metrics_test"))
	metrics.ColumnsAdded("metrics_test", 2)
	if got := testutil.ToFloat64(metrics.ColumnsAddedTotal.WithLabelValues("metrics_test")); got != beforeCols+2 {
		t.Errorf("expected %v, got %v", beforeCols+2, got)
	}

	metrics.QueryObserve("page", time.Now())
	metrics.BusyRetryInc("test")
	if got := testutil.ToFloat64(metrics.BusyRetryTotal.WithLabelValues("test")); got < 1 {
		t.Errorf("expected at least one retry counted, got %v", got)
	}
}
