// Reelfeed - Short-Video Movie Discovery Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordProviderRequest(t *testing.T) {
	before := testutil.ToFloat64(ProviderRequestsTotal.WithLabelValues("trending", "ok"))

	RecordProviderRequest("trending", "ok", 20*time.Millisecond)

	after := testutil.ToFloat64(ProviderRequestsTotal.WithLabelValues("trending", "ok"))
	if after != before+1 {
		t.Errorf("provider requests = %v, want %v", after, before+1)
	}
}

func TestRecordFeedBatch(t *testing.T) {
	okBefore := testutil.ToFloat64(FeedBatchesTotal.WithLabelValues("trending", "ok"))
	errBefore := testutil.ToFloat64(FeedBatchesTotal.WithLabelValues("trending", "error"))

	RecordFeedBatch("trending", "ok", 12, time.Second)
	RecordFeedBatch("trending", "error", 0, time.Second)

	if got := testutil.ToFloat64(FeedBatchesTotal.WithLabelValues("trending", "ok")); got != okBefore+1 {
		t.Errorf("ok batches = %v, want %v", got, okBefore+1)
	}
	if got := testutil.ToFloat64(FeedBatchesTotal.WithLabelValues("trending", "error")); got != errBefore+1 {
		t.Errorf("error batches = %v, want %v", got, errBefore+1)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)

	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests); got != before+1 {
		t.Errorf("active requests = %v, want %v", got, before+1)
	}

	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != before {
		t.Errorf("active requests = %v, want %v", got, before)
	}
}
