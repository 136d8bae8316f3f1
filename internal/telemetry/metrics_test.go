// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package telemetry

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveLineIncrementsCounter(t *testing.T) {
	before := testutil.ToFloat64(linesReceivedTotal)
	ObserveLine()
	after := testutil.ToFloat64(linesReceivedTotal)
	if after != before+1 {
		t.Fatalf("expected counter to increment by 1, got %v -> %v", before, after)
	}
}

func TestObserveDropIncrementsCounter(t *testing.T) {
	before := testutil.ToFloat64(linesDroppedTotal)
	ObserveDrop()
	after := testutil.ToFloat64(linesDroppedTotal)
	if after != before+1 {
		t.Fatalf("expected counter to increment by 1, got %v -> %v", before, after)
	}
}

func TestObserveDispatchFailureLabelsBySink(t *testing.T) {
	before := testutil.ToFloat64(dispatchFailuresTotal.WithLabelValues("graphite"))
	ObserveDispatchFailure("graphite")
	after := testutil.ToFloat64(dispatchFailuresTotal.WithLabelValues("graphite"))
	if after != before+1 {
		t.Fatalf("expected graphite failure counter to increment, got %v -> %v", before, after)
	}
}

func TestServeExposesMetricsEndpoint(t *testing.T) {
	ObserveLine()
	srv := Serve("127.0.0.1:0")
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = Shutdown(ctx, srv)
	}()

	req, err := http.NewRequest(http.MethodGet, "/metrics", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}

	rec := &responseRecorder{}
	handler := srv.Handler
	handler.ServeHTTP(rec, req)
	if rec.status != 0 && rec.status != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.status)
	}
	if !strings.Contains(rec.body.String(), "metricsd_lines_received_total") {
		t.Fatalf("expected metrics output to mention our counter, got %q", rec.body.String())
	}
}

type responseRecorder struct {
	status int
	body   strings.Builder
	header http.Header
}

func (r *responseRecorder) Header() http.Header {
	if r.header == nil {
		r.header = make(http.Header)
	}
	return r.header
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	return r.body.Write(b)
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
}
