package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	Register(reg)

	SetBuildInfo("1.2.3")
	SessionOpened()
	SessionOpened()
	SessionClosed()
	ObserveRPC("tools/list", true, 2*time.Millisecond)
	ObserveRPC("getApiDetail", false, time.Millisecond)
	ObserveCatalogBuild(8, 10*time.Millisecond, nil)
	ObserveCatalogBuild(0, time.Millisecond, errors.New("boom"))
	MessageForwarded("out")

	if v := testutil.ToFloat64(buildInfo.WithLabelValues("1.2.3")); v != 1 {
		t.Fatalf("build info: %v", v)
	}
	if v := testutil.ToFloat64(sessionsOpen); v != 1 {
		t.Fatalf("sessions open: %v", v)
	}
	if v := testutil.ToFloat64(sessionsTotal.WithLabelValues("opened")); v != 2 {
		t.Fatalf("sessions opened: %v", v)
	}
	if v := testutil.ToFloat64(rpcRequests.WithLabelValues("getApiDetail", OutcomeError)); v != 1 {
		t.Fatalf("rpc errors: %v", v)
	}
	if v := testutil.ToFloat64(catalogEndpoints); v != 8 {
		t.Fatalf("failed build must not reset endpoints gauge: %v", v)
	}
	if v := testutil.ToFloat64(catalogBuilds.WithLabelValues(OutcomeError)); v != 1 {
		t.Fatalf("failed builds: %v", v)
	}
	if v := testutil.ToFloat64(forwardedMessages.WithLabelValues("out")); v != 1 {
		t.Fatalf("forwarded: %v", v)
	}
	if n := testutil.CollectAndCount(rpcDuration); n != 2 {
		t.Fatalf("rpc duration series: %d", n)
	}
}
