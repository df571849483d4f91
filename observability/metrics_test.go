package observability

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestLedgerMetrics(t *testing.T) {
	m := Ledger()
	before := testutil.ToFloat64(m.calls.WithLabelValues("test.call", "rolled_back"))
	m.ObserveCall("test.call", time.Millisecond, errors.New("boom"))
	m.ObserveCall("test.call", time.Millisecond, nil)
	if got := testutil.ToFloat64(m.calls.WithLabelValues("test.call", "rolled_back")); got != before+1 {
		t.Fatalf("rolled back calls = %v, want %v", got, before+1)
	}

	m.SetHeight(12)
	if got := testutil.ToFloat64(m.height); got != 12 {
		t.Fatalf("height gauge = %v", got)
	}

	volBefore := testutil.ToFloat64(m.volume.WithLabelValues("TST"))
	m.RecordPayment("tst", true, big.NewInt(10000), big.NewInt(250))
	if got := testutil.ToFloat64(m.volume.WithLabelValues("TST")); got != volBefore+10000 {
		t.Fatalf("volume = %v", got)
	}
	if got := testutil.ToFloat64(m.payments.WithLabelValues("TST", "escrowed")); got < 1 {
		t.Fatalf("escrowed payments not counted")
	}
}

func TestModuleMetricsObserve(t *testing.T) {
	m := ModuleMetrics()
	before := testutil.ToFloat64(m.errors.WithLabelValues("payments", "send", "-32011"))
	m.Observe("payments", "send", -32011, time.Millisecond)
	if got := testutil.ToFloat64(m.errors.WithLabelValues("payments", "send", "-32011")); got != before+1 {
		t.Fatalf("errors = %v, want %v", got, before+1)
	}
	var nilMetrics *LedgerMetrics
	nilMetrics.RecordClaim("USD")
}

func TestBigToFloat(t *testing.T) {
	if bigToFloat(nil) != 0 || bigToFloat(big.NewInt(-5)) != 0 {
		t.Fatalf("non-positive values should map to zero")
	}
	if bigToFloat(big.NewInt(97_50)) != 9750 {
		t.Fatalf("unexpected conversion")
	}
}
