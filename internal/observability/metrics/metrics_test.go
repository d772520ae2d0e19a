package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCatalogMetrics_Redemptions(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newCatalogMetrics(registry, Config{ServiceName: "showcase", Environment: "test"})

	m.IncRedemption(RedeemResultRedeemed)
	m.IncRedemption(RedeemResultRedeemed)
	m.IncRedemption(RedeemResultLimitExceeded)

	if got := testutil.ToFloat64(m.redemptions.WithLabelValues(RedeemResultRedeemed)); got != 2 {
		t.Fatalf("expected 2 redemptions, got %v", got)
	}
	if got := testutil.ToFloat64(m.redemptions.WithLabelValues(RedeemResultLimitExceeded)); got != 1 {
		t.Fatalf("expected 1 rejection, got %v", got)
	}
}

func TestCatalogMetrics_ClassificationLabels(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newCatalogMetrics(registry, Config{})

	m.IncClassificationChange("featured", true)
	m.IncClassificationChange("featured", false)
	m.IncClassificationChange("featured", true)

	if got := testutil.ToFloat64(m.classifications.WithLabelValues("featured", "true")); got != 2 {
		t.Fatalf("expected 2 featured promotions, got %v", got)
	}
}

func TestCatalogMetrics_NilSafe(t *testing.T) {
	var m *CatalogMetrics
	m.IncQuote()
	m.IncRedemption(RedeemResultError)
	m.IncRescore(RescoreResultChanged)
}
