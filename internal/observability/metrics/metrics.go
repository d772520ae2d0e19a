package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Config carries the constant labels attached to every instrument.
type Config struct {
	ServiceName string
	Environment string
}

func (c Config) constLabels() prometheus.Labels {
	serviceName := strings.TrimSpace(c.ServiceName)
	if serviceName == "" {
		serviceName = "showcase"
	}
	environment := strings.TrimSpace(c.Environment)
	if environment == "" {
		environment = "unknown"
	}
	return prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}
}

const (
	RedeemResultRedeemed      = "redeemed"
	RedeemResultLimitExceeded = "limit_exceeded"
	RedeemResultError         = "error"

	RescoreResultChanged   = "changed"
	RescoreResultUnchanged = "unchanged"
	RescoreResultError     = "error"

	PricingAnomalyMalformed = "malformed"
	PricingAnomalyPanic     = "panic"
)

// CatalogMetrics covers pricing, redemption and scoring.
type CatalogMetrics struct {
	quotes          prometheus.Counter
	pricingAnomaly  *prometheus.CounterVec
	redemptions     *prometheus.CounterVec
	redeemDuration  prometheus.Observer
	rescores        *prometheus.CounterVec
	classifications *prometheus.CounterVec
	eventsPublished *prometheus.CounterVec
}

var (
	catalogMetricsOnce sync.Once
	catalogMetrics     *CatalogMetrics
)

// Catalog returns the singleton catalog metrics registry.
func Catalog() *CatalogMetrics {
	return CatalogWithConfig(Config{})
}

// CatalogWithConfig returns the singleton catalog metrics registry using config labels.
func CatalogWithConfig(cfg Config) *CatalogMetrics {
	catalogMetricsOnce.Do(func() {
		catalogMetrics = newCatalogMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return catalogMetrics
}

// ResetCatalogMetricsForTest resets the catalog metrics singleton for tests.
func ResetCatalogMetricsForTest() {
	catalogMetricsOnce = sync.Once{}
	catalogMetrics = nil
}

func newCatalogMetrics(registerer prometheus.Registerer, cfg Config) *CatalogMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	constLabels := cfg.constLabels()

	quotes := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "showcase_pricing_quotes_total",
		Help:        "Price quotes computed with promotions.",
		ConstLabels: constLabels,
	})
	pricingAnomaly := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "showcase_pricing_promotion_skipped_total",
		Help:        "Promotions skipped during pricing because their evaluation failed.",
		ConstLabels: constLabels,
	}, []string{"reason"})
	redemptions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "showcase_promotion_redemptions_total",
		Help:        "Promotion redemption attempts by result.",
		ConstLabels: constLabels,
	}, []string{"result"})
	redeemDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "showcase_promotion_redeem_duration_seconds",
		Help:        "Redemption latency including lock wait.",
		Buckets:     []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		ConstLabels: constLabels,
	})
	rescores := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "showcase_scoring_recalculations_total",
		Help:        "Product score recalculations by result.",
		ConstLabels: constLabels,
	}, []string{"result"})
	classifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "showcase_scoring_classification_changes_total",
		Help:        "Classification flips by score kind and new value.",
		ConstLabels: constLabels,
	}, []string{"kind", "value"})
	eventsPublished := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "showcase_events_published_total",
		Help:        "Classification change events by publish outcome.",
		ConstLabels: constLabels,
	}, []string{"outcome"})

	registerer.MustRegister(
		quotes,
		pricingAnomaly,
		redemptions,
		redeemDuration,
		rescores,
		classifications,
		eventsPublished,
	)

	return &CatalogMetrics{
		quotes:          quotes,
		pricingAnomaly:  pricingAnomaly,
		redemptions:     redemptions,
		redeemDuration:  redeemDuration,
		rescores:        rescores,
		classifications: classifications,
		eventsPublished: eventsPublished,
	}
}

func (m *CatalogMetrics) IncQuote() {
	if m == nil {
		return
	}
	m.quotes.Inc()
}

func (m *CatalogMetrics) IncPricingAnomaly(reason string) {
	if m == nil {
		return
	}
	m.pricingAnomaly.WithLabelValues(reason).Inc()
}

func (m *CatalogMetrics) IncRedemption(result string) {
	if m == nil {
		return
	}
	m.redemptions.WithLabelValues(result).Inc()
}

func (m *CatalogMetrics) ObserveRedeemDuration(seconds float64) {
	if m == nil {
		return
	}
	m.redeemDuration.Observe(seconds)
}

func (m *CatalogMetrics) IncRescore(result string) {
	if m == nil {
		return
	}
	m.rescores.WithLabelValues(result).Inc()
}

// IncClassificationChange records a flip of is_featured or is_recommended.
func (m *CatalogMetrics) IncClassificationChange(kind string, value bool) {
	if m == nil {
		return
	}
	label := "false"
	if value {
		label = "true"
	}
	m.classifications.WithLabelValues(kind, label).Inc()
}

func (m *CatalogMetrics) IncEventPublished(outcome string) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(outcome).Inc()
}
