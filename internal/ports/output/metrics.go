package output

import "time"

// MetricsCollector defines the secondary port for metrics collection.
type MetricsCollector interface {
	// IncQueryCount increments the query counter for a product.
	IncQueryCount(product string, success bool)

	// ObserveQueryDuration records query duration for a product.
	ObserveQueryDuration(product string, duration time.Duration)

	// SetGranulesIndexed sets the number of granules indexed for a product.
	SetGranulesIndexed(product string, count int)

	// SetProductsTracked sets the number of products with at least one
	// indexed granule.
	SetProductsTracked(count int)

	// IncProviderOperations increments a provider operation counter.
	IncProviderOperations(provider, operation string, success bool)

	// ObserveProviderDuration records provider operation duration.
	ObserveProviderDuration(provider, operation string, duration time.Duration)
}

// NoOpMetrics is a no-op implementation of MetricsCollector.
type NoOpMetrics struct{}

func (n *NoOpMetrics) IncQueryCount(_ string, _ bool)                              {}
func (n *NoOpMetrics) ObserveQueryDuration(_ string, _ time.Duration)              {}
func (n *NoOpMetrics) SetGranulesIndexed(_ string, _ int)                          {}
func (n *NoOpMetrics) SetProductsTracked(_ int)                                    {}
func (n *NoOpMetrics) IncProviderOperations(_, _ string, _ bool)                   {}
func (n *NoOpMetrics) ObserveProviderDuration(_, _ string, _ time.Duration)        {}

var _ MetricsCollector = (*NoOpMetrics)(nil)
