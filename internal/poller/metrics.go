package poller

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricFetchCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "listings_fetch_total",
		Help: "The total number of upstream fetches by outcome",
	}, []string{"outcome"})

	metricNewItems = promauto.NewCounter(prometheus.CounterOpts{
		Name: "listings_new_total",
		Help: "The total number of newly detected listings",
	})

	metricPublishErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "listings_publish_errors_total",
		Help: "The total number of failed publish calls",
	})

	metricFaults = promauto.NewCounter(prometheus.CounterOpts{
		Name: "listings_faults_total",
		Help: "The total number of poll cycles aborted by a fault",
	})

	metricHighWater = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "listings_high_water_mark",
		Help: "Identifier recorded as the most recently seen listing",
	})

	metricPast24 = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "listings_past24_total",
		Help: "Newly detected listings over the rolling 24 hour buckets",
	})
)
