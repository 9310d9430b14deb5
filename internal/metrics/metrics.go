// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PagesExtracted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claims_pages_extracted_total",
			Help: "Pages extracted, by text source",
		},
		[]string{"source"}, // digital | ocr | failed
	)
	DocumentsExtracted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claims_documents_extracted_total",
			Help: "Documents extracted, by result",
		},
		[]string{"result"}, // ok | open_error | canceled
	)
	ExtractionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "claims_extraction_duration_seconds",
			Help:    "Whole-document extraction latency",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
		},
		[]string{"kind"}, // digital | scanned
	)
	LiveSlotsInUse = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "claims_live_ocr_slots_in_use",
			Help: "Live OCR jobs currently holding an admission slot",
		},
	)
	Searches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claims_searches_total",
			Help: "Queries evaluated, by kind and outcome",
		},
		[]string{"kind", "outcome"}, // keyword|field, matched|no_match|invalid|error
	)
	Deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claims_deliveries_total",
			Help: "Downstream result deliveries, by result",
		},
		[]string{"result"}, // ok | failed | dropped
	)
	BatchSuccessRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "claims_batch_success_ratio",
			Help: "processed/total of the most recent batch run",
		},
	)
)
