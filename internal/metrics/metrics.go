// Package metrics exposes Prometheus counters for the offer pipeline and
// campaign delivery. Scraped at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OffersGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plateful_offers_generated_total",
			Help: "Offers produced, by channel and pipeline tier",
		},
		[]string{"channel", "tier"},
	)

	OfferGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "plateful_offer_generation_seconds",
			Help:    "Wall time of offer generation including AI calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"channel"},
	)

	OfferCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plateful_offer_cache_total",
			Help: "Offer cache lookups, by outcome",
		},
		[]string{"outcome"},
	)

	CampaignSends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plateful_campaign_sends_total",
			Help: "Campaign send runs, by channel and result",
		},
		[]string{"channel", "result"},
	)

	DeliveriesRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plateful_deliveries_total",
			Help: "Per-recipient delivery outcomes",
		},
		[]string{"channel", "status"},
	)

	LLMBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plateful_llm_breaker_transitions_total",
			Help: "Circuit breaker state changes for the LLM upstream",
		},
		[]string{"from", "to"},
	)
)
