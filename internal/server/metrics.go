// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics is registered on a per-server registry so tests can build many
// servers in one process.
type metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	replies  *prometheus.CounterVec
	logins   *prometheus.CounterVec
	limited  prometheus.Counter
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &metrics{
		registry: reg,
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mindchat",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route, and status.",
		}, []string{"method", "path", "status"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mindchat",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		replies: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mindchat",
			Name:      "chat_replies_total",
			Help:      "Chat replies by outcome and detected language.",
		}, []string{"outcome", "language"}),
		logins: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mindchat",
			Name:      "auth_logins_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),
		limited: f.NewCounter(prometheus.CounterOpts{
			Namespace: "mindchat",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
	}
}
