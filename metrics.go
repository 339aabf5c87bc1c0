package main

import (
	"net/http"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type MailerMetrics struct {
	Session *SessionMetrics
}

type SessionMetrics struct {
	Commands metrics.Counter
	Logins   metrics.Counter
}

func NewMailerMetrics(prometheusAddr string) *MailerMetrics {

	m := &MailerMetrics{}

	if prometheusAddr == "" {
		m.Session = &SessionMetrics{
			Commands: discard.NewCounter(),
			Logins:   discard.NewCounter(),
		}
	} else {
		m.Session = &SessionMetrics{
			Commands: prometheus.NewCounterFrom(prom.CounterOpts{
				Namespace: "twmailer",
				Subsystem: "session",
				Name:      "commands_total",
				Help:      "Number of processed commands",
			}, []string{"command"}),
			Logins: prometheus.NewCounterFrom(prom.CounterOpts{
				Namespace: "twmailer",
				Subsystem: "session",
				Name:      "logins_total",
				Help:      "Number of successful logins",
			}, nil),
		}
	}

	return m
}

func runPromHTTP(logger log.Logger, addr string) {

	if addr == "" {
		level.Debug(logger).Log("msg", "prometheus addr is empty, not exposing prometheus metrics")
		return
	}

	http.Handle("/metrics", promhttp.HandlerFor(prom.DefaultGatherer, promhttp.HandlerOpts{}))

	level.Info(logger).Log("msg", "prometheus handler listening", "addr", addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		level.Warn(logger).Log("msg", "failed to serve prometheus metrics", "err", err)
	}
}
