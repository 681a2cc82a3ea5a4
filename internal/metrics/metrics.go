// Package metrics holds the Prometheus collectors exported by the relay.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Relocations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mediarelay_relocations_total",
		Help: "Relocation workflow runs by outcome",
	}, []string{"outcome"})

	ScanPasses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mediarelay_scan_passes_total",
		Help: "Scan-and-notify passes by outcome",
	}, []string{"outcome"})

	DirectMessages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mediarelay_direct_messages_total",
		Help: "Per-member notification deliveries by status",
	}, []string{"status"})

	OutboundMessages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mediarelay_outbound_messages_total",
		Help: "Individual messages posted, by kind and status",
	}, []string{"kind", "status"})

	AttachmentsSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mediarelay_attachments_skipped_total",
		Help: "Attachments not forwarded because they exceed the size limit or failed to download",
	})

	ScanCursor = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mediarelay_scan_cursor",
		Help: "Last persisted scan cursor",
	})
)

// MustRegister registers every collector with registerer.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		Relocations,
		ScanPasses,
		DirectMessages,
		OutboundMessages,
		AttachmentsSkipped,
		ScanCursor,
	)
}

// ObserveSend records one outbound message.
func ObserveSend(kind string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	OutboundMessages.WithLabelValues(kind, status).Inc()
}
