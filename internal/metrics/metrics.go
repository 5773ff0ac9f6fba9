// Package metrics exports Prometheus counters for the host adapter and
// dnode cache, the way gcsfuse's common package exports OpenCensus/OTel
// stats for its GCS transport. Unlike gcsfuse we have no cloud monitoring
// backend to export to, so these are plain client_golang counters meant to
// be scraped by an embedder that wires in an HTTP handler (the cmd package
// does, via promhttp, when --metrics-addr is set).
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// HostBlockReads counts physical block reads issued to a HostAdapter.
	HostBlockReads = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gofsw",
		Subsystem: "host",
		Name:      "block_reads_total",
		Help:      "Physical blocks read from the backing image.",
	})

	// HostCacheHits counts ReadBlock calls served from the host adapter's
	// single-slot block cache without touching the backing reader.
	HostCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gofsw",
		Subsystem: "host",
		Name:      "block_cache_hits_total",
		Help:      "ReadBlock calls served from the single-slot block cache.",
	})

	// DnodeCacheSize reports the number of live dnodes on the most
	// recently mounted volume, as sampled right after the mount; the CLI
	// resets it to 0 when it unmounts. It is not updated in between.
	DnodeCacheSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "gofsw",
		Subsystem: "dnode",
		Name:      "cache_size",
		Help:      "Live dnodes currently held in a volume's cache.",
	})
)

func init() {
	prometheus.MustRegister(HostBlockReads, HostCacheHits, DnodeCacheSize)
}
