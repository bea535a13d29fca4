package mearec

import "github.com/prometheus/client_golang/prometheus"

var samplesWritten = prometheus.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "mearec_datafile",
	Name:      "samples_written_total",
	Help:      "Total number of samples per channel written.",
}, []string{"path"})

var bytesRead = prometheus.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "mearec_datafile",
	Name:      "bytes_read_total",
	Help:      "Total number of raw sample bytes read.",
}, []string{"path"})

var datasetExtensions = prometheus.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "mearec_datafile",
	Name:      "extensions_total",
	Help:      "Total number of dataset extensions.",
}, []string{"path"})

var lastValidSampleGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
	Subsystem: "mearec_datafile",
	Name:      "last_valid_sample",
	Help:      "Last valid sample observed or published for this recording.",
}, []string{"path"})

var headerRelocations = prometheus.NewCounter(prometheus.CounterOpts{
	Subsystem: "mearec_datafile",
	Name:      "header_relocations_total",
	Help:      "Total number of object headers moved to a larger block.",
})

var checksumRetries = prometheus.NewCounter(prometheus.CounterOpts{
	Subsystem: "mearec_datafile",
	Name:      "checksum_retries_total",
	Help:      "Total number of metadata reads repeated after a checksum mismatch.",
})

var followerUpdates = prometheus.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "mearec_follower",
	Name:      "updates_total",
	Help:      "Total number of newly valid ranges delivered.",
}, []string{"path"})

func init() {
	prometheus.MustRegister(samplesWritten, bytesRead, datasetExtensions, lastValidSampleGauge,
		headerRelocations, checksumRetries, followerUpdates)
}
