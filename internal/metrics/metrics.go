package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	IngestEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jgw_ingest_events_total",
			Help: "Inbound judgment events by outcome",
		},
		[]string{"outcome"}, // created|duplicate|validation|resolution|conflict|error
	)

	ExportRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jgw_export_records_total",
			Help: "Records written to export files by site and mode",
		},
		[]string{"site", "mode"}, // live|test|rerun
	)

	ExportSiteFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jgw_export_site_failures_total",
			Help: "Per-site export failures by pipeline stage",
		},
		[]string{"stage"}, // load|stage|transfer|mark
	)

	RetentionDeletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "jgw_retention_deleted_total",
			Help: "Reported judgment records removed by the retention sweep",
		},
	)

	RefDataLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jgw_refdata_lookups_total",
			Help: "Court code lookups by result",
		},
		[]string{"result"}, // hit|miss|unrecognised|error|breaker_open
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		IngestEventsTotal,
		ExportRecordsTotal,
		ExportSiteFailuresTotal,
		RetentionDeletedTotal,
		RefDataLookupsTotal,
	)
}
