package jobs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	importRowsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "debtops_import_rows_total",
		Help: "Data rows read by CSV imports",
	})

	importCommittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "debtops_import_committed_total",
		Help: "Debts stored by CSV imports",
	})

	importRowErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "debtops_import_row_errors_total",
		Help: "Rejected import rows, labeled by error kind",
	}, []string{"kind"})

	importDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "debtops_import_duration_seconds",
		Help:    "Wall time of one CSV import",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
	})

	remindersSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "debtops_reminders_sent_total",
		Help: "Payment reminders handed to the notifier",
	})

	reminderFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "debtops_reminder_failures_total",
		Help: "Reminders that could not be built or delivered",
	})
)
