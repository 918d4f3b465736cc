package fraud

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	assessmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fraud_assessments_total",
		Help: "Total number of order risk assessments by resulting risk level",
	}, []string{"level"})

	flagsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fraud_flags_total",
		Help: "Total number of triggered fraud flags by type",
	}, []string{"flag"})

	analysisFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fraud_analysis_failures_total",
		Help: "Total number of assessments that failed open",
	})

	alertsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fraud_alerts_created_total",
		Help: "Total number of persisted fraud alerts by risk level",
	}, []string{"level"})

	usersBlockedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fraud_users_blocked_total",
		Help: "Total number of accounts blocked",
	})
)

func recordAssessment(a *RiskAssessment) {
	assessmentsTotal.WithLabelValues(string(a.RiskLevel)).Inc()
	for _, f := range a.Flags {
		flagsTotal.WithLabelValues(string(f.Type)).Inc()
	}
}
