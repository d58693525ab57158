package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the service counters. A single instance is created at
// startup and shared through the application services.
type Metrics struct {
	Assessments      *prometheus.CounterVec
	Verifications    *prometheus.CounterVec
	AlertsCreated    prometheus.Counter
	ChallengesIssued prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Assessments: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "risk_assessments_total",
			Help: "Risk assessments by decision label.",
		}, []string{"decision"}),
		Verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "otp_verifications_total",
			Help: "Challenge verification attempts by outcome.",
		}, []string{"reason"}),
		AlertsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "fraud_alerts_created_total",
			Help: "Fraud alerts created by the assessment path.",
		}),
		ChallengesIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "otp_challenges_issued_total",
			Help: "Verification challenges issued.",
		}),
	}
}
