package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	EmailsSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "emails_sent_total",
			Help: "Total emails sent",
		},
	)

	EmailFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "email_failures_total",
			Help: "Total failed emails",
		},
	)

	CampaignsQueued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "campaigns_queued_total",
			Help: "Total campaigns handed to the broker",
		},
	)

	CampaignsFallback = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "campaigns_fallback_total",
			Help: "Total campaigns processed synchronously because the broker was unavailable",
		},
	)

	CampaignsCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaigns_completed_total",
			Help: "Total campaigns that reached a terminal status",
		},
		[]string{"status"},
	)

	OTPIssued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "otp_issued_total",
			Help: "Total verification codes issued",
		},
	)
)

func Init() {
	prometheus.MustRegister(EmailsSent)
	prometheus.MustRegister(EmailFailures)
	prometheus.MustRegister(CampaignsQueued)
	prometheus.MustRegister(CampaignsFallback)
	prometheus.MustRegister(CampaignsCompleted)
	prometheus.MustRegister(OTPIssued)
}
