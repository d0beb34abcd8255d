// Package metrics holds Prometheus instruments that are used across the
// service.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SubmissionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "formplant_submissions_total",
			Help: "Cumulative number of successfully finalized submissions.",
		})

	SubmissionErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "formplant_submission_errors_total",
			Help: "Cumulative number of submissions failed by infrastructure errors.",
		})

	ValidationFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "formplant_validation_failures_total",
			Help: "Cumulative number of submissions rejected by validation.",
		})

	SpamRejectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "formplant_spam_rejects_total",
			Help: "Cumulative number of submissions rejected by the spam gate.",
		})

	CaptchaRejectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "formplant_captcha_rejects_total",
			Help: "Cumulative number of submissions rejected by CAPTCHA verification.",
		})

	MailFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "formplant_mail_failures_total",
			Help: "Cumulative number of notification emails that failed to send.",
		})
)

func init() {
	prometheus.MustRegister(
		SubmissionsTotal,
		SubmissionErrorsTotal,
		ValidationFailuresTotal,
		SpamRejectsTotal,
		CaptchaRejectsTotal,
		MailFailuresTotal,
	)
}
