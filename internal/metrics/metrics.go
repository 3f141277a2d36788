package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Resolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hostelcare_profile_resolutions_total",
		Help: "Profile resolutions by winning source (backend, cache, synthesized).",
	}, []string{"source"})

	StaleDiscards = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hostelcare_stale_resolutions_discarded_total",
		Help: "Resolutions discarded because their principal was superseded.",
	})

	PolicyViolations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hostelcare_policy_violations_total",
		Help: "Sign-ins rejected by the email domain policy.",
	})

	SaveRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hostelcare_profile_save_rejections_total",
		Help: "Profile saves rejected by the backend.",
	})
)
