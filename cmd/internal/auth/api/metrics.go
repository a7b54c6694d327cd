package authapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the auth-facing counters exposed on /metrics.
type Metrics struct {
	LoginSuccess   prometheus.Counter
	LoginFailure   prometheus.Counter
	RefreshSuccess prometheus.Counter
	RefreshReuse   prometheus.Counter
	Logout         prometheus.Counter
	Signup         prometheus.Counter
	RateLimited    prometheus.Counter
}

// NewMetrics registers the auth counters on reg. A nil registerer uses the
// default one.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		LoginSuccess: factory.NewCounter(prometheus.CounterOpts{
			Name: "balcao_auth_login_success_total",
			Help: "Successful logins.",
		}),
		LoginFailure: factory.NewCounter(prometheus.CounterOpts{
			Name: "balcao_auth_login_failure_total",
			Help: "Rejected logins (bad credentials or excluded role).",
		}),
		RefreshSuccess: factory.NewCounter(prometheus.CounterOpts{
			Name: "balcao_auth_refresh_success_total",
			Help: "Successful refresh rotations.",
		}),
		RefreshReuse: factory.NewCounter(prometheus.CounterOpts{
			Name: "balcao_auth_refresh_rejected_total",
			Help: "Rejected refresh presentations, including detected reuse.",
		}),
		Logout: factory.NewCounter(prometheus.CounterOpts{
			Name: "balcao_auth_logout_total",
			Help: "Logout requests.",
		}),
		Signup: factory.NewCounter(prometheus.CounterOpts{
			Name: "balcao_auth_signup_total",
			Help: "Principals registered through signup.",
		}),
		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Name: "balcao_auth_rate_limited_total",
			Help: "Requests rejected by the auth rate limiter.",
		}),
	}
}
