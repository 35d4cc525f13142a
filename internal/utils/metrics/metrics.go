package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LoginAttemptsTotal counts login attempts by outcome
	// (success, invalid_credentials, locked, challenge_issued).
	LoginAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trust_engine_login_attempts_total",
		Help: "The total number of login attempts by outcome",
	}, []string{"outcome"})

	// ChallengesIssuedTotal counts verification challenges dispatched by channel.
	ChallengesIssuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trust_engine_challenges_issued_total",
		Help: "The total number of verification challenges dispatched",
	}, []string{"channel"})

	// ChallengeDedupHitsTotal counts issue requests answered by an in-flight challenge.
	ChallengeDedupHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trust_engine_challenge_dedup_hits_total",
		Help: "The total number of challenge requests deduplicated within the send window",
	})

	// ChallengeValidationsTotal counts code validations by result (valid, invalid).
	ChallengeValidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trust_engine_challenge_validations_total",
		Help: "The total number of verification code validations",
	}, []string{"result"})

	// TrustBypassTotal counts 2FA bypasses by trust source (device, admin_ip).
	TrustBypassTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trust_engine_trust_bypass_total",
		Help: "The total number of 2FA challenges skipped due to existing trust",
	}, []string{"source"})

	// LockoutsTriggeredTotal counts automatic account lockouts.
	LockoutsTriggeredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trust_engine_lockouts_triggered_total",
		Help: "The total number of automatic account lockouts",
	})

	// AuditWriteFailuresTotal counts swallowed audit-log write failures.
	AuditWriteFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trust_engine_audit_write_failures_total",
		Help: "The total number of audit log writes that failed and were swallowed",
	})

	// RequestDuration tracks HTTP request latency.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "trust_engine_request_duration_seconds",
		Help:    "The HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)
