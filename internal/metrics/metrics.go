// Package metrics exposes Prometheus instrumentation for the mission
// engine. Collectors register on the default registry and are served by
// the monitor's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StatusesPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "missionengine_statuses_published_total",
		Help: "Mission status snapshots published to the broker.",
	})

	PublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "missionengine_publish_failures_total",
		Help: "Outbound publishes that failed. Failures are never retried in-line.",
	})

	Deliveries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "missionengine_deliveries_total",
		Help: "Payload release commands issued.",
	})

	ObstacleEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "missionengine_obstacle_events_total",
		Help: "Obstacle events by gate result.",
	}, []string{"result"})

	StateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "missionengine_state_transitions_total",
		Help: "Mission state transitions by target state.",
	}, []string{"to"})

	MissionProgress = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "missionengine_mission_progress_percent",
		Help: "Progress of the active mission, 0-100.",
	})
)

// Obstacle gate results.
const (
	ObstacleAccepted  = "accepted"
	ObstacleIgnored   = "ignored"
	ObstacleMalformed = "malformed"
)
