package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the polling engine's Prometheus metrics
type Metrics struct {
	Ticks           prometheus.Counter
	DueChecks       prometheus.Counter
	ConfigFaults    prometheus.Counter
	StoreFaults     prometheus.Counter
	FetchFailures   prometheus.Counter
	NewVideos       prometheus.Counter
	Notifications   *prometheus.CounterVec
	CycleDuration   prometheus.Histogram
	ScheduledGuilds prometheus.Gauge
}

// New registers the metrics with reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Ticks: factory.NewCounter(prometheus.CounterOpts{
			Name: "video_notifier_ticks_total",
			Help: "Total number of polling ticks, including the startup reconciliation",
		}),
		DueChecks: factory.NewCounter(prometheus.CounterOpts{
			Name: "video_notifier_due_checks_total",
			Help: "Total number of guild checks that were due and claimed",
		}),
		ConfigFaults: factory.NewCounter(prometheus.CounterOpts{
			Name: "video_notifier_config_faults_total",
			Help: "Total number of guild cycles skipped because of an invalid schedule",
		}),
		StoreFaults: factory.NewCounter(prometheus.CounterOpts{
			Name: "video_notifier_store_faults_total",
			Help: "Total number of checkpoint read or write failures",
		}),
		FetchFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "video_notifier_fetch_failures_total",
			Help: "Total number of failed content listing requests",
		}),
		NewVideos: factory.NewCounter(prometheus.CounterOpts{
			Name: "video_notifier_new_videos_total",
			Help: "Total number of videos detected as new",
		}),
		Notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "video_notifier_notifications_total",
			Help: "Total number of notification deliveries by result",
		}, []string{"result"}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "video_notifier_guild_cycle_duration_seconds",
			Help:    "Time spent in one guild cycle",
			Buckets: prometheus.DefBuckets,
		}),
		ScheduledGuilds: factory.NewGauge(prometheus.GaugeOpts{
			Name: "video_notifier_scheduled_guilds",
			Help: "Number of guilds with a schedule at the last tick",
		}),
	}
}

func (m *Metrics) NotificationSent() {
	m.Notifications.WithLabelValues("sent").Inc()
}

func (m *Metrics) NotificationFailed() {
	m.Notifications.WithLabelValues("failed").Inc()
}
