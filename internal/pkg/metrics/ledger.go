package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type LedgerMetrics struct {
	pointsCredited    *prometheus.CounterVec
	pointsDebited     *prometheus.CounterVec
	earnSkipped       *prometheus.CounterVec
	duplicates        *prometheus.CounterVec
	redemptions       *prometheus.CounterVec
	notifications     *prometheus.CounterVec
	balanceDrift      prometheus.Counter
	outboxFailures    prometheus.Counter
	notificationQueue prometheus.Gauge
}

var (
	ledgerOnce     sync.Once
	ledgerRegistry *LedgerMetrics
)

func Ledger() *LedgerMetrics {
	ledgerOnce.Do(func() {
		ledgerRegistry = &LedgerMetrics{
			pointsCredited: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "rewards_points_credited_total",
				Help: "Points credited to buyers by seller.",
			}, []string{"seller"}),
			pointsDebited: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "rewards_points_debited_total",
				Help: "Points debited from buyers by seller.",
			}, []string{"seller"}),
			earnSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "rewards_earn_skipped_total",
				Help: "Completed orders that earned nothing, by reason.",
			}, []string{"reason"}),
			duplicates: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "rewards_ledger_duplicates_total",
				Help: "Idempotent replays absorbed by the ledger, by entry kind.",
			}, []string{"kind"}),
			redemptions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "rewards_redemptions_total",
				Help: "Redemption attempts by outcome.",
			}, []string{"outcome"}),
			notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "rewards_notifications_total",
				Help: "Notification events by stage.",
			}, []string{"stage"}),
			balanceDrift: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "rewards_balance_drift_total",
				Help: "Cached balances repaired by reconciliation.",
			}),
			outboxFailures: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "rewards_outbox_failures_total",
				Help: "Order completions that failed to process.",
			}),
			notificationQueue: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "rewards_notification_queue_length",
				Help: "Events waiting for delivery to the notification sink.",
			}),
		}
		prometheus.MustRegister(
			ledgerRegistry.pointsCredited,
			ledgerRegistry.pointsDebited,
			ledgerRegistry.earnSkipped,
			ledgerRegistry.duplicates,
			ledgerRegistry.redemptions,
			ledgerRegistry.notifications,
			ledgerRegistry.balanceDrift,
			ledgerRegistry.outboxFailures,
			ledgerRegistry.notificationQueue,
		)
	})
	return ledgerRegistry
}

func (m *LedgerMetrics) ObserveCredit(sellerID string, points int64) {
	if m == nil {
		return
	}
	m.pointsCredited.WithLabelValues(sellerID).Add(float64(points))
}

func (m *LedgerMetrics) ObserveDebit(sellerID string, points int64) {
	if m == nil {
		return
	}
	m.pointsDebited.WithLabelValues(sellerID).Add(float64(points))
}

func (m *LedgerMetrics) ObserveEarnSkipped(reason string) {
	if m == nil {
		return
	}
	m.earnSkipped.WithLabelValues(reason).Inc()
}

func (m *LedgerMetrics) ObserveDuplicate(kind string) {
	if m == nil {
		return
	}
	m.duplicates.WithLabelValues(kind).Inc()
}

func (m *LedgerMetrics) ObserveRedemption(outcome string) {
	if m == nil {
		return
	}
	m.redemptions.WithLabelValues(outcome).Inc()
}

func (m *LedgerMetrics) ObserveNotification(stage string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(stage).Inc()
}

func (m *LedgerMetrics) ObserveBalanceDrift() {
	if m == nil {
		return
	}
	m.balanceDrift.Inc()
}

func (m *LedgerMetrics) ObserveOutboxFailure() {
	if m == nil {
		return
	}
	m.outboxFailures.Inc()
}

func (m *LedgerMetrics) SetNotificationQueue(length int64) {
	if m == nil {
		return
	}
	m.notificationQueue.Set(float64(length))
}
