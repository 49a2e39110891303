// Package metrics 客户生命周期的 Prometheus 指标
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransitionsTotal 客户状态转换次数, result 为 success 或错误码
	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crm",
			Subsystem: "customer",
			Name:      "transitions_total",
			Help:      "Total number of customer lifecycle transitions by operation and result",
		},
		[]string{"operation", "result"},
	)

	// ConflictRetriesTotal 并发冲突后的重试次数
	ConflictRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crm",
			Subsystem: "customer",
			Name:      "conflict_retries_total",
			Help:      "Total number of retries caused by concurrent modification",
		},
		[]string{"operation"},
	)

	// TransitionDuration 单次转换耗时
	TransitionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "crm",
			Subsystem: "customer",
			Name:      "transition_duration_seconds",
			Help:      "Duration of customer lifecycle transitions in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"operation"},
	)

	// AutoTransferTotal 自动转移处理的客户数
	AutoTransferTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crm",
			Subsystem: "scheduler",
			Name:      "auto_transfer_customers_total",
			Help:      "Total number of customers processed by the auto-transfer job",
		},
		[]string{"status"},
	)

	// HTTPRequestsTotal 入站请求
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crm",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of inbound HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)
)
