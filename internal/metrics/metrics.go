package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// API 指标
var (
	// APIRequestsTotal API 请求总数
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "openrag_api_requests_total",
			Help: "API 请求总数",
		},
		[]string{"method", "path", "status"},
	)

	// APIRequestDuration API 请求延迟（秒）
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "openrag_api_request_duration_seconds",
			Help:    "API 请求延迟分布",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// 摄取指标
var (
	// IngestJobsTotal 摄取任务总数（按终态区分）
	IngestJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "openrag_ingest_jobs_total",
			Help: "摄取任务总数",
		},
		[]string{"status"},
	)

	// IngestDuration 单个文件摄取耗时（秒）
	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "openrag_ingest_duration_seconds",
			Help:    "文件摄取耗时分布",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
	)

	// ChunksIndexedTotal 已写入向量存储的分块总数
	ChunksIndexedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "openrag_chunks_indexed_total",
			Help: "已写入向量存储的分块总数",
		},
	)
)

// 查询指标
var (
	// QueriesTotal 问答查询总数
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "openrag_queries_total",
			Help: "问答查询总数",
		},
		[]string{"status"},
	)

	// QueryDuration 问答查询耗时（秒）
	QueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "openrag_query_duration_seconds",
			Help:    "问答查询耗时分布",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
	)
)
