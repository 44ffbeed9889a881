package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Graph metrics
	GraphRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finsight_graph_runs_total",
			Help: "Total number of routed queries",
		},
		[]string{"branch", "status"}, // status: success|error
	)

	GraphDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "finsight_graph_duration_seconds",
			Help:    "End-to-end query duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"branch"},
	)

	// Agent metrics
	AgentCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finsight_agent_calls_total",
			Help: "Total number of chat model turns",
		},
		[]string{"agent", "status"},
	)

	AgentLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "finsight_agent_latency_seconds",
			Help:    "Chat model turn latency in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		},
		[]string{"agent"},
	)

	AgentTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finsight_agent_tokens_total",
			Help: "Total tokens used by agents",
		},
		[]string{"agent", "type"}, // type: input|output
	)

	AgentCost = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finsight_agent_cost_usd",
			Help: "Total LLM cost in USD",
		},
		[]string{"branch"},
	)

	// Tool metrics
	ToolExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finsight_tool_executions_total",
			Help: "Total number of tool executions",
		},
		[]string{"tool", "status"}, // status: success|failed_result|error
	)

	ToolLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "finsight_tool_latency_seconds",
			Help:    "Tool execution latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"tool"},
	)

	// Upstream metrics
	MarketDataCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finsight_marketdata_calls_total",
			Help: "Total number of market data API calls",
		},
		[]string{"endpoint", "status"},
	)

	DBQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finsight_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"database", "operation", "status"},
	)

	DBQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "finsight_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"database", "operation"},
	)
)

var initOnce sync.Once

// Init registers all metrics with Prometheus. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(GraphRuns)
		prometheus.MustRegister(GraphDuration)

		prometheus.MustRegister(AgentCalls)
		prometheus.MustRegister(AgentLatency)
		prometheus.MustRegister(AgentTokens)
		prometheus.MustRegister(AgentCost)

		prometheus.MustRegister(ToolExecutions)
		prometheus.MustRegister(ToolLatency)

		prometheus.MustRegister(MarketDataCalls)
		prometheus.MustRegister(DBQueries)
		prometheus.MustRegister(DBQueryDuration)
	})
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordGraphRun records one routed query and its accumulated LLM cost.
func RecordGraphRun(branch string, duration time.Duration, cost float64, err error) {
	GraphRuns.WithLabelValues(branch, status(err)).Inc()
	GraphDuration.WithLabelValues(branch).Observe(duration.Seconds())
	if cost > 0 {
		AgentCost.WithLabelValues(branch).Add(cost)
	}
}

// RecordAgentCall records a chat model turn.
func RecordAgentCall(agent string, latency time.Duration, inputTokens, outputTokens int, err error) {
	AgentCalls.WithLabelValues(agent, status(err)).Inc()
	AgentLatency.WithLabelValues(agent).Observe(latency.Seconds())
	if inputTokens > 0 {
		AgentTokens.WithLabelValues(agent, "input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		AgentTokens.WithLabelValues(agent, "output").Add(float64(outputTokens))
	}
}

// RecordToolExecution records a tool execution. failedResult marks a tool that
// completed but reported a failure to the model as text.
func RecordToolExecution(tool string, latency time.Duration, failedResult bool, err error) {
	s := status(err)
	if err == nil && failedResult {
		s = "failed_result"
	}
	ToolExecutions.WithLabelValues(tool, s).Inc()
	ToolLatency.WithLabelValues(tool).Observe(latency.Seconds())
}

// RecordMarketDataCall records a market data API call.
func RecordMarketDataCall(endpoint string, err error) {
	MarketDataCalls.WithLabelValues(endpoint, status(err)).Inc()
}

// RecordDBQuery records a database query
func RecordDBQuery(database, operation string, duration time.Duration, err error) {
	DBQueries.WithLabelValues(database, operation, status(err)).Inc()
	DBQueryDuration.WithLabelValues(database, operation).Observe(duration.Seconds())
}
