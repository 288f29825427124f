package reconcile

import (
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/finrecon/pkg/metricskey"
	"github.com/effective-security/metrics"
)

// ServiceName is the service name of the metrics
const ServiceName = "finrecon"

// Usage is the in-memory metrics sink of a run
type Usage struct {
	sink *metrics.InmemSink
}

// NewUsage installs a new in-memory sink as the global metrics sink
func NewUsage() (*Usage, error) {
	sink := metrics.NewInmemSink(time.Hour, time.Hour)
	if _, err := metrics.NewGlobal(metrics.DefaultConfig(ServiceName), sink); err != nil {
		return nil, errors.Wrap(err, "failed to create metrics")
	}
	return &Usage{sink: sink}, nil
}

// Counter returns the total of the counter for all tags
func (u *Usage) Counter(d metrics.Describe) float64 {
	var total float64
	for _, interval := range u.sink.Data() {
		for _, v := range interval.Counters {
			if v.Name == d.Name || strings.HasSuffix(v.Name, "."+d.Name) {
				total += float64(v.Sum)
			}
		}
	}
	return total
}

// String returns the summary of the counters
func (u *Usage) String() string {
	return fmt.Sprintf("Metrics: assistant calls: %.0f, failed: %.0f\n"+
		"Metrics: tool calls: %.0f, failed: %.0f, not found: %.0f, table queries: %.0f, server requests: %.0f\n"+
		"Metrics: LLM messages: %.0f, input tokens: %.0f, output tokens: %.0f, total tokens: %.0f\n",
		u.Counter(metricskey.StatsAssistantCallsSucceeded),
		u.Counter(metricskey.StatsAssistantCallsFailed),
		u.Counter(metricskey.StatsToolCallsSucceeded),
		u.Counter(metricskey.StatsToolCallsFailed),
		u.Counter(metricskey.StatsToolCallsNotFound),
		u.Counter(metricskey.StatsTableQueriesSucceeded),
		u.Counter(metricskey.StatsFinanceServerRequests),
		u.Counter(metricskey.StatsLLMMessagesSent),
		u.Counter(metricskey.StatsLLMInputTokens),
		u.Counter(metricskey.StatsLLMOutputTokens),
		u.Counter(metricskey.StatsLLMTotalTokens),
	)
}
