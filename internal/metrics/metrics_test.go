package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordToolExecution(t *testing.T) {
	before := testutil.ToFloat64(ToolExecutions.WithLabelValues("yfinance_get_info", "failed_result"))
	RecordToolExecution("yfinance_get_info", time.Millisecond, true, nil)
	assert.Equal(t, before+1, testutil.ToFloat64(ToolExecutions.WithLabelValues("yfinance_get_info", "failed_result")))

	before = testutil.ToFloat64(ToolExecutions.WithLabelValues("yfinance_get_info", "error"))
	RecordToolExecution("yfinance_get_info", time.Millisecond, true, errors.New("boom"))
	assert.Equal(t, before+1, testutil.ToFloat64(ToolExecutions.WithLabelValues("yfinance_get_info", "error")))
}

func TestRecordGraphRun(t *testing.T) {
	RecordGraphRun("FinancialAgent", time.Second, 0.25, nil)
	assert.Equal(t, 1.0, testutil.ToFloat64(GraphRuns.WithLabelValues("FinancialAgent", "success")))
	assert.InDelta(t, 0.25, testutil.ToFloat64(AgentCost.WithLabelValues("FinancialAgent")), 1e-9)
}

func TestInitIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Init()
		Init()
	})
}
