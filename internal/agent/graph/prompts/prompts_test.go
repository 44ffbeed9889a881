package prompts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight-router/server/internal/agent/graph/tools"
)

func TestRenderFinancialSystem(t *testing.T) {
	out, err := RenderFinancialSystem(context.Background(), "TSLA")
	require.NoError(t, err)
	assert.Contains(t, out, "- Ticker Symbol: TSLA")
	for _, name := range tools.FinancialToolNames {
		assert.Contains(t, out, name)
	}
	assert.NotContains(t, out, "{{")
}

func TestRenderDocumentSystem(t *testing.T) {
	out, err := RenderDocumentSystem(context.Background(), "TCS.NS", "TCS",
		[]string{"documents/TCS/annual_report.pdf", "documents/TCS/concall_q1.pdf"})
	require.NoError(t, err)
	assert.Contains(t, out, "- Collection: TCS")
	assert.Contains(t, out, "  - documents/TCS/annual_report.pdf\n  - documents/TCS/concall_q1.pdf")
	assert.Contains(t, out, "`retrieve_from_documents`")
}
