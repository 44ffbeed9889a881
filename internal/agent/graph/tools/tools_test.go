package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight-router/server/internal/agent/model"
	"github.com/finsight-router/server/internal/marketdata"
	"github.com/finsight-router/server/internal/retrieval"
)

type fakeProvider struct {
	calls []string
	err   error
}

func (f *fakeProvider) record(method, symbol string) error {
	f.calls = append(f.calls, method+":"+symbol)
	return f.err
}

func (f *fakeProvider) statements(method, symbol, kind string) (*marketdata.Statements, error) {
	if err := f.record(method, symbol); err != nil {
		return nil, err
	}
	return &marketdata.Statements{
		Symbol: symbol,
		Kind:   kind,
		Periods: []marketdata.Statement{{
			EndDate: time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
			Items:   map[string]decimal.Decimal{"totalRevenue": decimal.NewFromInt(42)},
		}},
	}, nil
}

func (f *fakeProvider) Actions(_ context.Context, symbol string) (*marketdata.Actions, error) {
	if err := f.record("actions", symbol); err != nil {
		return nil, err
	}
	return &marketdata.Actions{Symbol: symbol}, nil
}

func (f *fakeProvider) BalanceSheet(_ context.Context, symbol string) (*marketdata.Statements, error) {
	return f.statements("balance", symbol, "balance sheet")
}

func (f *fakeProvider) Financials(_ context.Context, symbol string) (*marketdata.Statements, error) {
	return f.statements("financials", symbol, "income statement")
}

func (f *fakeProvider) CashFlow(_ context.Context, symbol string) (*marketdata.Statements, error) {
	return f.statements("cashflow", symbol, "cash flow statement")
}

func (f *fakeProvider) Earnings(_ context.Context, symbol string) (*marketdata.Earnings, error) {
	if err := f.record("earnings", symbol); err != nil {
		return nil, err
	}
	return &marketdata.Earnings{Symbol: symbol}, nil
}

func (f *fakeProvider) Info(_ context.Context, symbol string) (*marketdata.Info, error) {
	if err := f.record("info", symbol); err != nil {
		return nil, err
	}
	return &marketdata.Info{Symbol: symbol, Fields: map[string]string{"sector": "Technology"}}, nil
}

type fakeEmbedder struct{ err error }

func (f fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{float32(len(text)), 1}, nil
}

func (f fakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.EmbedQuery(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

type searchCall struct {
	collection string
	k          int
	sources    []string
}

type fakeStore struct {
	docs  map[string][]model.Document
	err   error
	calls []searchCall
}

func (f *fakeStore) Search(_ context.Context, collection string, _ []float32, k int, sources []string) ([]model.Document, error) {
	f.calls = append(f.calls, searchCall{collection: collection, k: k, sources: sources})
	if f.err != nil {
		return nil, f.err
	}
	return f.docs[collection], nil
}

func (f *fakeStore) Upsert(context.Context, []retrieval.Chunk) error { return nil }

func financialRegistry(t *testing.T, p marketdata.Provider) *Registry {
	t.Helper()
	ts, err := NewFinancialTools(p)
	require.NoError(t, err)
	reg, err := NewRegistry(context.Background(), ts...)
	require.NoError(t, err)
	return reg
}

func invoke(t *testing.T, reg *Registry, name, args string) string {
	t.Helper()
	ts, err := reg.Tools(name)
	require.NoError(t, err)
	out, err := ts[0].(tool.InvokableTool).InvokableRun(context.Background(), args)
	require.NoError(t, err, "tools never return errors to the graph")
	return out
}

func TestFinancialToolsRegistered(t *testing.T) {
	reg := financialRegistry(t, &fakeProvider{})
	assert.Equal(t, FinancialToolNames, reg.Names())

	infos, err := reg.Infos(FinancialToolNames...)
	require.NoError(t, err)
	for _, info := range infos {
		assert.NotEmpty(t, info.Desc)
		assert.NotNil(t, info.ParamsOneOf)
	}
}

func TestFinancialToolCallsProvider(t *testing.T) {
	p := &fakeProvider{}
	reg := financialRegistry(t, p)

	out := invoke(t, reg, ToolFinancials, `{"symbol":"TSLA"}`)
	assert.Contains(t, out, "Income statement for TSLA")
	out = invoke(t, reg, ToolInfo, `{"symbol":"TCS.NS"}`)
	assert.Contains(t, out, "sector: Technology")
	assert.Equal(t, []string{"financials:TSLA", "info:TCS.NS"}, p.calls)
}

func TestFinancialToolFailuresAreText(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"no data", fmt.Errorf("wrapped: %w", marketdata.ErrNoData), "No balance sheet data could be retrieved for ticker NOPE"},
		{"upstream", errors.New("status 429"), "Error fetching balance sheet for NOPE: status 429"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reg := financialRegistry(t, &fakeProvider{err: tc.err})
			out := invoke(t, reg, ToolBalanceSheet, `{"symbol":"NOPE"}`)
			assert.Contains(t, out, tc.want)
		})
	}
}

func TestInvalidArgumentsAreText(t *testing.T) {
	p := &fakeProvider{}
	reg := financialRegistry(t, p)

	out := invoke(t, reg, ToolEarnings, `{}`)
	assert.True(t, strings.HasPrefix(out, "Invalid arguments for "+ToolEarnings), out)

	out = invoke(t, reg, ToolEarnings, `{"symbol": 12}`)
	assert.True(t, strings.HasPrefix(out, "Invalid arguments for "+ToolEarnings), out)

	out = invoke(t, reg, ToolEarnings, `not json`)
	assert.Contains(t, out, "arguments are not valid JSON")
	assert.Empty(t, p.calls)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	ts, err := NewFinancialTools(&fakeProvider{})
	require.NoError(t, err)
	_, err = NewRegistry(context.Background(), append(ts, ts[0])...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate tool name")

	reg, err := NewRegistry(context.Background(), ts...)
	require.NoError(t, err)
	_, err = reg.Tools("delete_everything")
	require.Error(t, err)
}

func TestRetrieveDocuments(t *testing.T) {
	store := &fakeStore{docs: map[string][]model.Document{
		"TCS": {
			{Source: "documents/TCS/annual.pdf", Content: "Revenue grew 6.8%.", Metadata: map[string]any{"page": 12, "collection_name": "TCS"}},
			{Source: "documents/TCS/annual.pdf", Content: "No metadata here."},
		},
	}}
	rt, err := NewRetrievalTool(fakeEmbedder{}, store, 0)
	require.NoError(t, err)
	reg, err := NewRegistry(context.Background(), rt)
	require.NoError(t, err)

	out := invoke(t, reg, ToolRetrieveDocuments,
		`{"query":"revenue growth","collection":"TCS","document_sources":["documents/TCS/annual.pdf"]}`)
	assert.Equal(t,
		"[source: documents/TCS/annual.pdf, page: 12]\n\nRevenue grew 6.8%.\n\n"+
			"[source: documents/TCS/annual.pdf]\n\nNo metadata here.",
		out)
	require.Len(t, store.calls, 1)
	assert.Equal(t, DefaultTopK, store.calls[0].k)
	assert.Equal(t, []string{"documents/TCS/annual.pdf"}, store.calls[0].sources)
}

func TestRetrieveDocumentsEmptyCollection(t *testing.T) {
	rt, err := NewRetrievalTool(fakeEmbedder{}, &fakeStore{}, 10)
	require.NoError(t, err)
	out, err := rt.InvokableRun(context.Background(),
		`{"query":"anything","collection":"EMPTY","document_sources":["documents/EMPTY/a.pdf"]}`)
	require.NoError(t, err)
	assert.Equal(t, NoDocumentsFound, out)
}

func TestRetrieveDocumentsFailures(t *testing.T) {
	args := `{"query":"q","collection":"TCS","document_sources":[]}`

	rt, err := NewRetrievalTool(fakeEmbedder{err: errors.New("quota exceeded")}, &fakeStore{}, 10)
	require.NoError(t, err)
	out, err := rt.InvokableRun(context.Background(), args)
	require.NoError(t, err)
	assert.Equal(t, "Error retrieving documents: quota exceeded", out)

	rt, err = NewRetrievalTool(fakeEmbedder{}, &fakeStore{err: errors.New("connection refused")}, 10)
	require.NoError(t, err)
	out, err = rt.InvokableRun(context.Background(), args)
	require.NoError(t, err)
	assert.Equal(t, "Error retrieving documents: connection refused", out)
}

func TestSanitizeArguments(t *testing.T) {
	assert.JSONEq(t, `{"symbol":"TCS.NS"}`, SanitizeArguments(ToolInfo, `{"symbol":"  tcs.ns "}`))
	assert.JSONEq(t,
		`{"query":"margins","document_sources":["a.pdf","b.pdf"]}`,
		SanitizeArguments(ToolRetrieveDocuments, `{"query":" margins ","document_sources":[" a.pdf","b.pdf "]}`))
	assert.Equal(t, "not json", SanitizeArguments(ToolInfo, "not json"))
}
