package catalog

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errx "github.com/finsight-router/server/internal/core/error"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	assert.Equal(t, []string{"ETERNAL.NS", "SWIGGY.NS", "TCS.NS"}, c.Symbols())

	e, ok := c.Lookup("tcs.ns")
	require.True(t, ok)
	assert.Equal(t, "TCS.NS", e.Symbol)
	assert.Equal(t, "TCS", e.Collection)
	assert.Equal(t, []string{"document 1", "document 2", "document 3"}, e.Labels())
}

func TestResolve(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	collection, sources, err := c.Resolve("TCS.NS", []string{"document 1", "document 3"})
	require.NoError(t, err)
	assert.Equal(t, "TCS", collection)
	assert.Equal(t, []string{
		"documents/TCS/integrated_annual_report_fy24.pdf",
		"documents/TCS/q4_fy25_earnings_call.pdf",
	}, sources)

	collection, sources, err = c.Resolve("SWIGGY.NS", nil)
	require.NoError(t, err)
	assert.Equal(t, "SWIGGY", collection)
	assert.Empty(t, sources)
}

func TestResolveRejectsUnknownInput(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	_, _, err = c.Resolve("AAPL", nil)
	require.Error(t, err)
	status, msg := errx.StatusOf(err)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, msg, "unsupported symbol")

	_, _, err = c.Resolve("TCS.NS", []string{"document 9"})
	require.Error(t, err)
	status, _ = errx.StatusOf(err)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestLoadValidates(t *testing.T) {
	_, err := Load([]byte("symbols: {}"))
	require.Error(t, err)

	_, err = Load([]byte("symbols:\n  ABC.NS:\n    documents: {}\n"))
	require.Error(t, err)

	c, err := Load([]byte("symbols:\n  abc.ns:\n    collection: ABC\n"))
	require.NoError(t, err)
	e, ok := c.Lookup("ABC.NS")
	require.True(t, ok)
	assert.Empty(t, e.Labels())
}

func TestLoadFile(t *testing.T) {
	c, err := LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, []string{"ETERNAL.NS", "SWIGGY.NS", "TCS.NS"}, c.Symbols())

	p := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`symbols:
  INFY.NS:
    collection: INFY
    documents:
      document 1: annual_report_fy24.pdf
`), 0o600))
	c, err = LoadFile(p)
	require.NoError(t, err)
	assert.Equal(t, []string{"INFY.NS"}, c.Symbols())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
