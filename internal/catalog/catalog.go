package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	errx "github.com/finsight-router/server/internal/core/error"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// DocumentsRoot prefixes every document source.
const DocumentsRoot = "documents"

// Entry describes one supported ticker.
type Entry struct {
	Symbol     string            `yaml:"-" json:"symbol"`
	Collection string            `yaml:"collection" json:"collection"`
	Documents  map[string]string `yaml:"documents" json:"-"`
}

// Labels returns the document labels in sorted order.
func (e Entry) Labels() []string {
	out := make([]string, 0, len(e.Documents))
	for l := range e.Documents {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Source returns the stored path of a document file in this collection.
func (e Entry) Source(file string) string {
	return path.Join(DocumentsRoot, e.Collection, file)
}

// Catalog maps tickers to their document collections. Read-only after load.
type Catalog struct {
	entries map[string]Entry
}

type file struct {
	Symbols map[string]Entry `yaml:"symbols"`
}

// Load parses a catalog document.
func Load(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(f.Symbols) == 0 {
		return nil, fmt.Errorf("catalog has no symbols")
	}

	c := &Catalog{entries: make(map[string]Entry, len(f.Symbols))}
	for sym, e := range f.Symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if e.Collection == "" {
			return nil, fmt.Errorf("catalog symbol %s has no collection", sym)
		}
		e.Symbol = sym
		if e.Documents == nil {
			e.Documents = map[string]string{}
		}
		c.entries[sym] = e
	}
	return c, nil
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Load(defaultCatalog)
}

// LoadFile reads a catalog from disk, or the default one when p is empty.
func LoadFile(p string) (*Catalog, error) {
	if p == "" {
		return Default()
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Load(data)
}

// Symbols lists the supported tickers in sorted order.
func (c *Catalog) Symbols() []string {
	out := make([]string, 0, len(c.entries))
	for s := range c.entries {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Lookup finds a ticker, case-insensitively.
func (c *Catalog) Lookup(symbol string) (Entry, bool) {
	e, ok := c.entries[strings.ToUpper(strings.TrimSpace(symbol))]
	return e, ok
}

// Resolve maps document labels of a ticker to its collection and document
// sources. Unknown tickers or labels are client errors.
func (c *Catalog) Resolve(symbol string, labels []string) (collection string, sources []string, err error) {
	e, ok := c.Lookup(symbol)
	if !ok {
		return "", nil, errx.BadRequest("unsupported symbol %q; supported: %s", symbol, strings.Join(c.Symbols(), ", "))
	}

	sources = make([]string, 0, len(labels))
	for _, l := range labels {
		f, ok := e.Documents[l]
		if !ok {
			return "", nil, errx.BadRequest("unknown document %q for %s", l, e.Symbol)
		}
		sources = append(sources, e.Source(f))
	}
	return e.Collection, sources, nil
}
