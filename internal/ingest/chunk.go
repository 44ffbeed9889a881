package ingest

import (
	"strings"
)

// Chunk is a piece of page text.
type Chunk struct {
	Page int
	Text string
}

// SplitPages splits text on form feeds into pages (numbered from 1) and packs
// each page's paragraphs into chunks of at most size characters. Chunks never
// span pages. A paragraph longer than size is cut on word boundaries.
func SplitPages(text string, size int) []Chunk {
	var out []Chunk
	for i, page := range strings.Split(text, "\f") {
		for _, c := range SplitParagraphs(page, size) {
			out = append(out, Chunk{Page: i + 1, Text: c})
		}
	}
	return out
}

// SplitParagraphs packs blank-line separated paragraphs into chunks.
func SplitParagraphs(text string, size int) []string {
	var (
		out []string
		cur strings.Builder
	)
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}

	for _, para := range paragraphs(text) {
		for _, piece := range splitLong(para, size) {
			if cur.Len() > 0 && cur.Len()+2+len(piece) > size {
				flush()
			}
			if cur.Len() > 0 {
				cur.WriteString("\n\n")
			}
			cur.WriteString(piece)
		}
	}
	flush()
	return out
}

func paragraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.Join(strings.Fields(p), " "); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func splitLong(p string, size int) []string {
	if len(p) <= size {
		return []string{p}
	}
	var (
		out []string
		cur strings.Builder
	)
	for _, w := range strings.Fields(p) {
		if cur.Len() > 0 && cur.Len()+1+len(w) > size {
			out = append(out, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(w)
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}
