package model

// Document is a single similarity-search match from a collection.
type Document struct {
	ID         string         `json:"id" db:"id"`
	Collection string         `json:"collection" db:"collection"`
	Source     string         `json:"source" db:"source"`
	Content    string         `json:"content" db:"content"`
	Metadata   map[string]any `json:"metadata" db:"-"`
	Similarity float64        `json:"similarity" db:"similarity"`
}
