package domain

import "time"

// Query is a read-only request against one relational source table.
// Expressions are assembled by connectors, never from user input.
type Query struct {
	Source  string
	Alias   string
	Columns []string
	Joins   []string
	Where   []Condition
	// OrderBy is sorted descending.
	OrderBy string
	Limit   int
}

// Condition is a parameterised WHERE fragment, e.g. {"b.created_at >= ?", since}.
type Condition struct {
	Expr string
	Args []any
}

// SourceFilter narrows a connector fetch.
type SourceFilter struct {
	ViewerID string
	Since    time.Time
}
