// Package records defines the record store the contact workflow persists
// through. Controllers only see the Store interface; the gorm-backed
// implementation lives alongside it and tests use recordstest.
package records

import (
	"context"
)

// Direction is a sort direction
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// OrderBy sorts fetched records by a field
type OrderBy struct {
	Field     string
	Direction Direction
}

// Operator compares a field against a value
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpContains    Operator = "contains"
	OpIn          Operator = "in"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
)

// Condition restricts fetched records
type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

// PagingInfo selects a window of the result set. A zero Limit means no limit.
type PagingInfo struct {
	Limit  int
	Offset int
}

// Query describes a fetch. Empty Fields selects every field.
type Query struct {
	Fields     []string
	OrderBy    []OrderBy
	Where      []Condition
	PagingInfo PagingInfo
}

// Change sets fields on one record
type Change struct {
	ID     uint
	Fields map[string]any
}

// CreateResult carries the stored records with their server assigned fields
type CreateResult[T any] struct {
	Success bool
	Results []T
}

// FetchResult is one page of records. Total is the size of the whole
// filtered set when the store can report it.
type FetchResult[T any] struct {
	Data  []T
	Total *int64
}

// UpdateResult carries the records as stored after the update
type UpdateResult[T any] struct {
	Success bool
	Results []T
}

// DeleteResult reports whether the records were removed
type DeleteResult struct {
	Success bool
}

// Store creates, queries, updates and deletes records of type T by table name.
// Callers treat a nil error with Success false as a failed operation.
type Store[T any] interface {
	Create(ctx context.Context, table string, records []T) (*CreateResult[T], error)
	Fetch(ctx context.Context, table string, q Query) (*FetchResult[T], error)
	Update(ctx context.Context, table string, changes []Change) (*UpdateResult[T], error)
	Delete(ctx context.Context, table string, ids []uint) (*DeleteResult, error)
}
