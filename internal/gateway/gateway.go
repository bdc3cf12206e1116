// Package gateway provides an opaque document-store facade over the
// backing database. Callers address named collections and never see
// SQL, connection handles, or vector index internals.
package gateway

import (
	"context"
	"errors"
)

const (
	CollectionUsers        = "users"
	CollectionSkills       = "skills"
	CollectionSkillVectors = "skill_vectors"
	CollectionPlans        = "orchestration_plans"
	CollectionTaskVectors  = "task_vectors"
)

var ErrNotFound = errors.New("record not found")

// Record is a stored document. Values round-trip through JSON, so
// nested structures decode as map[string]any and numbers as float64.
type Record map[string]any

// Filters selects records by field equality. A []string value matches
// records whose field equals any of the listed values.
type Filters map[string]any

type Gateway interface {
	// Get returns the record stored under key, or ErrNotFound.
	Get(ctx context.Context, collection, key string) (Record, error)

	// Query returns records matching every filter, in insertion
	// order, honoring offset and limit. A limit of 0 means no limit.
	Query(ctx context.Context, collection string, filters Filters, offset, limit int) ([]Record, error)

	// Count returns the number of records matching every filter.
	Count(ctx context.Context, collection string, filters Filters) (int, error)

	// Insert stores a new record under key. Inserting an existing key
	// overwrites the record.
	Insert(ctx context.Context, collection, key string, record Record) error

	// Update merges fields into the record stored under key.
	// Returns ErrNotFound when the key does not exist.
	Update(ctx context.Context, collection, key string, fields Record) error

	// Delete removes the record stored under key. Returns ErrNotFound
	// when the key does not exist.
	Delete(ctx context.Context, collection, key string) error

	// VectorSearch ranks records of a vector collection by cosine
	// similarity of their vector field against the query vector and
	// returns the topK best matches with their scores.
	VectorSearch(ctx context.Context, collection string, vector []float64, topK int) ([]Match, error)
}

// Match pairs a record with its similarity score in [0, 1].
type Match struct {
	Record Record
	Score  float64
}
