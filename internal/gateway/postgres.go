package gateway

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Postgres stores each collection as its own table of JSONB documents.
// The seq column preserves insertion order for queries.
type Postgres struct {
	db DB
}

func NewPostgres(db DB) *Postgres {
	if db == nil {
		return nil
	}
	return &Postgres{db: db}
}

var knownCollections = []string{
	CollectionUsers,
	CollectionSkills,
	CollectionSkillVectors,
	CollectionPlans,
	CollectionTaskVectors,
}

// EnsureCollections creates the backing tables if they do not exist.
func EnsureCollections(ctx context.Context, db DB) error {
	for _, collection := range knownCollections {
		stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			key TEXT PRIMARY KEY,
			seq BIGSERIAL,
			record JSONB NOT NULL
		)`, collection)
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure collection %s: %w", collection, err)
		}
	}
	return nil
}

func validCollection(name string) error {
	for _, c := range knownCollections {
		if c == name {
			return nil
		}
	}
	return fmt.Errorf("unknown collection: %q", name)
}

func (p *Postgres) Get(ctx context.Context, collection, key string) (Record, error) {
	if err := validCollection(collection); err != nil {
		return nil, err
	}
	var raw []byte
	query := fmt.Sprintf(`SELECT record FROM %s WHERE key = $1`, collection)
	if err := p.db.QueryRowContext(ctx, query, key).Scan(&raw); err != nil {
		return nil, handleNotFound(err)
	}
	return decodeRecord(raw)
}

func (p *Postgres) Query(ctx context.Context, collection string, filters Filters, offset, limit int) ([]Record, error) {
	if err := validCollection(collection); err != nil {
		return nil, err
	}
	where, args := buildWhere(filters)
	query := fmt.Sprintf(`SELECT record FROM %s%s ORDER BY seq ASC`, collection, where)
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if offset > 0 {
		args = append(args, offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		rec, err := decodeRecord(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (p *Postgres) Count(ctx context.Context, collection string, filters Filters) (int, error) {
	if err := validCollection(collection); err != nil {
		return 0, err
	}
	where, args := buildWhere(filters)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s%s`, collection, where)
	var count int
	if err := p.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	return count, nil
}

func (p *Postgres) Insert(ctx context.Context, collection, key string, record Record) error {
	if err := validCollection(collection); err != nil {
		return err
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	query := fmt.Sprintf(`INSERT INTO %s (key, record) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET record = EXCLUDED.record`, collection)
	if _, err := p.db.ExecContext(ctx, query, key, raw); err != nil {
		return fmt.Errorf("insert into %s: %w", collection, err)
	}
	return nil
}

func (p *Postgres) Update(ctx context.Context, collection, key string, fields Record) error {
	if err := validCollection(collection); err != nil {
		return err
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}
	query := fmt.Sprintf(`UPDATE %s SET record = record || $2::jsonb WHERE key = $1`, collection)
	res, err := p.db.ExecContext(ctx, query, key, raw)
	if err != nil {
		return fmt.Errorf("update %s: %w", collection, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, collection, key string) error {
	if err := validCollection(collection); err != nil {
		return err
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, collection)
	res, err := p.db.ExecContext(ctx, query, key)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", collection, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) VectorSearch(ctx context.Context, collection string, vector []float64, topK int) ([]Match, error) {
	records, err := p.Query(ctx, collection, nil, 0, 0)
	if err != nil {
		return nil, err
	}
	return rankByCosine(records, vector, topK), nil
}

func buildWhere(filters Filters) (string, []any) {
	if len(filters) == 0 {
		return "", nil
	}
	fields := make([]string, 0, len(filters))
	for field := range filters {
		fields = append(fields, field)
	}
	// Stable parameter order keeps queries reproducible.
	sort.Strings(fields)

	clauses := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields))
	for _, field := range fields {
		switch typed := filters[field].(type) {
		case []string:
			args = append(args, typed)
			clauses = append(clauses, fmt.Sprintf("record->>'%s' = ANY($%d)", field, len(args)))
		case string:
			args = append(args, typed)
			clauses = append(clauses, fmt.Sprintf("record->>'%s' = $%d", field, len(args)))
		default:
			args = append(args, fmt.Sprint(typed))
			clauses = append(clauses, fmt.Sprintf("record->>'%s' = $%d", field, len(args)))
		}
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func decodeRecord(raw []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}

func handleNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
