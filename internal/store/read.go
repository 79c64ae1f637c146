package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Entry is one journal record.
type Entry struct {
	Seq          int64          `json:"seq"`
	Service      string         `json:"service"`
	Key          string         `json:"key"`
	InvocationID string         `json:"invocation_id"`
	Outputs      map[string]any `json:"outputs"`
}

// Lookup returns the outputs recorded for (service, key).
// The bool is false when no entry exists.
func (j *Journal) Lookup(ctx context.Context, service, key string) (map[string]any, bool, error) {
	var outputsJSON string
	err := j.db.QueryRowContext(ctx, `
		SELECT outputs FROM journal WHERE service = ? AND key = ?
	`, service, key).Scan(&outputsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lookup %s/%s: %w", service, key, err)
	}

	outputs, err := unmarshalOutputs(outputsJSON)
	if err != nil {
		return nil, false, fmt.Errorf("lookup %s/%s: %w", service, key, err)
	}
	return outputs, true, nil
}

// Entries returns the entries of a service in insertion order. An empty
// service name returns every entry.
//
// Returns an empty slice (not nil) if nothing was recorded.
func (j *Journal) Entries(ctx context.Context, service string) ([]Entry, error) {
	query := `SELECT seq, service, key, invocation_id, outputs FROM journal`
	var args []any
	if service != "" {
		query += ` WHERE service = ?`
		args = append(args, service)
	}
	query += ` ORDER BY seq ASC`

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}
	return entries, nil
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		e           Entry
		outputsJSON string
	)
	if err := rows.Scan(&e.Seq, &e.Service, &e.Key, &e.InvocationID, &outputsJSON); err != nil {
		return Entry{}, fmt.Errorf("scan entry: %w", err)
	}
	outputs, err := unmarshalOutputs(outputsJSON)
	if err != nil {
		return Entry{}, fmt.Errorf("entry %d: %w", e.Seq, err)
	}
	e.Outputs = outputs
	return e, nil
}
