package store

import (
	"context"
	"fmt"
)

// Record stores the outputs of a successful invocation under (service, key).
// Uses ON CONFLICT DO NOTHING: the first record for a key wins and later
// ones are silently ignored.
func (j *Journal) Record(ctx context.Context, service, key, invocationID string, outputs map[string]any) error {
	outputsJSON, err := marshalOutputs(outputs)
	if err != nil {
		return fmt.Errorf("record %s/%s: %w", service, key, err)
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO journal (service, key, invocation_id, outputs)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(service, key) DO NOTHING
	`, service, key, invocationID, outputsJSON)
	if err != nil {
		return fmt.Errorf("record %s/%s: %w", service, key, err)
	}
	return nil
}

// Forget removes the entry for (service, key). Removing a missing entry is
// not an error.
func (j *Journal) Forget(ctx context.Context, service, key string) error {
	if _, err := j.db.ExecContext(ctx, `DELETE FROM journal WHERE service = ? AND key = ?`, service, key); err != nil {
		return fmt.Errorf("forget %s/%s: %w", service, key, err)
	}
	return nil
}
