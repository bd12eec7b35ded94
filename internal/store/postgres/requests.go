package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/alfredjeanlab/pipeline/internal/model"
)

// RecordMoveRequest ensures a ledger row exists for a move request in
// pending state. Uses INSERT...ON CONFLICT DO NOTHING so a retried request
// never resets existing state.
func (s *PostgresStore) RecordMoveRequest(ctx context.Context, clientID, requestID string, from, to model.Status, actor string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO move_requests (client_id, request_id, from_status, to_status, actor)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (client_id, request_id) DO NOTHING`,
		clientID, requestID, string(from), string(to), nullString(actor),
	)
	return err
}

// MarkMoveApplied sets a move request's status to 'applied' and records the time.
func (s *PostgresStore) MarkMoveApplied(ctx context.Context, clientID, requestID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE move_requests
		SET status = 'applied', applied_at = NOW()
		WHERE client_id = $1 AND request_id = $2`,
		clientID, requestID,
	)
	return err
}

// WasMoveApplied returns true if the ledger row exists and has status
// 'applied'. Returns false (not an error) when the row is not found.
func (s *PostgresStore) WasMoveApplied(ctx context.Context, clientID, requestID string) (bool, error) {
	var requestStatus string
	err := s.db.QueryRowContext(ctx, `
		SELECT status FROM move_requests
		WHERE client_id = $1 AND request_id = $2`,
		clientID, requestID,
	).Scan(&requestStatus)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return requestStatus == "applied", nil
}
