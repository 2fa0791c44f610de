package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// Audit actions recorded by the platform.
const (
	AuditRoleChanged        = "role.changed"
	AuditPermissionsChanged = "permissions.changed"
	AuditAdminBootstrapped  = "admin.bootstrapped"
)

// AuditLog represents a record stored in audit_logs.
type AuditLog struct {
	ActorID  string
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

const insertAuditSQL = `INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta, occurred_at) VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))`

// RecordAuditTx persists the log entry inside an open transaction.
func RecordAuditTx(ctx context.Context, tx pgx.Tx, log AuditLog) error {
	args, err := auditArgs(log)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, insertAuditSQL, args...)
	return err
}

func auditArgs(log AuditLog) ([]any, error) {
	if log.Action == "" || log.Entity == "" || log.EntityID == "" {
		return nil, errors.New("audit log requires action/entity/entity_id")
	}
	metaJSON, err := json.Marshal(log.Meta)
	if err != nil {
		return nil, err
	}
	var at *time.Time
	if !log.At.IsZero() {
		at = &log.At
	}
	return []any{log.ActorID, log.Action, log.Entity, log.EntityID, metaJSON, at}, nil
}
