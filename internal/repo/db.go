// Package repo implements every persistence-boundary interface the core
// packages define (quota.Store, template.Repo, audit.Repo, and so on)
// over Postgres via database/sql + lib/pq, following the teacher's raw-SQL
// style in pkg/database rather than an ORM — nothing in the pack reaches
// for one.
package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"mediahub/internal/errs"
	"mediahub/pkg/database"
	"mediahub/pkg/models"
)

// DB wraps the shared connection pool every repo in this package embeds.
type DB struct {
	Conn database.PostgresConn
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrNoRows {
		return errs.New(errs.NotFound, "not found")
	}
	return errs.Wrap(errs.Internal, "database operation failed", err)
}

func marshalJSONB(j models.JSONB) ([]byte, error) {
	if j == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(j)
}

// marshalAny/unmarshalInto serialize arbitrary Go structs (as opposed to
// models.JSONB maps) into the jsonb columns that store them verbatim,
// such as an Automation Job's ScheduleDescriptor.
func marshalAny(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "marshal jsonb column", err)
	}
	return raw, nil
}

func unmarshalInto(raw []byte, v interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errs.Wrap(errs.Internal, "unmarshal jsonb column", err)
	}
	return nil
}

func unmarshalJSONB(raw []byte) (models.JSONB, error) {
	if len(raw) == 0 {
		return models.JSONB{}, nil
	}
	var out models.JSONB
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, errs.Wrap(errs.Internal, "unmarshal jsonb column", err)
	}
	return out, nil
}

// withTx runs fn inside a transaction, committing on success and rolling
// back on error or panic. Used by quota.Store, whose race-safety
// invariant depends on the row lock a transaction holds for its duration.
func withTx(ctx context.Context, conn database.PostgresConn, fn func(tx *sql.Tx) error) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return mapErr(err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return mapErr(tx.Commit())
}
