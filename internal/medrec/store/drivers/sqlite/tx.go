package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/aussiebroadwan/medrec/internal/medrec/store"
)

// ErrNestedTx is returned when a transaction is started from inside another.
var ErrNestedTx = errors.New("sqlite: nested transactions are not supported")

// txStore runs every repo against one *sql.Tx. Registration uses it so a
// clinic admin's user row and clinic row land together or not at all.
type txStore struct {
	tx *sql.Tx
}

func newTx(tx *sql.Tx) *txStore { return &txStore{tx: tx} }

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

// Close leaves the parent database open.
func (t *txStore) Close() error { return nil }

func (t *txStore) Ping(context.Context) error { return nil }

func (t *txStore) ApplyMigrations() error { return nil }

func (t *txStore) Tx(context.Context) (store.Tx, error) { return nil, ErrNestedTx }

func (t *txStore) WithTx(context.Context, func(store.Tx) error) error { return ErrNestedTx }

func (t *txStore) Users() store.Users         { return &usersRepo{db: t.tx} }
func (t *txStore) Clinics() store.Clinics     { return &clinicsRepo{db: t.tx} }
func (t *txStore) Patients() store.Patients   { return &patientsRepo{db: t.tx} }
func (t *txStore) AuditLogs() store.AuditLogs { return &auditLogsRepo{db: t.tx} }
