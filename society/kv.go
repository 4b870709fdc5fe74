/*
kv.go - Durable key->bytes medium

PURPOSE:
  The engine treats its durable medium as an opaque byte store. It offers no
  transactions, no secondary indexes and no locking; every collection lives
  under one key as a JSON array and is rewritten whole.

KEY INTERFACES:
  KV:      Get / Set. The only thing an adapter must provide.
  BatchKV: Optional multi-key atomic write. Adapters backed by a database
           implement it so imports and resets cannot be left half-applied.

IMPLEMENTATIONS:
  - society/store/memory.go: In-memory, for tests and dev
  - store/sqlite/sqlite.go:  SQLite kv table (default)
  - store/postgres:          Postgres kv table
  - store/s3:                One object per key

SEE ALSO:
  - store.go: collection IO on top of KV
*/
package society

import "context"

// KV is the durable medium. Get returns ErrKeyNotFound for an unset key.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// BatchKV writes several keys atomically: all of them or none.
type BatchKV interface {
	KV
	SetBatch(ctx context.Context, values map[string][]byte) error
}

// Logical keys, one per collection.
const (
	KeyHouses       = "houses"
	KeyMembers      = "members"
	KeyVehicles     = "vehicles"
	KeyPayments     = "payments"
	KeyExpenditures = "expenditures"
	KeyActivity     = "activity-log"
	KeyReports      = "reports-log"
)

// EntityKind names a collection in errors and activity entries.
type EntityKind string

const (
	KindHouse       EntityKind = "house"
	KindMember      EntityKind = "member"
	KindVehicle     EntityKind = "vehicle"
	KindPayment     EntityKind = "payment"
	KindExpenditure EntityKind = "expenditure"
	KindSystem      EntityKind = "system"
)
