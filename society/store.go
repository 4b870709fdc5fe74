/*
store.go - Store handle and whole-collection IO

PURPOSE:
  Store is the explicit handle every operation runs against. It owns the KV
  medium, the clock, the id generator and the logger; there is no package
  level state.

READ-MODIFY-WRITE:
  Each operation reads the full JSON array of a collection, changes it in
  memory and writes the full array back. When one operation touches several
  collections (a member create also rewrites the house view) the writes go
  through writeBatch, which is atomic on BatchKV adapters.

CONCURRENCY:
  The medium has no locking, so Store serializes every operation behind one
  mutex. Reads are included because list operations write back derived
  state. Two processes sharing one medium still race (last writer wins).

SEE ALSO:
  - kv.go: medium contract
  - reconcile.go: derived state
  - activity.go: audit trail appended after each mutation
*/
package society

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	DefaultDueDay       = 5
	DefaultLateAfterDay = 15
	DefaultCurrency     = "INR"
	DefaultActor        = "Admin"
)

// Store is the entity store over a KV medium.
type Store struct {
	kv     KV
	prefix string

	now    func() time.Time
	newID  func() string
	logger *slog.Logger

	actor        string
	currency     string
	dueDay       int
	lateAfterDay int

	mu sync.Mutex
}

type Option func(*Store)

// WithClock replaces time.Now. Tests use it to pin "today".
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

func WithIDGenerator(fn func() string) Option { return func(s *Store) { s.newID = fn } }

func WithLogger(l *slog.Logger) Option { return func(s *Store) { s.logger = l } }

// WithKeyPrefix namespaces every KV key, e.g. "offline.".
func WithKeyPrefix(prefix string) Option { return func(s *Store) { s.prefix = prefix } }

// WithCurrency sets the ISO 4217 code used to render amounts in activity summaries.
func WithCurrency(code string) Option { return func(s *Store) { s.currency = code } }

// WithDueDay sets the day of month new payments fall due.
func WithDueDay(day int) Option { return func(s *Store) { s.dueDay = day } }

// WithLateAfterDay sets the last on-time day of month. Payments completed
// after it are flagged late.
func WithLateAfterDay(day int) Option { return func(s *Store) { s.lateAfterDay = day } }

// WithActor sets the user recorded on activity entries.
func WithActor(name string) Option { return func(s *Store) { s.actor = name } }

func NewStore(kv KV, opts ...Option) *Store {
	s := &Store{
		kv:           kv,
		now:          time.Now,
		newID:        uuid.NewString,
		logger:       slog.Default(),
		actor:        DefaultActor,
		currency:     DefaultCurrency,
		dueDay:       DefaultDueDay,
		lateAfterDay: DefaultLateAfterDay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) today() Date { return DateOf(s.now()) }

func (s *Store) key(name string) string { return s.prefix + name }

// =============================================================================
// COLLECTION IO
// =============================================================================

func readCollection[T any](ctx context.Context, s *Store, name string) ([]T, error) {
	raw, err := s.kv.Get(ctx, s.key(name))
	if errors.Is(err, ErrKeyNotFound) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return []T{}, nil
	}
	var list []T
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptCollection, name, err)
	}
	if list == nil {
		list = []T{}
	}
	return list, nil
}

func encodeCollection[T any](list []T) ([]byte, error) {
	if list == nil {
		list = []T{}
	}
	return json.Marshal(list)
}

func writeCollection[T any](ctx context.Context, s *Store, name string, list []T) error {
	raw, err := encodeCollection(list)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := s.kv.Set(ctx, s.key(name), raw); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// writeBatch persists several encoded collections. BatchKV adapters apply it
// atomically; others get the keys one by one in sorted order.
func (s *Store) writeBatch(ctx context.Context, values map[string][]byte) error {
	if len(values) == 0 {
		return nil
	}
	prefixed := make(map[string][]byte, len(values))
	names := make([]string, 0, len(values))
	for name, raw := range values {
		prefixed[s.key(name)] = raw
		names = append(names, name)
	}
	if b, ok := s.kv.(BatchKV); ok {
		if err := b.SetBatch(ctx, prefixed); err != nil {
			return fmt.Errorf("write %s: %w", strings.Join(names, ","), err)
		}
		return nil
	}
	sort.Strings(names)
	for _, name := range names {
		if err := s.kv.Set(ctx, s.key(name), values[name]); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}

// batch accumulates encoded collections for writeBatch.
type batch struct {
	values map[string][]byte
	err    error
}

func newBatch() *batch { return &batch{values: make(map[string][]byte)} }

func addTo[T any](b *batch, name string, list []T) {
	if b.err != nil {
		return
	}
	raw, err := encodeCollection(list)
	if err != nil {
		b.err = fmt.Errorf("encode %s: %w", name, err)
		return
	}
	b.values[name] = raw
}

func (s *Store) commit(ctx context.Context, b *batch) error {
	if b.err != nil {
		return b.err
	}
	return s.writeBatch(ctx, b.values)
}

// =============================================================================
// NORMALIZATION
// =============================================================================

// foldKey is the case-insensitive form of a natural key.
func foldKey(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// houseRef normalizes a house number: trimmed, upper case.
func houseRef(s string) string {
	return cases.Upper(language.Und).String(strings.TrimSpace(s))
}

func nextIntID[T any](list []T, id func(T) int) int {
	highest := 0
	for _, item := range list {
		if v := id(item); v > highest {
			highest = v
		}
	}
	return highest + 1
}
