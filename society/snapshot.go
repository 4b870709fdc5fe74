/*
snapshot.go - Export, import and reset of the whole entity state

PURPOSE:
  A Snapshot is the versioned backup document: the five entity collections
  dumped verbatim plus the schema version and export time. The activity and
  reports logs are not part of it.

IMPORT MODES:
  replace: every collection is overwritten with the document's records.
  merge:   incoming records are appended only when their natural key is not
           already present (houseNo and vehicle number ignoring case, member
           id, payment id, expenditure id). Existing records are never
           changed or removed.

ALL-OR-NOTHING:
  The document is fully validated before any collection is read for writing.
  The five collections are then written with one writeBatch, which is atomic
  on BatchKV adapters. Derived house and payment state is not reconciled
  here; the next list does it.
*/
package society

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"
)

// SnapshotVersion is the newest document version this build can import.
const SnapshotVersion = 1

type Snapshot struct {
	Version      int                  `json:"version"`
	ExportedAt   time.Time            `json:"exportedAt"`
	Houses       []House              `json:"houses"`
	Members      []Member             `json:"members"`
	Vehicles     []Vehicle            `json:"vehicles"`
	Payments     []MaintenancePayment `json:"payments"`
	Expenditures []Expenditure        `json:"expenditures"`
}

type ImportMode string

const (
	ImportReplace ImportMode = "replace"
	ImportMerge   ImportMode = "merge"
)

func (m ImportMode) Valid() bool { return m == ImportReplace || m == ImportMerge }

// ImportOptions configures ImportSnapshot. The zero value replaces.
type ImportOptions struct {
	Mode ImportMode `json:"mode,omitempty"`
}

// ImportCounts are the record counts per collection after an import.
type ImportCounts struct {
	Houses       int `json:"houses"`
	Members      int `json:"members"`
	Vehicles     int `json:"vehicles"`
	Payments     int `json:"payments"`
	Expenditures int `json:"expenditures"`
}

// snapshotCollections are the document keys that must hold arrays.
var snapshotCollections = []string{KeyHouses, KeyMembers, KeyVehicles, KeyPayments, KeyExpenditures}

// =============================================================================
// EXPORT
// =============================================================================

// ExportSnapshot dumps the stored collections as they are, without
// reconciling derived fields first.
func (s *Store) ExportSnapshot(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.readAll(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	snap.Version = SnapshotVersion
	snap.ExportedAt = s.now()
	return snap, nil
}

// =============================================================================
// DECODE / VALIDATE
// =============================================================================

// DecodeSnapshot reads a snapshot document. Structural problems (not an
// object, missing or non-numeric version, a collection that is not an array,
// records of the wrong shape) are reported as ValidationError. Missing or
// null collections decode as empty.
func DecodeSnapshot(r io.Reader) (Snapshot, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil || doc == nil {
		return Snapshot{}, invalid("snapshot", "document is not a JSON object")
	}

	version, ok := doc["version"]
	if !ok || isNull(version) {
		return Snapshot{}, invalid("version", "required")
	}
	if bytes.TrimSpace(version)[0] == '"' {
		return Snapshot{}, invalid("version", "must be an integer")
	}
	var v json.Number
	dec := json.NewDecoder(bytes.NewReader(version))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return Snapshot{}, invalid("version", "must be an integer")
	}
	if _, err := v.Int64(); err != nil {
		return Snapshot{}, invalid("version", "must be an integer, got %s", v)
	}

	for _, name := range snapshotCollections {
		val, ok := doc[name]
		if !ok || isNull(val) {
			continue
		}
		if t := bytes.TrimSpace(val); len(t) == 0 || t[0] != '[' {
			return Snapshot{}, invalid(name, "must be an array")
		}
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}, invalid("snapshot", "malformed records: %v", err)
	}
	snap.normalize()
	if err := snap.Validate(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

// normalize turns missing collections into empty ones and folds house
// references to the form the store writes, so imported residents match
// houses created later. Slices are copied before they are touched.
func (snap *Snapshot) normalize() {
	snap.Houses = slices.Clone(snap.Houses)
	snap.Members = slices.Clone(snap.Members)
	snap.Vehicles = slices.Clone(snap.Vehicles)
	if snap.Houses == nil {
		snap.Houses = []House{}
	}
	if snap.Members == nil {
		snap.Members = []Member{}
	}
	if snap.Vehicles == nil {
		snap.Vehicles = []Vehicle{}
	}
	if snap.Payments == nil {
		snap.Payments = []MaintenancePayment{}
	}
	if snap.Expenditures == nil {
		snap.Expenditures = []Expenditure{}
	}
	for i := range snap.Houses {
		snap.Houses[i].HouseNo = houseRef(snap.Houses[i].HouseNo)
		snap.Houses[i].Block = houseRef(snap.Houses[i].Block)
	}
	for i := range snap.Members {
		snap.Members[i].House = houseRef(snap.Members[i].House)
	}
	for i := range snap.Vehicles {
		snap.Vehicles[i].House = houseRef(snap.Vehicles[i].House)
	}
}

// Validate checks that the document can be imported by this build: a known
// version, a natural key on every record, no natural key repeated within a
// collection, and payment amounts the store itself would accept.
func (snap Snapshot) Validate() error {
	if snap.Version < 1 {
		return invalid("version", "must be at least 1, got %d", snap.Version)
	}
	if snap.Version > SnapshotVersion {
		return invalid("version", "snapshot version %d is newer than supported version %d", snap.Version, SnapshotVersion)
	}
	for i, h := range snap.Houses {
		if strings.TrimSpace(h.HouseNo) == "" {
			return invalid(fmt.Sprintf("houses[%d].houseNo", i), "required")
		}
	}
	if err := unique("houses", "houseNo", snap.Houses, func(h House) string { return foldKey(h.HouseNo) }); err != nil {
		return err
	}
	for i, m := range snap.Members {
		if m.ID == "" {
			return invalid(fmt.Sprintf("members[%d].id", i), "required")
		}
	}
	if err := unique("members", "id", snap.Members, func(m Member) string { return m.ID }); err != nil {
		return err
	}
	for i, v := range snap.Vehicles {
		if strings.TrimSpace(v.Number) == "" {
			return invalid(fmt.Sprintf("vehicles[%d].number", i), "required")
		}
	}
	if err := unique("vehicles", "number", snap.Vehicles, func(v Vehicle) string { return foldKey(v.Number) }); err != nil {
		return err
	}
	for i, p := range snap.Payments {
		if p.AmountPaid.IsNegative() {
			return invalid(fmt.Sprintf("payments[%d].amountPaid", i), "must not be negative")
		}
		if p.AmountPaid.GreaterThan(p.Amount) {
			return invalid(fmt.Sprintf("payments[%d].amountPaid", i), "%s exceeds amount %s", p.AmountPaid, p.Amount)
		}
	}
	if err := unique("payments", "id", snap.Payments, func(p MaintenancePayment) int { return p.ID }); err != nil {
		return err
	}
	return unique("expenditures", "id", snap.Expenditures, func(e Expenditure) int { return e.ID })
}

// unique reports the first record whose key repeats an earlier one.
func unique[T any, K comparable](collection, field string, list []T, key func(T) K) error {
	seen := make(map[K]int, len(list))
	for i, item := range list {
		k := key(item)
		if first, ok := seen[k]; ok {
			return invalid(fmt.Sprintf("%s[%d].%s", collection, i, field), "duplicates %s[%d]", collection, first)
		}
		seen[k] = i
	}
	return nil
}

// =============================================================================
// IMPORT
// =============================================================================

// ImportSnapshot validates snap and applies it in the requested mode. Nothing
// is written when validation fails.
func (s *Store) ImportSnapshot(ctx context.Context, snap Snapshot, opts ImportOptions) (ImportCounts, error) {
	mode := opts.Mode
	if mode == "" {
		mode = ImportReplace
	}
	if !mode.Valid() {
		return ImportCounts{}, invalid("mode", "unknown import mode %q", mode)
	}
	snap.normalize()
	if err := snap.Validate(); err != nil {
		return ImportCounts{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := snap
	if mode == ImportMerge {
		current, err := s.readAll(ctx)
		if err != nil {
			return ImportCounts{}, err
		}
		next = mergeSnapshots(current, snap)
	}

	b := newBatch()
	addTo(b, KeyHouses, next.Houses)
	addTo(b, KeyMembers, next.Members)
	addTo(b, KeyVehicles, next.Vehicles)
	addTo(b, KeyPayments, next.Payments)
	addTo(b, KeyExpenditures, next.Expenditures)
	if err := s.commit(ctx, b); err != nil {
		return ImportCounts{}, err
	}

	counts := ImportCounts{
		Houses:       len(next.Houses),
		Members:      len(next.Members),
		Vehicles:     len(next.Vehicles),
		Payments:     len(next.Payments),
		Expenditures: len(next.Expenditures),
	}
	s.logger.Info("snapshot imported",
		"mode", mode,
		"version", snap.Version,
		"houses", counts.Houses,
		"members", counts.Members,
		"vehicles", counts.Vehicles,
		"payments", counts.Payments,
		"expenditures", counts.Expenditures)

	s.record(ctx, ActivityEntry{
		Type:    KindSystem,
		Action:  ActionImport,
		Summary: "Data imported (" + string(mode) + ")",
		Meta:    map[string]any{"mode": mode, "counts": counts},
	})
	return counts, nil
}

func (s *Store) readAll(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	var err error
	if snap.Houses, err = readCollection[House](ctx, s, KeyHouses); err != nil {
		return Snapshot{}, err
	}
	if snap.Members, err = readCollection[Member](ctx, s, KeyMembers); err != nil {
		return Snapshot{}, err
	}
	if snap.Vehicles, err = readCollection[Vehicle](ctx, s, KeyVehicles); err != nil {
		return Snapshot{}, err
	}
	if snap.Payments, err = readCollection[MaintenancePayment](ctx, s, KeyPayments); err != nil {
		return Snapshot{}, err
	}
	if snap.Expenditures, err = readCollection[Expenditure](ctx, s, KeyExpenditures); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// mergeSnapshots appends incoming records whose natural key is new. Keys are
// added as records are taken, so duplicates inside incoming collapse too.
func mergeSnapshots(current, incoming Snapshot) Snapshot {
	return Snapshot{
		Houses:       mergeBy(current.Houses, incoming.Houses, func(h House) string { return foldKey(h.HouseNo) }),
		Members:      mergeBy(current.Members, incoming.Members, func(m Member) string { return m.ID }),
		Vehicles:     mergeBy(current.Vehicles, incoming.Vehicles, func(v Vehicle) string { return foldKey(v.Number) }),
		Payments:     mergeBy(current.Payments, incoming.Payments, func(p MaintenancePayment) int { return p.ID }),
		Expenditures: mergeBy(current.Expenditures, incoming.Expenditures, func(e Expenditure) int { return e.ID }),
	}
}

func mergeBy[T any, K comparable](current, incoming []T, key func(T) K) []T {
	seen := make(map[K]bool, len(current)+len(incoming))
	out := make([]T, 0, len(current)+len(incoming))
	for _, item := range current {
		seen[key(item)] = true
		out = append(out, item)
	}
	for _, item := range incoming {
		k := key(item)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, item)
	}
	return out
}

// =============================================================================
// RESET
// =============================================================================

// ResetAll empties the five entity collections. The activity and reports
// logs are kept, and the reset itself is recorded.
func (s *Store) ResetAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := newBatch()
	addTo(b, KeyHouses, []House{})
	addTo(b, KeyMembers, []Member{})
	addTo(b, KeyVehicles, []Vehicle{})
	addTo(b, KeyPayments, []MaintenancePayment{})
	addTo(b, KeyExpenditures, []Expenditure{})
	if err := s.commit(ctx, b); err != nil {
		return err
	}
	s.logger.Info("all collections reset")

	s.record(ctx, ActivityEntry{
		Type:    KindSystem,
		Action:  ActionReset,
		Summary: "All data reset",
	})
	return nil
}
