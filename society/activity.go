/*
activity.go - Bounded audit trail

PURPOSE:
  Every entity mutation appends exactly one entry after its own write has
  succeeded. The log is best-effort: a failure to persist it is logged and
  never fails or rolls back the mutation that produced it.

RING BUFFER:
  Entries are kept newest-inserted first and capped at ActivityCapacity. The
  oldest-inserted entry is dropped first, whatever its timestamp. Reads sort by
  timestamp descending; the stored order is not re-sorted before truncation.
*/
package society

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const ActivityCapacity = 1000

type Action string

const (
	ActionCreate   Action = "create"
	ActionUpdate   Action = "update"
	ActionDelete   Action = "delete"
	ActionGenerate Action = "generate"
	ActionImport   Action = "import"
	ActionReset    Action = "reset"
)

// ActivityEntry is one audit line. Amount is signed: income positive,
// expense negative.
type ActivityEntry struct {
	ID       string           `json:"id"`
	TS       time.Time        `json:"ts"`
	Type     EntityKind       `json:"type"`
	Action   Action           `json:"action"`
	Summary  string           `json:"summary"`
	User     string           `json:"user,omitempty"`
	Amount   *decimal.Decimal `json:"amount,omitempty"`
	EntityID string           `json:"entityId,omitempty"`
	Meta     map[string]any   `json:"meta,omitempty"`
}

// activityRing is the insertion-ordered, fixed-capacity view of the log.
type activityRing struct {
	entries  []ActivityEntry // newest inserted first
	capacity int
}

func (r *activityRing) push(e ActivityEntry) {
	r.entries = append(r.entries, ActivityEntry{})
	copy(r.entries[1:], r.entries)
	r.entries[0] = e
	if len(r.entries) > r.capacity {
		r.entries = r.entries[:r.capacity]
	}
}

// AppendActivity assigns id and timestamp to entry and stores it.
func (s *Store) AppendActivity(ctx context.Context, entry ActivityEntry) (ActivityEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendActivity(ctx, entry)
}

func (s *Store) appendActivity(ctx context.Context, entry ActivityEntry) (ActivityEntry, error) {
	list, err := readCollection[ActivityEntry](ctx, s, KeyActivity)
	if err != nil {
		return ActivityEntry{}, err
	}
	entry.ID = s.newID()
	entry.TS = s.now()
	if entry.User == "" {
		entry.User = s.actor
	}
	ring := activityRing{entries: list, capacity: ActivityCapacity}
	ring.push(entry)
	if err := writeCollection(ctx, s, KeyActivity, ring.entries); err != nil {
		return ActivityEntry{}, err
	}
	return entry, nil
}

// record appends an entry for a mutation that already succeeded.
func (s *Store) record(ctx context.Context, entry ActivityEntry) {
	if _, err := s.appendActivity(ctx, entry); err != nil {
		s.logger.Warn("activity log append failed",
			"type", entry.Type,
			"action", entry.Action,
			"entity_id", entry.EntityID,
			"error", err)
	}
}

// Activity returns the log sorted by timestamp, newest first.
func (s *Store) Activity(ctx context.Context) ([]ActivityEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := readCollection[ActivityEntry](ctx, s, KeyActivity)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].TS.After(list[j].TS) })
	return list, nil
}

func signed(d decimal.Decimal) *decimal.Decimal { return &d }
