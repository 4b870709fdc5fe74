package society

import (
	"context"
	"sort"
	"strings"
	"time"
)

// =============================================================================
// GENERATED REPORTS LOG
// =============================================================================

// ReportEntry records that a report was produced. Rendering the report file
// itself happens outside the store.
type ReportEntry struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	Format    string    `json:"format"`
	CreatedAt time.Time `json:"createdAt"`
}

type ReportInput struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Format   string `json:"format"`
}

// ReportStats counts reports by age and category. Week starts on Monday.
type ReportStats struct {
	Total      int            `json:"total"`
	Today      int            `json:"today"`
	Week       int            `json:"week"`
	Month      int            `json:"month"`
	ByCategory map[string]int `json:"byCategory"`
}

func (s *Store) RecordReport(ctx context.Context, in ReportInput) (ReportEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := ReportEntry{
		ID:        s.newID(),
		Title:     strings.TrimSpace(in.Title),
		Category:  strings.TrimSpace(in.Category),
		Format:    strings.ToLower(strings.TrimSpace(in.Format)),
		CreatedAt: s.now(),
	}
	if r.Title == "" {
		return ReportEntry{}, invalid("title", "required")
	}
	if r.Category == "" {
		r.Category = "General"
	}

	reports, err := readCollection[ReportEntry](ctx, s, KeyReports)
	if err != nil {
		return ReportEntry{}, err
	}
	reports = append(reports, r)
	if err := writeCollection(ctx, s, KeyReports, reports); err != nil {
		return ReportEntry{}, err
	}
	return r, nil
}

// ListReports returns the reports log newest first, with stats relative to
// the store clock.
func (s *Store) ListReports(ctx context.Context) ([]ReportEntry, ReportStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reports, err := readCollection[ReportEntry](ctx, s, KeyReports)
	if err != nil {
		return nil, ReportStats{}, err
	}
	sort.SliceStable(reports, func(i, j int) bool { return reports[i].CreatedAt.After(reports[j].CreatedAt) })
	return reports, SummarizeReports(reports, s.now()), nil
}

func SummarizeReports(reports []ReportEntry, now time.Time) ReportStats {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	week := day.AddDate(0, 0, -((int(day.Weekday()) + 6) % 7))
	month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	stats := ReportStats{Total: len(reports), ByCategory: make(map[string]int)}
	for _, r := range reports {
		at := r.CreatedAt.In(now.Location())
		if !at.Before(day) {
			stats.Today++
		}
		if !at.Before(week) {
			stats.Week++
		}
		if !at.Before(month) {
			stats.Month++
		}
		stats.ByCategory[r.Category]++
	}
	return stats
}
