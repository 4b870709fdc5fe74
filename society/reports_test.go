package society_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/society-engine/society"
)

func TestRecordReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r, err := f.st.RecordReport(ctx, society.ReportInput{Title: " March dues ", Format: "PDF"})
	require.NoError(t, err)
	assert.Equal(t, "March dues", r.Title)
	assert.Equal(t, "General", r.Category)
	assert.Equal(t, "pdf", r.Format)

	_, err = f.st.RecordReport(ctx, society.ReportInput{})
	assert.ErrorIs(t, err, society.ErrValidation)
}

func TestListReports_NewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.st.RecordReport(ctx, society.ReportInput{Title: "first"})
	require.NoError(t, err)
	f.clock.Advance(time.Hour)
	_, err = f.st.RecordReport(ctx, society.ReportInput{Title: "second"})
	require.NoError(t, err)

	list, stats, err := f.st.ListReports(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Title)
	assert.Equal(t, 2, stats.Today)
}

func TestSummarizeReports_WeekStartsMonday(t *testing.T) {
	// March 10 2025 is a Monday
	now := march10
	at := func(d time.Time, cat string) society.ReportEntry {
		return society.ReportEntry{Title: "r", Category: cat, CreatedAt: d}
	}
	lastMonth := time.Date(2025, time.February, 28, 12, 0, 0, 0, time.UTC)
	reports := []society.ReportEntry{
		at(now.Add(-time.Hour), "Finance"),   // today
		at(now.AddDate(0, 0, -1), "Finance"), // Sunday: previous week
		at(lastMonth, "Members"),
	}

	stats := society.SummarizeReports(reports, now)

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Today)
	assert.Equal(t, 1, stats.Week)
	assert.Equal(t, 2, stats.Month)
	assert.Equal(t, map[string]int{"Finance": 2, "Members": 1}, stats.ByCategory)
}
