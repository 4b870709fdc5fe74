package society_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/society-engine/society"
)

func populated(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t)
	ctx := context.Background()
	f.house(t, "A-101")
	f.house(t, "A-102")
	f.member(t, "Neha", "A-101", society.RoleOwner)
	f.vehicle(t, "GJ01AB1234", "A-101")
	createPayment(t, f, society.PaymentInput{House: "A-101", Amount: dec("1400.50"), AmountPaid: dec("700.25")})
	_, err := f.st.CreateExpenditure(ctx, society.ExpenditureInput{
		Title: "Guard salary", Category: society.CategorySecurity, Amount: dec("9000"), PaymentMode: society.ModeBank,
	})
	require.NoError(t, err)
	return f
}

// =============================================================================
// EXPORT / ROUND TRIP
// =============================================================================

func TestExportImport_RoundTripIsLossless(t *testing.T) {
	// GIVEN: A populated store exported to JSON
	// WHEN: The document is imported into an empty store and exported again
	// THEN: The five collections are identical

	src := populated(t)
	ctx := context.Background()
	snap, err := src.st.ExportSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, society.SnapshotVersion, snap.Version)
	assert.Equal(t, march10, snap.ExportedAt)

	doc, err := json.Marshal(snap)
	require.NoError(t, err)

	decoded, err := society.DecodeSnapshot(bytes.NewReader(doc))
	require.NoError(t, err)

	dst := newFixture(t)
	counts, err := dst.st.ImportSnapshot(ctx, decoded, society.ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, society.ImportCounts{Houses: 2, Members: 1, Vehicles: 1, Payments: 1, Expenditures: 1}, counts)

	for _, key := range []string{society.KeyHouses, society.KeyMembers, society.KeyVehicles, society.KeyPayments, society.KeyExpenditures} {
		assert.JSONEq(t, src.raw(t, key), dst.raw(t, key), key)
	}
}

func TestExportSnapshot_EmptyStoreHasEmptyArrays(t *testing.T) {
	f := newFixture(t)

	snap, err := f.st.ExportSnapshot(context.Background())
	require.NoError(t, err)
	doc, err := json.Marshal(snap)
	require.NoError(t, err)

	assert.Contains(t, string(doc), `"houses":[]`)
	assert.Contains(t, string(doc), `"expenditures":[]`)
}

// =============================================================================
// MERGE
// =============================================================================

func TestImportMerge_KeepsExistingRecords(t *testing.T) {
	// GIVEN: House A-101 with notes "ours"
	// WHEN: Merging a document with "a-101" (notes "theirs") and B-201
	// THEN: A-101 is untouched and B-201 is appended

	f := newFixture(t)
	ctx := context.Background()
	_, err := f.st.CreateHouse(ctx, society.HouseInput{HouseNo: "A-101", Notes: "ours"})
	require.NoError(t, err)

	incoming := society.Snapshot{
		Version: 1,
		Houses: []society.House{
			{ID: "x1", HouseNo: "a-101", Notes: "theirs"},
			{ID: "x2", HouseNo: "B-201"},
		},
	}
	counts, err := f.st.ImportSnapshot(ctx, incoming, society.ImportOptions{Mode: society.ImportMerge})
	require.NoError(t, err)
	assert.Equal(t, 2, counts.Houses)

	snap, err := f.st.ExportSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Houses, 2)
	assert.Equal(t, "A-101", snap.Houses[0].HouseNo)
	assert.Equal(t, "ours", snap.Houses[0].Notes)
	assert.Equal(t, "x2", snap.Houses[1].ID)
}

func TestImportMerge_NaturalKeysPerCollection(t *testing.T) {
	f := populated(t)
	ctx := context.Background()
	before, err := f.st.ExportSnapshot(ctx)
	require.NoError(t, err)

	incoming := society.Snapshot{
		Version:  1,
		Members:  []society.Member{before.Members[0], {ID: "new-member", Name: "Raj", House: "A-102"}},
		Vehicles: []society.Vehicle{{ID: "v9", Number: "gj01ab1234"}, {ID: "v10", Number: "MH12XY0001"}},
		Payments: []society.MaintenancePayment{{ID: 1, House: "ZZZ"}, {ID: 7, House: "A-102", Amount: dec("100")}},
	}
	counts, err := f.st.ImportSnapshot(ctx, incoming, society.ImportOptions{Mode: society.ImportMerge})
	require.NoError(t, err)

	assert.Equal(t, society.ImportCounts{Houses: 2, Members: 2, Vehicles: 2, Payments: 2, Expenditures: 1}, counts)

	after, err := f.st.ExportSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "A-101", after.Payments[0].House, "existing payment 1 is not overwritten")
	assert.Equal(t, 7, after.Payments[1].ID)
}

// =============================================================================
// REPLACE / VALIDATION
// =============================================================================

func TestImportReplace_OverwritesEverything(t *testing.T) {
	f := populated(t)
	ctx := context.Background()

	counts, err := f.st.ImportSnapshot(ctx, society.Snapshot{
		Version: 1,
		Houses:  []society.House{{ID: "h1", HouseNo: "Z-1"}},
	}, society.ImportOptions{Mode: society.ImportReplace})
	require.NoError(t, err)
	assert.Equal(t, society.ImportCounts{Houses: 1}, counts)
	assert.Equal(t, "[]", f.raw(t, society.KeyMembers))
}

func TestImport_NewerVersionRejectedWithoutChanges(t *testing.T) {
	f := populated(t)
	ctx := context.Background()
	before := f.raw(t, society.KeyHouses)

	_, err := f.st.ImportSnapshot(ctx, society.Snapshot{Version: 99}, society.ImportOptions{})

	var verr *society.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "version", verr.Field)
	assert.Equal(t, before, f.raw(t, society.KeyHouses))
}

func TestImportReplace_RejectsBrokenInvariants(t *testing.T) {
	// GIVEN: A populated store
	// WHEN: Replacing it with a document that overpays and repeats a payment id
	// THEN: ValidationError, and payments keep their old value

	f := populated(t)
	ctx := context.Background()
	before := f.raw(t, society.KeyPayments)

	_, err := f.st.ImportSnapshot(ctx, society.Snapshot{
		Version: 1,
		Payments: []society.MaintenancePayment{
			{ID: 1, House: "A-101", Amount: dec("100"), AmountPaid: dec("500")},
			{ID: 1, House: "A-102", Amount: dec("100")},
		},
	}, society.ImportOptions{Mode: society.ImportReplace})
	require.ErrorIs(t, err, society.ErrValidation)
	assert.Equal(t, before, f.raw(t, society.KeyPayments))

	_, err = f.st.ImportSnapshot(ctx, society.Snapshot{
		Version: 1,
		Houses:  []society.House{{ID: "h1", HouseNo: "A-101"}, {ID: "h2", HouseNo: "a-101"}},
	}, society.ImportOptions{Mode: society.ImportReplace})
	require.ErrorIs(t, err, society.ErrValidation)

	houses, _, err := f.st.ListHouses(ctx)
	require.NoError(t, err)
	assert.Len(t, houses, 2)
}

func TestImport_HouseReferencesAreNormalized(t *testing.T) {
	// GIVEN: A document with house "a-101" and a member pointing at " a-101"
	// WHEN: It is imported and another member is added through the store
	// THEN: Both members count toward the upper-cased house

	f := newFixture(t)
	ctx := context.Background()

	_, err := f.st.ImportSnapshot(ctx, society.Snapshot{
		Version: 1,
		Houses:  []society.House{{ID: "h1", HouseNo: "a-101", Block: "a"}},
		Members: []society.Member{{ID: "m1", Name: "Neha", House: " a-101", Role: society.RoleOwner}},
	}, society.ImportOptions{Mode: society.ImportReplace})
	require.NoError(t, err)
	f.member(t, "X", "a-101", society.RoleTenant)

	houses, _, err := f.st.ListHouses(ctx)
	require.NoError(t, err)
	h := findHouse(t, houses, "A-101")
	assert.Equal(t, "A", h.Block)
	assert.Equal(t, 2, h.MembersCount)
	assert.Equal(t, society.HouseOccupied, h.Status)
	assert.Equal(t, "Neha", h.OwnerName)
}

func TestImport_UnknownModeRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.st.ImportSnapshot(context.Background(), society.Snapshot{Version: 1}, society.ImportOptions{Mode: "upsert"})
	assert.ErrorIs(t, err, society.ErrValidation)
}

func TestImport_FailedWriteAppliesNothing(t *testing.T) {
	// GIVEN: A medium whose payments key rejects writes
	// WHEN: Importing a full document
	// THEN: The batch fails as a whole; houses keep their old value

	f := populated(t)
	ctx := context.Background()
	before := f.raw(t, society.KeyHouses)
	f.kv.FailWrites(society.KeyPayments, errors.New("quota exceeded"))

	_, err := f.st.ImportSnapshot(ctx, society.Snapshot{
		Version: 1,
		Houses:  []society.House{{ID: "h1", HouseNo: "Z-1"}},
	}, society.ImportOptions{})
	require.Error(t, err)

	assert.Equal(t, before, f.raw(t, society.KeyHouses))
}

func TestImport_RecordsActivityEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.st.ImportSnapshot(ctx, society.Snapshot{Version: 1}, society.ImportOptions{Mode: society.ImportMerge})
	require.NoError(t, err)

	log, err := f.st.Activity(ctx)
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, society.KindSystem, log[0].Type)
	assert.Equal(t, society.ActionImport, log[0].Action)
	assert.Equal(t, "Data imported (merge)", log[0].Summary)
}

func TestDecodeSnapshot_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		field string
	}{
		{"not json", `{"version":`, "snapshot"},
		{"array document", `[]`, "snapshot"},
		{"missing version", `{"houses":[]}`, "version"},
		{"string version", `{"version":"1"}`, "version"},
		{"fractional version", `{"version":1.5}`, "version"},
		{"houses not array", `{"version":1,"houses":{}}`, "houses"},
		{"house without number", `{"version":1,"houses":[{"id":"h1"}]}`, "houses[0].houseNo"},
		{"member without id", `{"version":1,"members":[{"name":"x"}]}`, "members[0].id"},
		{"version zero", `{"version":0}`, "version"},
		{"house number repeated ignoring case", `{"version":1,"houses":[{"id":"h1","houseNo":"A-101"},{"id":"h2","houseNo":"a-101"}]}`, "houses[1].houseNo"},
		{"member id repeated", `{"version":1,"members":[{"id":"m1"},{"id":"m1"}]}`, "members[1].id"},
		{"vehicle number repeated", `{"version":1,"vehicles":[{"id":"v1","number":"GJ01AB1234"},{"id":"v2","number":"gj01ab1234"}]}`, "vehicles[1].number"},
		{"payment id repeated", `{"version":1,"payments":[{"id":1,"amount":"100"},{"id":1,"amount":"200"}]}`, "payments[1].id"},
		{"amount paid above amount", `{"version":1,"payments":[{"id":1,"amount":"100","amountPaid":"500"}]}`, "payments[0].amountPaid"},
		{"negative amount paid", `{"version":1,"payments":[{"id":1,"amount":"100","amountPaid":"-1"}]}`, "payments[0].amountPaid"},
		{"expenditure id repeated", `{"version":1,"expenditures":[{"id":3,"title":"a"},{"id":3,"title":"b"}]}`, "expenditures[1].id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := society.DecodeSnapshot(strings.NewReader(tt.doc))

			var verr *society.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestDecodeSnapshot_NullAndMissingCollectionsAreEmpty(t *testing.T) {
	snap, err := society.DecodeSnapshot(strings.NewReader(`{"version":1,"houses":null}`))
	require.NoError(t, err)

	assert.NotNil(t, snap.Houses)
	assert.Empty(t, snap.Houses)
	assert.NotNil(t, snap.Expenditures)
}

func TestDecodeSnapshot_LegacyNumericFloor(t *testing.T) {
	snap, err := society.DecodeSnapshot(strings.NewReader(`{"version":1,"houses":[{"id":"h1","houseNo":"A-101","floor":3}]}`))
	require.NoError(t, err)

	assert.Equal(t, society.Floor("3"), snap.Houses[0].Floor)
}

// =============================================================================
// RESET
// =============================================================================

func TestResetAll_EmptiesEntitiesKeepsLogs(t *testing.T) {
	f := populated(t)
	ctx := context.Background()
	_, err := f.st.RecordReport(ctx, society.ReportInput{Title: "March dues"})
	require.NoError(t, err)

	require.NoError(t, f.st.ResetAll(ctx))

	snap, err := f.st.ExportSnapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Houses)
	assert.Empty(t, snap.Members)
	assert.Empty(t, snap.Vehicles)
	assert.Empty(t, snap.Payments)
	assert.Empty(t, snap.Expenditures)

	reports, _, err := f.st.ListReports(ctx)
	require.NoError(t, err)
	assert.Len(t, reports, 1)

	log, err := f.st.Activity(ctx)
	require.NoError(t, err)
	assert.Equal(t, society.ActionReset, log[0].Action)
	assert.Greater(t, len(log), 1)
}
