package society_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/society-engine/society"
)

// =============================================================================
// HOUSE VIEW
// =============================================================================

func TestMemberCreate_VacantHouseBecomesOccupied(t *testing.T) {
	// GIVEN: A vacant house A-101
	// WHEN: An owner is added to it
	// THEN: The house reads occupied with one member and the owner's name

	f := newFixture(t)
	ctx := context.Background()
	f.house(t, "A-101")

	f.member(t, "Neha Sharma", "a-101", society.RoleOwner)

	houses, _, err := f.st.ListHouses(ctx)
	require.NoError(t, err)
	h := findHouse(t, houses, "A-101")
	assert.Equal(t, society.HouseOccupied, h.Status)
	assert.Equal(t, 1, h.MembersCount)
	assert.Equal(t, "Neha Sharma", h.OwnerName)

	// The eager recount already persisted it
	var stored []society.House
	require.NoError(t, json.Unmarshal([]byte(f.raw(t, society.KeyHouses)), &stored))
	assert.Equal(t, society.HouseOccupied, stored[0].Status)
	assert.Equal(t, 1, stored[0].MembersCount)
}

func TestMemberDelete_LastMemberLeavesHouseVacant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.house(t, "A-101")
	m := f.member(t, "Neha", "A-101", society.RoleOwner)

	require.NoError(t, f.st.DeleteMember(ctx, m.ID))

	houses, _, err := f.st.ListHouses(ctx)
	require.NoError(t, err)
	h := findHouse(t, houses, "A-101")
	assert.Equal(t, society.HouseVacant, h.Status)
	assert.Equal(t, 0, h.MembersCount)
	assert.Empty(t, h.OwnerName)
}

func TestListHouses_HealsOutOfBandEdits(t *testing.T) {
	// GIVEN: Members written straight to the medium, bypassing the store
	// WHEN: Listing houses
	// THEN: The view reflects them and the corrected houses are written back

	f := newFixture(t)
	ctx := context.Background()
	f.house(t, "A-101")
	members := []society.Member{
		{ID: "m1", Name: "Tenant One", House: "A-101", Role: society.RoleTenant},
		{ID: "m2", Name: "Owner Two", House: "A-101", Role: society.RoleOwner},
	}
	raw, err := json.Marshal(members)
	require.NoError(t, err)
	require.NoError(t, f.kv.Set(ctx, society.KeyMembers, raw))

	houses, _, err := f.st.ListHouses(ctx)
	require.NoError(t, err)
	h := findHouse(t, houses, "A-101")
	assert.Equal(t, 2, h.MembersCount)
	assert.Equal(t, "Owner Two", h.OwnerName)
	assert.Equal(t, society.HouseOccupied, h.Status)

	var stored []society.House
	require.NoError(t, json.Unmarshal([]byte(f.raw(t, society.KeyHouses)), &stored))
	assert.Equal(t, 2, stored[0].MembersCount)
	assert.Equal(t, "Owner Two", stored[0].OwnerName)
}

func TestHouseView_MaintenanceIsPreserved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.house(t, "A-101")
	_, err := f.st.UpdateHouse(ctx, "A-101", society.HousePatch{Status: ptr(society.HouseMaintenance)})
	require.NoError(t, err)

	f.member(t, "Neha", "A-101", society.RoleOwner)

	houses, _, err := f.st.ListHouses(ctx)
	require.NoError(t, err)
	h := findHouse(t, houses, "A-101")
	assert.Equal(t, society.HouseMaintenance, h.Status)
	assert.Equal(t, 1, h.MembersCount)
}

func TestHouseView_StoredCountsKeptWithoutReferences(t *testing.T) {
	// GIVEN: A house created with initial counts and nothing referencing it
	// THEN: Listing keeps the stored counts

	f := newFixture(t)
	ctx := context.Background()
	_, err := f.st.CreateHouse(ctx, society.HouseInput{HouseNo: "B-201", MembersCount: 3, VehiclesCount: 2})
	require.NoError(t, err)

	houses, _, err := f.st.ListHouses(ctx)
	require.NoError(t, err)
	h := findHouse(t, houses, "B-201")
	assert.Equal(t, 3, h.MembersCount)
	assert.Equal(t, 2, h.VehiclesCount)
	assert.Equal(t, society.HouseOccupied, h.Status)
}

func TestHouseView_PureFunction(t *testing.T) {
	h := society.House{HouseNo: "A-101", Status: society.HouseVacant}
	members := []society.Member{
		{Name: "First", House: "A-101", Role: society.RoleTenant},
		{Name: "Elsewhere", House: "B-201", Role: society.RoleOwner},
	}
	vehicles := []society.Vehicle{{Number: "X", House: "A-101"}, {Number: "Y", House: "A-101"}}

	v := society.HouseView(h, members, vehicles)

	assert.Equal(t, 1, v.MembersCount)
	assert.Equal(t, 2, v.VehiclesCount)
	assert.Equal(t, "First", v.OwnerName)
	assert.Equal(t, society.HouseOccupied, v.Status)
}

func TestVehicleMove_RecountsBothHouses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.house(t, "A-101")
	f.house(t, "B-201")
	v := f.vehicle(t, "GJ01AB1234", "A-101")
	f.vehicle(t, "GJ01AB5678", "A-101")

	_, err := f.st.UpdateVehicle(ctx, v.ID, society.VehiclePatch{House: ptr("b-201")})
	require.NoError(t, err)

	houses, _, err := f.st.ListHouses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, findHouse(t, houses, "A-101").VehiclesCount)
	assert.Equal(t, 1, findHouse(t, houses, "B-201").VehiclesCount)
}

func TestMemberMove_RecountsBothHouses(t *testing.T) {
	// GIVEN: Owner X in A-101 and an empty B-201
	// WHEN: X moves to b-201
	// THEN: A-101 reads vacant with no owner, B-201 occupied by X

	f := newFixture(t)
	ctx := context.Background()
	f.house(t, "A-101")
	f.house(t, "B-201")
	m := f.member(t, "X", "A-101", society.RoleOwner)

	moved, err := f.st.UpdateMember(ctx, m.ID, society.MemberPatch{House: ptr("b-201")})
	require.NoError(t, err)
	assert.Equal(t, "B-201", moved.House)

	houses, _, err := f.st.ListHouses(ctx)
	require.NoError(t, err)
	a := findHouse(t, houses, "A-101")
	assert.Equal(t, 0, a.MembersCount)
	assert.Equal(t, society.HouseVacant, a.Status)
	assert.Empty(t, a.OwnerName)
	b := findHouse(t, houses, "B-201")
	assert.Equal(t, 1, b.MembersCount)
	assert.Equal(t, society.HouseOccupied, b.Status)
	assert.Equal(t, "X", b.OwnerName)
}

func TestVehicleDelete_DecrementsHouseCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.house(t, "A-101")
	v := f.vehicle(t, "GJ01AB1234", "A-101")
	f.vehicle(t, "GJ01AB5678", "A-101")

	require.NoError(t, f.st.DeleteVehicle(ctx, v.ID))

	houses, _, err := f.st.ListHouses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, findHouse(t, houses, "A-101").VehiclesCount)

	vehicles, err := f.st.ListVehicles(ctx)
	require.NoError(t, err)
	require.Len(t, vehicles, 1)
	assert.Equal(t, "GJ01AB5678", vehicles[0].Number)
}

func TestMemberRoleChange_RederivesRelationship(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.member(t, "Neha", "A-101", society.RoleOwner)
	require.Equal(t, society.RelOwner, m.Relationship)

	tenant, err := f.st.UpdateMember(ctx, m.ID, society.MemberPatch{Role: ptr(society.RoleTenant)})
	require.NoError(t, err)
	assert.Equal(t, society.RelOther, tenant.Relationship)

	spouse, err := f.st.UpdateMember(ctx, m.ID, society.MemberPatch{
		Role:         ptr(society.RoleFamilyMember),
		Relationship: ptr(society.RelSpouse),
	})
	require.NoError(t, err)
	assert.Equal(t, society.RelSpouse, spouse.Relationship)

	renamed, err := f.st.UpdateMember(ctx, m.ID, society.MemberPatch{Name: ptr("Neha S")})
	require.NoError(t, err)
	assert.Equal(t, society.RelSpouse, renamed.Relationship, "unchanged role keeps the relationship")
}

func TestVehicleNumber_UniqueOnCreateAndUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.vehicle(t, "GJ01AB1234", "A-101")
	other := f.vehicle(t, "GJ01ZZ9999", "A-101")

	_, err := f.st.CreateVehicle(ctx, society.VehicleInput{Number: "gj01ab1234", House: "A-102"})
	assert.ErrorIs(t, err, society.ErrDuplicateKey)

	_, err = f.st.UpdateVehicle(ctx, other.ID, society.VehiclePatch{Number: ptr("GJ01AB1234")})
	assert.ErrorIs(t, err, society.ErrDuplicateKey)
}

// =============================================================================
// NOT FOUND
// =============================================================================

func TestResidents_UnknownIDIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		kind society.EntityKind
		call func() error
	}{
		{"update member", society.KindMember, func() error {
			_, err := f.st.UpdateMember(ctx, "nope", society.MemberPatch{Name: ptr("x")})
			return err
		}},
		{"delete member", society.KindMember, func() error { return f.st.DeleteMember(ctx, "nope") }},
		{"update vehicle", society.KindVehicle, func() error {
			_, err := f.st.UpdateVehicle(ctx, "nope", society.VehiclePatch{Color: ptr("red")})
			return err
		}},
		{"delete vehicle", society.KindVehicle, func() error { return f.st.DeleteVehicle(ctx, "nope") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()

			var nf *society.NotFoundError
			require.ErrorAs(t, err, &nf)
			assert.Equal(t, tt.kind, nf.Kind)
			assert.Equal(t, "nope", nf.ID)
		})
	}
}

func TestResidents_SecondDeleteFails(t *testing.T) {
	// GIVEN: One member and one vehicle
	// WHEN: Each is deleted twice
	// THEN: The first delete succeeds, the second is NotFound and logs nothing

	f := newFixture(t)
	ctx := context.Background()
	m := f.member(t, "Neha", "A-101", society.RoleOwner)
	v := f.vehicle(t, "GJ01AB1234", "A-101")

	require.NoError(t, f.st.DeleteMember(ctx, m.ID))
	assert.ErrorIs(t, f.st.DeleteMember(ctx, m.ID), society.ErrNotFound)
	require.NoError(t, f.st.DeleteVehicle(ctx, v.ID))
	assert.ErrorIs(t, f.st.DeleteVehicle(ctx, v.ID), society.ErrNotFound)

	log, err := f.st.Activity(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, countActions(log, society.ActionDelete))
}

// =============================================================================
// SOFT REFERENCES
// =============================================================================

func TestMember_DanglingHouseReferenceIsAccepted(t *testing.T) {
	// GIVEN: No house Z-999
	// WHEN: A member references it
	// THEN: The member is stored and no house is created

	f := newFixture(t)
	ctx := context.Background()
	f.house(t, "A-101")

	m := f.member(t, "Ghost", "z-999", society.RoleTenant)
	assert.Equal(t, "Z-999", m.House)

	houses, summary, err := f.st.ListHouses(ctx)
	require.NoError(t, err)
	assert.Len(t, houses, 1)
	assert.Equal(t, 0, findHouse(t, houses, "A-101").MembersCount)
	assert.Equal(t, 1, summary.Vacant)
}

func TestDeleteHouse_LeavesResidentsDangling(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h := f.house(t, "A-101")
	f.member(t, "Neha", "A-101", society.RoleOwner)
	f.vehicle(t, "GJ01AB1234", "A-101")

	require.NoError(t, f.st.DeleteHouse(ctx, h.ID))

	members, err := f.st.ListMembers(ctx)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "A-101", members[0].House)

	vehicles, err := f.st.ListVehicles(ctx)
	require.NoError(t, err)
	require.Len(t, vehicles, 1)

	// Re-creating the house picks its residents back up
	f.house(t, "A-101")
	houses, _, err := f.st.ListHouses(ctx)
	require.NoError(t, err)
	again := findHouse(t, houses, "A-101")
	assert.Equal(t, 1, again.MembersCount)
	assert.Equal(t, 1, again.VehiclesCount)
}

// =============================================================================
// PAYMENT STATUS
// =============================================================================

func TestPaymentStatusFor(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		paid   string
		want   society.PaymentStatus
	}{
		{"nothing paid", "1400", "0", society.PaymentPending},
		{"part paid", "1400", "700", society.PaymentPartial},
		{"fully paid", "1400", "1400", society.PaymentPaid},
		{"fractional", "1400.50", "1400.5", society.PaymentPaid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, society.PaymentStatusFor(dec(tt.amount), dec(tt.paid)))
		})
	}
}

func TestMarkOverdue(t *testing.T) {
	today := society.NewDate(2025, 3, 10)
	base := society.MaintenancePayment{Amount: decimal.NewFromInt(1400), DueDate: society.NewDate(2025, 3, 5)}

	pending := base
	pending.Status = society.PaymentPending
	got, changed := society.MarkOverdue(pending, today)
	assert.True(t, changed)
	assert.Equal(t, society.PaymentOverdue, got.Status)

	paid := base
	paid.Status = society.PaymentPaid
	_, changed = society.MarkOverdue(paid, today)
	assert.False(t, changed)

	dueToday := pending
	dueToday.DueDate = today
	_, changed = society.MarkOverdue(dueToday, today)
	assert.False(t, changed, "due today is not yet overdue")
}

func TestIsLatePayment(t *testing.T) {
	assert.False(t, society.IsLatePayment(society.NewDate(2025, 3, 15), 15))
	assert.True(t, society.IsLatePayment(society.NewDate(2025, 3, 16), 15))
}
