package society_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/society-engine/society"
)

func countActions(log []society.ActivityEntry, action society.Action) int {
	n := 0
	for _, e := range log {
		if e.Action == action {
			n++
		}
	}
	return n
}

func TestGenerateMonthlyPayments_BillsOccupiedHousesOnce(t *testing.T) {
	// GIVEN: Occupied A-101 (owner) and C-301 (tenant only), vacant A-102,
	//        B-201 under maintenance with a resident
	// WHEN: Generating twice in March
	// THEN: Two pending payments the first time, none the second

	f := newFixture(t)
	ctx := context.Background()
	f.house(t, "A-101")
	f.house(t, "A-102")
	f.house(t, "B-201")
	f.house(t, "C-301")
	_, err := f.st.UpdateHouse(ctx, "B-201", society.HousePatch{Status: ptr(society.HouseMaintenance)})
	require.NoError(t, err)
	f.member(t, "Rahul Sharma", "A-101", society.RoleFamilyMember)
	f.member(t, "Neha Sharma", "A-101", society.RoleOwner)
	f.member(t, "Suresh Patel", "B-201", society.RoleOwner)
	f.member(t, "Tina Tenant", "C-301", society.RoleTenant)

	n, err := f.st.GenerateMonthlyPayments(ctx, dec("1400"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	payments, _, err := f.st.ListPayments(ctx)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	owners := map[string]string{}
	for _, p := range payments {
		owners[p.House] = p.Owner
		assertDecimal(t, "1400", p.Amount)
		assertDecimal(t, "0", p.AmountPaid)
		assert.Equal(t, "March 2025", p.Month)
		assert.Equal(t, 1, p.MonthsCount)
		assert.Equal(t, society.NewDate(2025, 3, 5), p.DueDate)
	}
	assert.Equal(t, map[string]string{"A-101": "Neha Sharma", "C-301": "Tina Tenant"}, owners)

	again, err := f.st.GenerateMonthlyPayments(ctx, dec("1400"))
	require.NoError(t, err)
	assert.Equal(t, 0, again)

	log, err := f.st.Activity(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, countActions(log, society.ActionGenerate), "no entry when nothing was generated")
}

func TestGenerateMonthlyPayments_ManualPaymentCountsAsBilled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.house(t, "A-101")
	f.member(t, "Neha", "A-101", society.RoleOwner)
	createPayment(t, f, society.PaymentInput{House: "a-101", Amount: dec("1400"), AmountPaid: dec("1400")})

	n, err := f.st.GenerateMonthlyPayments(ctx, dec("1400"))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestGenerateMonthlyPayments_NextMonthBillsAgain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.house(t, "A-101")
	f.member(t, "Neha", "A-101", society.RoleOwner)

	_, err := f.st.GenerateMonthlyPayments(ctx, dec("1400"))
	require.NoError(t, err)

	f.clock.t = f.clock.t.AddDate(0, 1, 0)
	n, err := f.st.GenerateMonthlyPayments(ctx, dec("1500"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	payments, _, err := f.st.ListPayments(ctx)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, 2, payments[0].ID)
	assert.Equal(t, "April 2025", payments[0].Month)
	assert.Equal(t, society.NewDate(2025, 4, 5), payments[0].DueDate)
}

func TestGenerateMonthlyPayments_ConfiguredDueDay(t *testing.T) {
	f := newFixture(t, society.WithDueDay(10))
	f.house(t, "A-101")
	f.member(t, "Neha", "A-101", society.RoleOwner)

	_, err := f.st.GenerateMonthlyPayments(context.Background(), dec("1400"))
	require.NoError(t, err)

	payments, _, err := f.st.ListPayments(context.Background())
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, society.NewDate(2025, 3, 10), payments[0].DueDate)
	assert.Equal(t, society.PaymentPending, payments[0].Status, "due today is not overdue")
}

func TestGenerateMonthlyPayments_RejectsNonPositiveAmount(t *testing.T) {
	f := newFixture(t)

	_, err := f.st.GenerateMonthlyPayments(context.Background(), dec("0"))
	assert.ErrorIs(t, err, society.ErrValidation)
}
