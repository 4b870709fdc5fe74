package society

import (
	"context"
	"strconv"

	"github.com/shopspring/decimal"
)

// GenerateMonthlyPayments bills every occupied house once for the current
// period. Houses already holding a payment labelled with the current month
// are skipped, so a second call in the same period returns 0.
//
// The house views are reconciled first, so occupancy reflects the member
// collection rather than whatever status was last stored.
func (s *Store) GenerateMonthlyPayments(ctx context.Context, defaultAmount decimal.Decimal) (int, error) {
	if !defaultAmount.IsPositive() {
		return 0, invalid("defaultAmount", "must be greater than zero")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	houses, err := s.listHouses(ctx)
	if err != nil {
		return 0, err
	}
	members, err := readCollection[Member](ctx, s, KeyMembers)
	if err != nil {
		return 0, err
	}
	payments, err := readCollection[MaintenancePayment](ctx, s, KeyPayments)
	if err != nil {
		return 0, err
	}

	now := s.now()
	period := PeriodFor(now, s.dueDay)
	billed := make(map[string]bool, len(payments))
	for _, p := range payments {
		billed[p.House+"-"+p.Month] = true
	}
	owners := make(map[string]string)
	for _, m := range members {
		ref := houseRef(m.House)
		if _, ok := owners[ref]; !ok && m.Role == RoleOwner {
			owners[ref] = m.Name
		}
	}

	next := nextIntID(payments, func(p MaintenancePayment) int { return p.ID })
	added := 0
	for _, h := range houses {
		if h.Status != HouseOccupied {
			continue
		}
		ref := houseRef(h.HouseNo)
		if billed[ref+"-"+period.Label] || billed[h.HouseNo+"-"+period.Label] {
			continue
		}
		owner, ok := owners[ref]
		if !ok {
			owner = h.OwnerName
		}
		p := MaintenancePayment{
			ID:           next,
			House:        ref,
			Owner:        owner,
			Amount:       defaultAmount,
			AmountPaid:   decimal.Zero,
			FromMonthRaw: period.Month,
			ToMonthRaw:   period.Month,
			MonthsCount:  1,
			DueDate:      period.Due,
			Status:       PaymentPending,
			CreatedAt:    now,
		}
		setMonthLabels(&p)
		payments = append(payments, p)
		billed[ref+"-"+period.Label] = true
		next++
		added++
	}
	if added == 0 {
		return 0, nil
	}
	if err := writeCollection(ctx, s, KeyPayments, payments); err != nil {
		return 0, err
	}
	s.logger.Info("monthly payments generated", "month", period.Month, "count", added)

	s.record(ctx, ActivityEntry{
		Type:    KindPayment,
		Action:  ActionGenerate,
		Summary: "Generated " + strconv.Itoa(added) + " monthly payments",
		Meta:    map[string]any{"month": period.Label, "count": added},
	})
	return added, nil
}
