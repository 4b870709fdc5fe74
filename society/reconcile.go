/*
reconcile.go - Consistency engine

PURPOSE:
  Pure functions that derive the fields no caller may set directly:

  House view (on every house list):
    membersCount / vehiclesCount: number of members / vehicles whose house
      field equals the house number exactly. When none reference the house
      the stored value is kept, so seeded houses keep their initial counts.
    ownerName: first member with role Owner, else first member, else empty.
    status:    maintenance is preserved; otherwise occupied when the member
               count is positive, else the stored status.

  House recount (eager, after a member or vehicle mutation):
    The touched count is set to the exact number of referencing records and
    status is re-derived from the member count (occupied iff > 0), again
    preserving maintenance.

  Payment status (on every amount change):
    paid == 0 -> pending, 0 < paid < amount -> partial, paid == amount -> paid.

  Overdue pass (on every payment list):
    pending or partial with dueDate strictly before today -> overdue. The pass
    is monotonic and never touches latePayment.

SEE ALSO:
  - houses.go, payments.go: call sites and write-back
*/
package society

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// HOUSE VIEW
// =============================================================================

type residents struct {
	members  []Member
	vehicles int
}

func indexResidents(members []Member, vehicles []Vehicle) map[string]*residents {
	idx := make(map[string]*residents)
	get := func(houseNo string) *residents {
		r, ok := idx[houseNo]
		if !ok {
			r = &residents{}
			idx[houseNo] = r
		}
		return r
	}
	for _, m := range members {
		r := get(m.House)
		r.members = append(r.members, m)
	}
	for _, v := range vehicles {
		get(v.House).vehicles++
	}
	return idx
}

func ownerOf(members []Member) string {
	for _, m := range members {
		if m.Role == RoleOwner {
			return m.Name
		}
	}
	if len(members) > 0 {
		return members[0].Name
	}
	return ""
}

// HouseView recomputes the derived fields of h from the member and vehicle
// collections.
func HouseView(h House, members []Member, vehicles []Vehicle) House {
	return houseView(h, indexResidents(members, vehicles)[h.HouseNo])
}

func houseView(h House, r *residents) House {
	if r == nil {
		r = &residents{}
	}
	if n := len(r.members); n > 0 {
		h.MembersCount = n
	}
	if r.vehicles > 0 {
		h.VehiclesCount = r.vehicles
	}
	h.OwnerName = ownerOf(r.members)
	h.Status = viewStatus(h.Status, h.MembersCount)
	return h
}

func viewStatus(stored HouseStatus, membersCount int) HouseStatus {
	switch {
	case stored == HouseMaintenance:
		return HouseMaintenance
	case membersCount > 0:
		return HouseOccupied
	case stored.Valid():
		return stored
	default:
		return HouseVacant
	}
}

func occupancyStatus(stored HouseStatus, membersCount int) HouseStatus {
	switch {
	case stored == HouseMaintenance:
		return HouseMaintenance
	case membersCount > 0:
		return HouseOccupied
	default:
		return HouseVacant
	}
}

// reconcileHouses applies the view to every house and reports whether any
// house changed.
func reconcileHouses(houses []House, members []Member, vehicles []Vehicle) ([]House, bool) {
	idx := indexResidents(members, vehicles)
	out := make([]House, len(houses))
	changed := false
	for i, h := range houses {
		v := houseView(h, idx[h.HouseNo])
		if !sameView(h, v) {
			changed = true
		}
		out[i] = v
	}
	return out, changed
}

func sameView(a, b House) bool {
	return a.MembersCount == b.MembersCount &&
		a.VehiclesCount == b.VehiclesCount &&
		a.Status == b.Status &&
		a.OwnerName == b.OwnerName
}

// recountKind selects which count an eager recount refreshes.
type recountKind int

const (
	recountMembers recountKind = 1 << iota
	recountVehicles
)

// recountHouses refreshes the named houses after a member or vehicle write.
// Houses not named are left as stored. Dangling names match nothing.
func recountHouses(houses []House, members []Member, vehicles []Vehicle, kind recountKind, at time.Time, houseNos ...string) ([]House, bool) {
	wanted := make(map[string]bool, len(houseNos))
	for _, no := range houseNos {
		if no != "" {
			wanted[no] = true
		}
	}
	idx := indexResidents(members, vehicles)
	changed := false
	for i, h := range houses {
		if !wanted[h.HouseNo] {
			continue
		}
		r := idx[h.HouseNo]
		if r == nil {
			r = &residents{}
		}
		next := h
		if kind&recountMembers != 0 {
			next.MembersCount = len(r.members)
			next.OwnerName = ownerOf(r.members)
		}
		if kind&recountVehicles != 0 {
			next.VehiclesCount = r.vehicles
		}
		next.Status = occupancyStatus(next.Status, next.MembersCount)
		if !sameView(h, next) {
			next.UpdatedAt = at
			houses[i] = next
			changed = true
		}
	}
	return houses, changed
}

func summarizeHouses(houses []House) HouseSummary {
	sum := HouseSummary{Total: len(houses)}
	for _, h := range houses {
		switch h.Status {
		case HouseOccupied:
			sum.Occupied++
		case HouseVacant:
			sum.Vacant++
		}
	}
	return sum
}

// =============================================================================
// PAYMENT STATUS
// =============================================================================

// PaymentStatusFor derives status from the amounts alone.
func PaymentStatusFor(amount, paid decimal.Decimal) PaymentStatus {
	switch {
	case paid.IsZero():
		return PaymentPending
	case paid.LessThan(amount):
		return PaymentPartial
	default:
		return PaymentPaid
	}
}

// IsLatePayment reports whether a payment completed on paid is late: its day
// of month is after lateAfterDay.
func IsLatePayment(paid Date, lateAfterDay int) bool {
	return paid.Day() > lateAfterDay
}

// MarkOverdue moves an unpaid payment whose due date has passed to overdue.
func MarkOverdue(p MaintenancePayment, today Date) (MaintenancePayment, bool) {
	if p.Status != PaymentPending && p.Status != PaymentPartial {
		return p, false
	}
	if p.DueDate.IsZero() || !p.DueDate.Before(today) {
		return p, false
	}
	p.Status = PaymentOverdue
	return p, true
}

func markOverdue(payments []MaintenancePayment, today Date) int {
	n := 0
	for i, p := range payments {
		if next, ok := MarkOverdue(p, today); ok {
			payments[i] = next
			n++
		}
	}
	return n
}

func validateAmounts(amount, paid decimal.Decimal) error {
	if !amount.IsPositive() {
		return invalid("amount", "must be greater than zero")
	}
	if paid.IsNegative() {
		return invalid("amountPaid", "must not be negative")
	}
	if paid.GreaterThan(amount) {
		return invalid("amountPaid", "%s exceeds amount %s", paid, amount)
	}
	return nil
}
