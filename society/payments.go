package society

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MAINTENANCE PAYMENTS
// =============================================================================

// PaymentSummary aggregates a payment list.
//
//	Total:          sum of amount
//	Collected:      sum of amountPaid over paid records
//	Pending:        sum of amount where nothing has been paid
//	LateTotal:      sum of amount over paid records flagged late
//	CollectionRate: round(Collected / Total * 100), 0 when Total is 0
type PaymentSummary struct {
	Total          decimal.Decimal `json:"total"`
	Collected      decimal.Decimal `json:"collected"`
	Pending        decimal.Decimal `json:"pending"`
	LateTotal      decimal.Decimal `json:"lateTotal"`
	CollectionRate int             `json:"collectionRate"`
}

func SummarizePayments(list []MaintenancePayment) PaymentSummary {
	var sum PaymentSummary
	for _, p := range list {
		sum.Total = sum.Total.Add(p.Amount)
		if p.Status == PaymentPaid {
			sum.Collected = sum.Collected.Add(p.AmountPaid)
			if p.LatePayment {
				sum.LateTotal = sum.LateTotal.Add(p.Amount)
			}
		}
		if p.AmountPaid.IsZero() {
			sum.Pending = sum.Pending.Add(p.Amount)
		}
	}
	sum.CollectionRate = percent(sum.Collected, sum.Total)
	return sum
}

// ListPayments returns payments newest id first. Unpaid payments past their
// due date are moved to overdue and the change is persisted.
func (s *Store) ListPayments(ctx context.Context) ([]MaintenancePayment, PaymentSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payments, err := readCollection[MaintenancePayment](ctx, s, KeyPayments)
	if err != nil {
		return nil, PaymentSummary{}, err
	}
	if n := markOverdue(payments, s.today()); n > 0 {
		if err := writeCollection(ctx, s, KeyPayments, payments); err != nil {
			return nil, PaymentSummary{}, err
		}
		s.logger.Debug("payments marked overdue", "count", n)
	}
	sorted := make([]MaintenancePayment, len(payments))
	copy(sorted, payments)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID > sorted[j].ID })
	return sorted, SummarizePayments(payments), nil
}

func (s *Store) CreatePayment(ctx context.Context, in PaymentInput) (MaintenancePayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	house := houseRef(in.House)
	if house == "" {
		return MaintenancePayment{}, invalid("house", "required")
	}
	if err := validateAmounts(in.Amount, in.AmountPaid); err != nil {
		return MaintenancePayment{}, err
	}

	now := s.now()
	period := PeriodFor(now, s.dueDay)
	from, to := in.FromMonthRaw, in.ToMonthRaw
	if from == "" {
		from = period.Month
	}
	if to == "" {
		to = from
	}
	if err := validateMonths(from, to); err != nil {
		return MaintenancePayment{}, err
	}
	months := in.MonthsCount
	if months <= 0 {
		months = MonthsBetween(from, to)
	}
	due := in.DueDate
	if due == "" {
		due = period.Due
	}
	if !due.Valid() {
		return MaintenancePayment{}, invalid("dueDate", "want YYYY-MM-DD, got %q", due)
	}

	p := MaintenancePayment{
		House:        house,
		Owner:        strings.TrimSpace(in.Owner),
		Amount:       in.Amount,
		AmountPaid:   in.AmountPaid,
		FromMonthRaw: from,
		ToMonthRaw:   to,
		MonthsCount:  months,
		LatePayment:  in.LatePayment,
		DueDate:      due,
		Status:       PaymentStatusFor(in.Amount, in.AmountPaid),
		Method:       in.Method,
		Remarks:      strings.TrimSpace(in.Remarks),
		CreatedAt:    now,
	}
	setMonthLabels(&p)
	if p.AmountPaid.IsPositive() {
		paid := in.PaymentDate
		if paid == "" {
			paid = s.today()
		}
		if !paid.Valid() {
			return MaintenancePayment{}, invalid("paymentDate", "want YYYY-MM-DD, got %q", paid)
		}
		p.PaidDate = &paid
	}
	if p.Status == PaymentPaid {
		p.LatePayment = IsLatePayment(*p.PaidDate, s.lateAfterDay)
	}

	payments, err := readCollection[MaintenancePayment](ctx, s, KeyPayments)
	if err != nil {
		return MaintenancePayment{}, err
	}
	p.ID = nextIntID(payments, func(p MaintenancePayment) int { return p.ID })
	payments = append(payments, p)
	if err := writeCollection(ctx, s, KeyPayments, payments); err != nil {
		return MaintenancePayment{}, err
	}

	income := decimal.Zero
	if p.AmountPaid.IsPositive() {
		income = p.AmountPaid
	}
	s.record(ctx, ActivityEntry{
		Type:     KindPayment,
		Action:   ActionCreate,
		Summary:  "Payment record for " + p.House + " (" + p.MonthRange + ") created",
		Amount:   signed(income),
		EntityID: strconv.Itoa(p.ID),
		Meta: map[string]any{
			"amount":     p.Amount,
			"amountPaid": p.AmountPaid,
			"status":     p.Status,
		},
	})
	return p, nil
}

// UpdatePayment merges p into the payment. Status is re-derived whenever an
// amount changes; completing a payment sets latePayment from its paid date
// unless the patch sets latePayment itself.
func (s *Store) UpdatePayment(ctx context.Context, id int, patch PaymentPatch) (MaintenancePayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payments, err := readCollection[MaintenancePayment](ctx, s, KeyPayments)
	if err != nil {
		return MaintenancePayment{}, err
	}
	idx := -1
	for i, p := range payments {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return MaintenancePayment{}, notFound(KindPayment, strconv.Itoa(id))
	}
	prev := payments[idx]
	p := prev

	if patch.House != nil {
		p.House = houseRef(*patch.House)
		if p.House == "" {
			return MaintenancePayment{}, invalid("house", "required")
		}
	}
	if patch.Owner != nil {
		p.Owner = strings.TrimSpace(*patch.Owner)
	}
	amountsChanged := patch.Amount != nil || patch.AmountPaid != nil
	if patch.Amount != nil {
		p.Amount = *patch.Amount
	}
	if patch.AmountPaid != nil {
		p.AmountPaid = *patch.AmountPaid
	}
	if amountsChanged {
		if err := validateAmounts(p.Amount, p.AmountPaid); err != nil {
			return MaintenancePayment{}, err
		}
		p.Status = PaymentStatusFor(p.Amount, p.AmountPaid)
	}
	if patch.FromMonthRaw != nil || patch.ToMonthRaw != nil {
		if patch.FromMonthRaw != nil {
			p.FromMonthRaw = *patch.FromMonthRaw
		}
		if patch.ToMonthRaw != nil {
			p.ToMonthRaw = *patch.ToMonthRaw
		}
		if err := validateMonths(p.FromMonthRaw, p.ToMonthRaw); err != nil {
			return MaintenancePayment{}, err
		}
		p.MonthsCount = MonthsBetween(p.FromMonthRaw, p.ToMonthRaw)
		setMonthLabels(&p)
	}
	if patch.MonthsCount != nil {
		p.MonthsCount = *patch.MonthsCount
	}
	if patch.DueDate != nil {
		if !patch.DueDate.Valid() {
			return MaintenancePayment{}, invalid("dueDate", "want YYYY-MM-DD, got %q", *patch.DueDate)
		}
		p.DueDate = *patch.DueDate
	}
	if patch.PaidDate != nil {
		if !patch.PaidDate.Valid() {
			return MaintenancePayment{}, invalid("paidDate", "want YYYY-MM-DD, got %q", *patch.PaidDate)
		}
		paid := *patch.PaidDate
		p.PaidDate = &paid
	}
	switch {
	case p.AmountPaid.IsZero():
		p.PaidDate = nil
	case p.PaidDate == nil:
		today := s.today()
		p.PaidDate = &today
	}
	if patch.Method != nil {
		method := strings.TrimSpace(*patch.Method)
		p.Method = &method
	}
	if patch.Remarks != nil {
		p.Remarks = strings.TrimSpace(*patch.Remarks)
	}

	switch {
	case patch.LatePayment != nil:
		p.LatePayment = *patch.LatePayment
	case p.Status == PaymentPaid && (prev.Status != PaymentPaid || patch.PaidDate != nil):
		p.LatePayment = IsLatePayment(*p.PaidDate, s.lateAfterDay)
	}

	now := s.now()
	p.UpdatedAt = &now
	payments[idx] = p
	if err := writeCollection(ctx, s, KeyPayments, payments); err != nil {
		return MaintenancePayment{}, err
	}

	s.record(ctx, ActivityEntry{
		Type:     KindPayment,
		Action:   ActionUpdate,
		Summary:  "Payment " + strconv.Itoa(p.ID) + " updated (" + string(p.Status) + ")",
		Amount:   signed(p.AmountPaid.Sub(prev.AmountPaid)),
		EntityID: strconv.Itoa(p.ID),
		Meta:     map[string]any{"changes": patch},
	})
	return p, nil
}

func (s *Store) DeletePayment(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payments, err := readCollection[MaintenancePayment](ctx, s, KeyPayments)
	if err != nil {
		return err
	}
	idx := -1
	for i, p := range payments {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return notFound(KindPayment, strconv.Itoa(id))
	}
	removed := payments[idx]
	payments = append(payments[:idx], payments[idx+1:]...)
	if err := writeCollection(ctx, s, KeyPayments, payments); err != nil {
		return err
	}

	s.record(ctx, ActivityEntry{
		Type:     KindPayment,
		Action:   ActionDelete,
		Summary:  "Payment " + strconv.Itoa(removed.ID) + " deleted",
		EntityID: strconv.Itoa(removed.ID),
		Meta:     map[string]any{"house": removed.House, "month": removed.Month},
	})
	return nil
}

func setMonthLabels(p *MaintenancePayment) {
	p.FromMonth = p.FromMonthRaw.Label()
	p.ToMonth = p.ToMonthRaw.Label()
	p.Month = p.FromMonth
	p.MonthRange = RangeLabel(p.FromMonthRaw, p.ToMonthRaw)
}

func validateMonths(from, to Month) error {
	if !from.Valid() {
		return invalid("fromMonthRaw", "want YYYY-MM, got %q", from)
	}
	if !to.Valid() {
		return invalid("toMonthRaw", "want YYYY-MM, got %q", to)
	}
	if to < from {
		return invalid("toMonthRaw", "%s is before %s", to, from)
	}
	return nil
}
