package society

import (
	"context"
	"encoding/base64"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// EXPENDITURES
// =============================================================================

// ExpenditureSummary balances spending against maintenance collected.
type ExpenditureSummary struct {
	TotalExpenditure  decimal.Decimal                     `json:"totalExpenditure"`
	TotalCollection   decimal.Decimal                     `json:"totalCollection"`
	RemainingBalance  decimal.Decimal                     `json:"remainingBalance"`
	CategoryBreakdown map[ExpenseCategory]decimal.Decimal `json:"categoryBreakdown"`
}

func SummarizeExpenditures(expenditures []Expenditure, payments []MaintenancePayment) ExpenditureSummary {
	sum := ExpenditureSummary{CategoryBreakdown: make(map[ExpenseCategory]decimal.Decimal)}
	for _, e := range expenditures {
		sum.TotalExpenditure = sum.TotalExpenditure.Add(e.Amount)
		sum.CategoryBreakdown[e.Category] = sum.CategoryBreakdown[e.Category].Add(e.Amount)
	}
	for _, p := range payments {
		if p.Status == PaymentPaid {
			sum.TotalCollection = sum.TotalCollection.Add(p.AmountPaid)
		}
	}
	sum.RemainingBalance = sum.TotalCollection.Sub(sum.TotalExpenditure)
	return sum
}

// ListExpenditures returns expenditures newest date first.
func (s *Store) ListExpenditures(ctx context.Context) ([]Expenditure, ExpenditureSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expenditures, err := readCollection[Expenditure](ctx, s, KeyExpenditures)
	if err != nil {
		return nil, ExpenditureSummary{}, err
	}
	payments, err := readCollection[MaintenancePayment](ctx, s, KeyPayments)
	if err != nil {
		return nil, ExpenditureSummary{}, err
	}
	sort.SliceStable(expenditures, func(i, j int) bool { return expenditures[j].Date < expenditures[i].Date })
	return expenditures, SummarizeExpenditures(expenditures, payments), nil
}

func (s *Store) CreateExpenditure(ctx context.Context, in ExpenditureInput) (Expenditure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := Expenditure{
		Title:          strings.TrimSpace(in.Title),
		Category:       in.Category,
		Amount:         in.Amount,
		PaymentMode:    in.PaymentMode,
		Date:           in.Date,
		Description:    strings.TrimSpace(in.Description),
		AttachmentName: strings.TrimSpace(in.AttachmentName),
		AttachmentData: in.AttachmentData,
	}
	if e.Date == "" {
		e.Date = s.today()
	}
	if err := validateExpenditure(e); err != nil {
		return Expenditure{}, err
	}

	expenditures, err := readCollection[Expenditure](ctx, s, KeyExpenditures)
	if err != nil {
		return Expenditure{}, err
	}
	e.ID = nextIntID(expenditures, func(e Expenditure) int { return e.ID })
	e.CreatedAt = s.now()
	expenditures = append(expenditures, e)
	if err := writeCollection(ctx, s, KeyExpenditures, expenditures); err != nil {
		return Expenditure{}, err
	}

	s.record(ctx, ActivityEntry{
		Type:     KindExpenditure,
		Action:   ActionCreate,
		Summary:  "Expense: " + e.Title + " (-" + s.display(e.Amount) + ")",
		Amount:   signed(e.Amount.Neg()),
		EntityID: strconv.Itoa(e.ID),
		Meta:     map[string]any{"category": e.Category},
	})
	return e, nil
}

func (s *Store) UpdateExpenditure(ctx context.Context, id int, p ExpenditurePatch) (Expenditure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expenditures, err := readCollection[Expenditure](ctx, s, KeyExpenditures)
	if err != nil {
		return Expenditure{}, err
	}
	idx := findExpenditure(expenditures, id)
	if idx < 0 {
		return Expenditure{}, notFound(KindExpenditure, strconv.Itoa(id))
	}
	e := expenditures[idx]

	if p.Title != nil {
		e.Title = strings.TrimSpace(*p.Title)
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	if p.PaymentMode != nil {
		e.PaymentMode = *p.PaymentMode
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Description != nil {
		e.Description = strings.TrimSpace(*p.Description)
	}
	if p.AttachmentName != nil {
		e.AttachmentName = strings.TrimSpace(*p.AttachmentName)
	}
	if p.AttachmentData != nil {
		e.AttachmentData = *p.AttachmentData
	}
	if err := validateExpenditure(e); err != nil {
		return Expenditure{}, err
	}
	now := s.now()
	e.UpdatedAt = &now
	expenditures[idx] = e
	if err := writeCollection(ctx, s, KeyExpenditures, expenditures); err != nil {
		return Expenditure{}, err
	}

	s.record(ctx, ActivityEntry{
		Type:     KindExpenditure,
		Action:   ActionUpdate,
		Summary:  "Expense " + strconv.Itoa(e.ID) + " updated",
		EntityID: strconv.Itoa(e.ID),
		Meta:     map[string]any{"changes": p},
	})
	return e, nil
}

func (s *Store) DeleteExpenditure(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expenditures, err := readCollection[Expenditure](ctx, s, KeyExpenditures)
	if err != nil {
		return err
	}
	idx := findExpenditure(expenditures, id)
	if idx < 0 {
		return notFound(KindExpenditure, strconv.Itoa(id))
	}
	removed := expenditures[idx]
	expenditures = append(expenditures[:idx], expenditures[idx+1:]...)
	if err := writeCollection(ctx, s, KeyExpenditures, expenditures); err != nil {
		return err
	}

	s.record(ctx, ActivityEntry{
		Type:     KindExpenditure,
		Action:   ActionDelete,
		Summary:  "Expense " + strconv.Itoa(removed.ID) + " deleted",
		Amount:   signed(decimal.Zero),
		EntityID: strconv.Itoa(removed.ID),
		Meta:     map[string]any{"title": removed.Title},
	})
	return nil
}

func findExpenditure(expenditures []Expenditure, id int) int {
	for i, e := range expenditures {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func validateExpenditure(e Expenditure) error {
	if e.Title == "" {
		return invalid("title", "required")
	}
	if !e.Category.Valid() {
		return invalid("category", "unknown category %q", e.Category)
	}
	if !e.Amount.IsPositive() {
		return invalid("amount", "must be greater than zero")
	}
	if !e.PaymentMode.Valid() {
		return invalid("paymentMode", "unknown payment mode %q", e.PaymentMode)
	}
	if !e.Date.Valid() {
		return invalid("date", "want YYYY-MM-DD, got %q", e.Date)
	}
	if e.AttachmentData != "" {
		if _, err := base64.StdEncoding.DecodeString(e.AttachmentData); err != nil {
			return invalid("attachmentData", "not base64: %v", err)
		}
	}
	return nil
}
