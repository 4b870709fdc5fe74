/*
Package society provides the community administration engine.

PURPOSE:
  A durable entity store for a housing society: houses, members, vehicles,
  recurring maintenance payments and expenditures, plus an audit trail.
  Collections live in an opaque key->bytes medium (see kv.go). Each operation
  reads a full collection, applies its change, and rewrites the collection.

KEY CONCEPTS IN THIS FILE (types.go):
  - House, Member, Vehicle: resident records keyed by opaque ids
  - MaintenancePayment, Expenditure: money records keyed by sequential ints
  - Patch structs: explicit optional fields for partial updates

DERIVED FIELDS:
  House.MembersCount, House.VehiclesCount, House.Status and House.OwnerName are
  views over the Member and Vehicle collections. MaintenancePayment.Status is a
  function of the amounts and the due date. Neither is trusted as input.

SEE ALSO:
  - store.go: Store handle and collection IO
  - reconcile.go: view recomputation
  - snapshot.go: export / import
*/
package society

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ENUMS
// =============================================================================

type HouseStatus string

const (
	HouseVacant      HouseStatus = "vacant"
	HouseOccupied    HouseStatus = "occupied"
	HouseMaintenance HouseStatus = "maintenance"
)

func (s HouseStatus) Valid() bool {
	return s == HouseVacant || s == HouseOccupied || s == HouseMaintenance
}

type MemberRole string

const (
	RoleOwner        MemberRole = "Owner"
	RoleTenant       MemberRole = "Tenant"
	RoleFamilyMember MemberRole = "Family Member"
)

func (r MemberRole) Valid() bool {
	return r == RoleOwner || r == RoleTenant || r == RoleFamilyMember
}

// Relationship is the finer-grained household label of a member.
type Relationship string

const (
	RelOwner    Relationship = "Owner"
	RelFather   Relationship = "Father"
	RelMother   Relationship = "Mother"
	RelSon      Relationship = "Son"
	RelDaughter Relationship = "Daughter"
	RelSpouse   Relationship = "Spouse"
	RelOther    Relationship = "Other"
)

func (r Relationship) Valid() bool {
	switch r {
	case RelOwner, RelFather, RelMother, RelSon, RelDaughter, RelSpouse, RelOther:
		return true
	}
	return false
}

// ActiveStatus is shared by members and vehicles.
type ActiveStatus string

const (
	StatusActive   ActiveStatus = "active"
	StatusInactive ActiveStatus = "inactive"
)

func (s ActiveStatus) Valid() bool { return s == StatusActive || s == StatusInactive }

type VehicleType string

const (
	TwoWheeler  VehicleType = "Two Wheeler"
	FourWheeler VehicleType = "Four Wheeler"
)

func (t VehicleType) Valid() bool { return t == TwoWheeler || t == FourWheeler }

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
	PaymentOverdue PaymentStatus = "overdue"
)

type ExpenseCategory string

const (
	CategorySecurity       ExpenseCategory = "Security"
	CategoryCleaning       ExpenseCategory = "Cleaning"
	CategoryRepairs        ExpenseCategory = "Repairs"
	CategoryUtilities      ExpenseCategory = "Utilities"
	CategoryEvents         ExpenseCategory = "Events"
	CategoryMaintenance    ExpenseCategory = "Maintenance"
	CategoryAdministration ExpenseCategory = "Administration"
	CategoryOther          ExpenseCategory = "Other"
)

func (c ExpenseCategory) Valid() bool {
	switch c {
	case CategorySecurity, CategoryCleaning, CategoryRepairs, CategoryUtilities,
		CategoryEvents, CategoryMaintenance, CategoryAdministration, CategoryOther:
		return true
	}
	return false
}

type PaymentMode string

const (
	ModeCash           PaymentMode = "Cash"
	ModeBank           PaymentMode = "Bank"
	ModeOnline         PaymentMode = "Online"
	ModeVendorTransfer PaymentMode = "Vendor Transfer"
)

func (m PaymentMode) Valid() bool {
	return m == ModeCash || m == ModeBank || m == ModeOnline || m == ModeVendorTransfer
}

// =============================================================================
// HOUSE
// =============================================================================

type House struct {
	ID            string      `json:"id"`
	HouseNo       string      `json:"houseNo"`
	Block         string      `json:"block"`
	Floor         Floor       `json:"floor"`
	Status        HouseStatus `json:"status"`
	Notes         string      `json:"notes,omitempty"`
	OwnerName     string      `json:"ownerName,omitempty"`
	MembersCount  int         `json:"membersCount"`
	VehiclesCount int         `json:"vehiclesCount"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// Floor is a free-form floor label. Older documents store it as a number.
type Floor string

func (f *Floor) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = Floor(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = Floor(n.String())
	return nil
}

func FloorOf(n int) Floor { return Floor(strconv.Itoa(n)) }

type HouseInput struct {
	HouseNo       string      `json:"houseNo,omitempty"`
	Block         string      `json:"block,omitempty"`
	Floor         Floor       `json:"floor,omitempty"`
	Status        HouseStatus `json:"status,omitempty"`
	Notes         string      `json:"notes,omitempty"`
	MembersCount  int         `json:"membersCount,omitempty"`
	VehiclesCount int         `json:"vehiclesCount,omitempty"`
}

// HousePatch lists every updatable house field. Nil means unchanged.
type HousePatch struct {
	HouseNo       *string      `json:"houseNo,omitempty"`
	Block         *string      `json:"block,omitempty"`
	Floor         *Floor       `json:"floor,omitempty"`
	Status        *HouseStatus `json:"status,omitempty"`
	Notes         *string      `json:"notes,omitempty"`
	MembersCount  *int         `json:"membersCount,omitempty"`
	VehiclesCount *int         `json:"vehiclesCount,omitempty"`
}

// HouseSummary is returned alongside the house list.
type HouseSummary struct {
	Total    int `json:"total"`
	Occupied int `json:"occupied"`
	Vacant   int `json:"vacant"`
}

// =============================================================================
// MEMBER
// =============================================================================

type Member struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	House        string       `json:"house"` // soft reference to House.HouseNo, may dangle
	Role         MemberRole   `json:"role"`
	Relationship Relationship `json:"relationship"`
	Phone        string       `json:"phone"`
	Email        string       `json:"email,omitempty"`
	Status       ActiveStatus `json:"status"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

type MemberInput struct {
	Name         string       `json:"name,omitempty"`
	House        string       `json:"house,omitempty"`
	Role         MemberRole   `json:"role,omitempty"`
	Relationship Relationship `json:"relationship,omitempty"`
	Phone        string       `json:"phone,omitempty"`
	Email        string       `json:"email,omitempty"`
	Status       ActiveStatus `json:"status,omitempty"`
}

type MemberPatch struct {
	Name         *string       `json:"name,omitempty"`
	House        *string       `json:"house,omitempty"`
	Role         *MemberRole   `json:"role,omitempty"`
	Relationship *Relationship `json:"relationship,omitempty"`
	Phone        *string       `json:"phone,omitempty"`
	Email        *string       `json:"email,omitempty"`
	Status       *ActiveStatus `json:"status,omitempty"`
}

// =============================================================================
// VEHICLE
// =============================================================================

type Vehicle struct {
	ID               string       `json:"id"`
	Number           string       `json:"number"`
	Type             VehicleType  `json:"type"`
	BrandModel       string       `json:"brandModel,omitempty"`
	Color            string       `json:"color,omitempty"`
	OwnerName        string       `json:"ownerName,omitempty"`
	House            string       `json:"house"` // soft reference to House.HouseNo, may dangle
	RegistrationDate Date         `json:"registrationDate,omitempty"`
	Status           ActiveStatus `json:"status,omitempty"`
	CreatedAt        time.Time    `json:"createdAt"`
	UpdatedAt        time.Time    `json:"updatedAt"`
}

type VehicleInput struct {
	Number           string       `json:"number,omitempty"`
	Type             VehicleType  `json:"type,omitempty"`
	BrandModel       string       `json:"brandModel,omitempty"`
	Color            string       `json:"color,omitempty"`
	OwnerName        string       `json:"ownerName,omitempty"`
	House            string       `json:"house,omitempty"`
	RegistrationDate Date         `json:"registrationDate,omitempty"`
	Status           ActiveStatus `json:"status,omitempty"`
}

type VehiclePatch struct {
	Number           *string       `json:"number,omitempty"`
	Type             *VehicleType  `json:"type,omitempty"`
	BrandModel       *string       `json:"brandModel,omitempty"`
	Color            *string       `json:"color,omitempty"`
	OwnerName        *string       `json:"ownerName,omitempty"`
	House            *string       `json:"house,omitempty"`
	RegistrationDate *Date         `json:"registrationDate,omitempty"`
	Status           *ActiveStatus `json:"status,omitempty"`
}

// =============================================================================
// MAINTENANCE PAYMENT
// =============================================================================

type MaintenancePayment struct {
	ID           int             `json:"id"`
	House        string          `json:"house"`
	Owner        string          `json:"owner"`
	Amount       decimal.Decimal `json:"amount"`
	AmountPaid   decimal.Decimal `json:"amountPaid"`
	Month        string          `json:"month"`
	MonthRange   string          `json:"monthRange,omitempty"`
	FromMonth    string          `json:"fromMonth,omitempty"`
	ToMonth      string          `json:"toMonth,omitempty"`
	FromMonthRaw Month           `json:"fromMonthRaw,omitempty"`
	ToMonthRaw   Month           `json:"toMonthRaw,omitempty"`
	MonthsCount  int             `json:"monthsCount,omitempty"`
	LatePayment  bool            `json:"latePayment"`
	DueDate      Date            `json:"dueDate"`
	PaidDate     *Date           `json:"paidDate"`
	Status       PaymentStatus   `json:"status"`
	Method       *string         `json:"method"`
	Remarks      string          `json:"remarks,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    *time.Time      `json:"updatedAt,omitempty"`
}

type PaymentInput struct {
	House        string          `json:"house,omitempty"`
	Owner        string          `json:"owner,omitempty"`
	Amount       decimal.Decimal `json:"amount,omitempty"`
	AmountPaid   decimal.Decimal `json:"amountPaid,omitempty"`
	FromMonthRaw Month           `json:"fromMonthRaw,omitempty"`
	ToMonthRaw   Month           `json:"toMonthRaw,omitempty"`
	// MonthsCount of 0 derives the inclusive span.
	MonthsCount int  `json:"monthsCount,omitempty"`
	LatePayment bool `json:"latePayment,omitempty"`
	// DueDate defaults to the configured due day of the current month.
	DueDate Date `json:"dueDate,omitempty"`
	// PaymentDate becomes paidDate when AmountPaid > 0. Defaults to today.
	PaymentDate Date    `json:"paymentDate,omitempty"`
	Method      *string `json:"method,omitempty"`
	Remarks     string  `json:"remarks,omitempty"`
}

// PaymentPatch has no Status field: status is always derived.
type PaymentPatch struct {
	House        *string          `json:"house,omitempty"`
	Owner        *string          `json:"owner,omitempty"`
	Amount       *decimal.Decimal `json:"amount,omitempty"`
	AmountPaid   *decimal.Decimal `json:"amountPaid,omitempty"`
	FromMonthRaw *Month           `json:"fromMonthRaw,omitempty"`
	ToMonthRaw   *Month           `json:"toMonthRaw,omitempty"`
	MonthsCount  *int             `json:"monthsCount,omitempty"`
	LatePayment  *bool            `json:"latePayment,omitempty"`
	DueDate      *Date            `json:"dueDate,omitempty"`
	PaidDate     *Date            `json:"paidDate,omitempty"`
	Method       *string          `json:"method,omitempty"`
	Remarks      *string          `json:"remarks,omitempty"`
}

// =============================================================================
// EXPENDITURE
// =============================================================================

type Expenditure struct {
	ID             int             `json:"id"`
	Title          string          `json:"title"`
	Category       ExpenseCategory `json:"category"`
	Amount         decimal.Decimal `json:"amount"`
	PaymentMode    PaymentMode     `json:"paymentMode"`
	Date           Date            `json:"date"`
	Description    string          `json:"description,omitempty"`
	AttachmentName string          `json:"attachmentName,omitempty"`
	AttachmentData string          `json:"attachmentData,omitempty"` // base64
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      *time.Time      `json:"updatedAt,omitempty"`
}

type ExpenditureInput struct {
	Title          string          `json:"title,omitempty"`
	Category       ExpenseCategory `json:"category,omitempty"`
	Amount         decimal.Decimal `json:"amount,omitempty"`
	PaymentMode    PaymentMode     `json:"paymentMode,omitempty"`
	Date           Date            `json:"date,omitempty"`
	Description    string          `json:"description,omitempty"`
	AttachmentName string          `json:"attachmentName,omitempty"`
	AttachmentData string          `json:"attachmentData,omitempty"`
}

type ExpenditurePatch struct {
	Title          *string          `json:"title,omitempty"`
	Category       *ExpenseCategory `json:"category,omitempty"`
	Amount         *decimal.Decimal `json:"amount,omitempty"`
	PaymentMode    *PaymentMode     `json:"paymentMode,omitempty"`
	Date           *Date            `json:"date,omitempty"`
	Description    *string          `json:"description,omitempty"`
	AttachmentName *string          `json:"attachmentName,omitempty"`
	AttachmentData *string          `json:"attachmentData,omitempty"`
}
