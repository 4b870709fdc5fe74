/*
dto.go - Request and response envelopes for the HTTP API

PURPOSE:
  Entities travel as the society types themselves; their JSON tags are the
  persisted shape. This file only holds the wrappers around them.

NAMING CONVENTION:
  - *Response: list envelopes and operation results
  - *Request:  request bodies that are not an entity input or patch

SEE ALSO:
  - handlers.go: Uses these types
  - society/types.go: Entity, input and patch types
*/
package api

import (
	"github.com/shopspring/decimal"
	"github.com/warp/society-engine/society"
)

// =============================================================================
// LIST ENVELOPES
// =============================================================================

type HouseListResponse struct {
	List    []society.House      `json:"list"`
	Summary society.HouseSummary `json:"summary"`
}

type MemberListResponse struct {
	List []society.Member `json:"list"`
}

type VehicleListResponse struct {
	List []society.Vehicle `json:"list"`
}

type PaymentListResponse struct {
	List    []society.MaintenancePayment `json:"list"`
	Summary society.PaymentSummary       `json:"summary"`
}

type ExpenditureListResponse struct {
	List    []society.Expenditure      `json:"list"`
	Summary society.ExpenditureSummary `json:"summary"`
}

type ActivityListResponse struct {
	List []society.ActivityEntry `json:"list"`
}

type ReportListResponse struct {
	List  []society.ReportEntry `json:"list"`
	Stats society.ReportStats   `json:"stats"`
}

// =============================================================================
// OPERATIONS
// =============================================================================

// GenerateRequest overrides the configured default amount when Amount is set.
type GenerateRequest struct {
	Amount *decimal.Decimal `json:"amount,omitempty"`
}

type GenerateResponse struct {
	Created int `json:"created"`
}

type ImportResponse struct {
	Mode   society.ImportMode   `json:"mode"`
	Counts society.ImportCounts `json:"counts"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
