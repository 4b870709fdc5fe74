/*
handlers.go - HTTP API handlers for the society store

PURPOSE:
  Exposes society.Store via REST. Handlers decode the request, call one
  store operation and encode the result. No domain logic lives here.

ENDPOINTS:
  Houses ({key} is the house id or its house number):
    GET    /api/houses                List with summary
    POST   /api/houses                Create
    PUT    /api/houses/{key}          Patch
    DELETE /api/houses/{key}          Delete

  Members, Vehicles:
    GET    /api/members               List
    POST   /api/members               Create
    PUT    /api/members/{id}          Patch
    DELETE /api/members/{id}          Delete
    (same for /api/vehicles)

  Payments, Expenditures ({id} is an integer):
    GET    /api/payments              List with summary (marks overdue)
    POST   /api/payments              Create
    POST   /api/payments/generate     Bill occupied houses for this month
    PUT    /api/payments/{id}         Patch
    DELETE /api/payments/{id}         Delete
    (CRUD only for /api/expenditures)

  Activity and reports:
    GET    /api/activity              Audit trail, newest first
    GET    /api/reports               Generated reports log with stats
    POST   /api/reports               Record a generated report

  Backup:
    GET    /api/backup/export         Snapshot document
    POST   /api/backup/import?mode=   Import (replace | merge)
    POST   /api/backup/reset          Clear the five collections
    POST   /api/backup/seed           Seed demo data into empty collections

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Duplicate house or vehicle number
  - 500: Storage errors

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Envelopes
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/warp/society-engine/society"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store         *society.Store
	DefaultAmount decimal.Decimal
	Metrics       *Metrics
	Logger        *slog.Logger
}

// NewHandler creates a handler over store. Generation without an explicit
// amount bills defaultAmount.
func NewHandler(store *society.Store, defaultAmount decimal.Decimal) *Handler {
	return &Handler{
		Store:         store,
		DefaultAmount: defaultAmount,
		Logger:        slog.Default(),
	}
}

// =============================================================================
// HOUSE HANDLERS
// =============================================================================

func (h *Handler) ListHouses(w http.ResponseWriter, r *http.Request) {
	list, summary, err := h.Store.ListHouses(r.Context())
	if err != nil {
		h.storeError(w, "Failed to list houses", err)
		return
	}
	writeJSON(w, http.StatusOK, HouseListResponse{List: list, Summary: summary})
}

func (h *Handler) CreateHouse(w http.ResponseWriter, r *http.Request) {
	var in society.HouseInput
	if !decode(w, r, &in) {
		return
	}
	house, err := h.Store.CreateHouse(r.Context(), in)
	if err != nil {
		h.storeError(w, "Failed to create house", err)
		return
	}
	writeJSON(w, http.StatusCreated, house)
}

func (h *Handler) UpdateHouse(w http.ResponseWriter, r *http.Request) {
	var patch society.HousePatch
	if !decode(w, r, &patch) {
		return
	}
	house, err := h.Store.UpdateHouse(r.Context(), chi.URLParam(r, "key"), patch)
	if err != nil {
		h.storeError(w, "Failed to update house", err)
		return
	}
	writeJSON(w, http.StatusOK, house)
}

func (h *Handler) DeleteHouse(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteHouse(r.Context(), chi.URLParam(r, "key")); err != nil {
		h.storeError(w, "Failed to delete house", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// MEMBER HANDLERS
// =============================================================================

func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	list, err := h.Store.ListMembers(r.Context())
	if err != nil {
		h.storeError(w, "Failed to list members", err)
		return
	}
	writeJSON(w, http.StatusOK, MemberListResponse{List: list})
}

func (h *Handler) CreateMember(w http.ResponseWriter, r *http.Request) {
	var in society.MemberInput
	if !decode(w, r, &in) {
		return
	}
	m, err := h.Store.CreateMember(r.Context(), in)
	if err != nil {
		h.storeError(w, "Failed to create member", err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *Handler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	var patch society.MemberPatch
	if !decode(w, r, &patch) {
		return
	}
	m, err := h.Store.UpdateMember(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.storeError(w, "Failed to update member", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handler) DeleteMember(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteMember(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.storeError(w, "Failed to delete member", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// VEHICLE HANDLERS
// =============================================================================

func (h *Handler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	list, err := h.Store.ListVehicles(r.Context())
	if err != nil {
		h.storeError(w, "Failed to list vehicles", err)
		return
	}
	writeJSON(w, http.StatusOK, VehicleListResponse{List: list})
}

func (h *Handler) CreateVehicle(w http.ResponseWriter, r *http.Request) {
	var in society.VehicleInput
	if !decode(w, r, &in) {
		return
	}
	v, err := h.Store.CreateVehicle(r.Context(), in)
	if err != nil {
		h.storeError(w, "Failed to create vehicle", err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *Handler) UpdateVehicle(w http.ResponseWriter, r *http.Request) {
	var patch society.VehiclePatch
	if !decode(w, r, &patch) {
		return
	}
	v, err := h.Store.UpdateVehicle(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.storeError(w, "Failed to update vehicle", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) DeleteVehicle(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteVehicle(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.storeError(w, "Failed to delete vehicle", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	list, summary, err := h.Store.ListPayments(r.Context())
	if err != nil {
		h.storeError(w, "Failed to list payments", err)
		return
	}
	writeJSON(w, http.StatusOK, PaymentListResponse{List: list, Summary: summary})
}

func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var in society.PaymentInput
	if !decode(w, r, &in) {
		return
	}
	p, err := h.Store.CreatePayment(r.Context(), in)
	if err != nil {
		h.storeError(w, "Failed to create payment", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r)
	if !ok {
		return
	}
	var patch society.PaymentPatch
	if !decode(w, r, &patch) {
		return
	}
	p, err := h.Store.UpdatePayment(r.Context(), id, patch)
	if err != nil {
		h.storeError(w, "Failed to update payment", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r)
	if !ok {
		return
	}
	if err := h.Store.DeletePayment(r.Context(), id); err != nil {
		h.storeError(w, "Failed to delete payment", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GeneratePayments bills every occupied house for the current month.
// An empty body uses the configured default amount.
func (h *Handler) GeneratePayments(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	amount := h.DefaultAmount
	if req.Amount != nil {
		amount = *req.Amount
	}
	n, err := h.Store.GenerateMonthlyPayments(r.Context(), amount)
	if err != nil {
		h.storeError(w, "Failed to generate payments", err)
		return
	}
	h.Metrics.PaymentsGenerated(n)
	writeJSON(w, http.StatusOK, GenerateResponse{Created: n})
}

// =============================================================================
// EXPENDITURE HANDLERS
// =============================================================================

func (h *Handler) ListExpenditures(w http.ResponseWriter, r *http.Request) {
	list, summary, err := h.Store.ListExpenditures(r.Context())
	if err != nil {
		h.storeError(w, "Failed to list expenditures", err)
		return
	}
	writeJSON(w, http.StatusOK, ExpenditureListResponse{List: list, Summary: summary})
}

func (h *Handler) CreateExpenditure(w http.ResponseWriter, r *http.Request) {
	var in society.ExpenditureInput
	if !decode(w, r, &in) {
		return
	}
	e, err := h.Store.CreateExpenditure(r.Context(), in)
	if err != nil {
		h.storeError(w, "Failed to create expenditure", err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (h *Handler) UpdateExpenditure(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r)
	if !ok {
		return
	}
	var patch society.ExpenditurePatch
	if !decode(w, r, &patch) {
		return
	}
	e, err := h.Store.UpdateExpenditure(r.Context(), id, patch)
	if err != nil {
		h.storeError(w, "Failed to update expenditure", err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *Handler) DeleteExpenditure(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r)
	if !ok {
		return
	}
	if err := h.Store.DeleteExpenditure(r.Context(), id); err != nil {
		h.storeError(w, "Failed to delete expenditure", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ACTIVITY / REPORT HANDLERS
// =============================================================================

func (h *Handler) ListActivity(w http.ResponseWriter, r *http.Request) {
	list, err := h.Store.Activity(r.Context())
	if err != nil {
		h.storeError(w, "Failed to read activity log", err)
		return
	}
	writeJSON(w, http.StatusOK, ActivityListResponse{List: list})
}

func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	list, stats, err := h.Store.ListReports(r.Context())
	if err != nil {
		h.storeError(w, "Failed to read reports log", err)
		return
	}
	writeJSON(w, http.StatusOK, ReportListResponse{List: list, Stats: stats})
}

func (h *Handler) RecordReport(w http.ResponseWriter, r *http.Request) {
	var in society.ReportInput
	if !decode(w, r, &in) {
		return
	}
	entry, err := h.Store.RecordReport(r.Context(), in)
	if err != nil {
		h.storeError(w, "Failed to record report", err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// =============================================================================
// BACKUP HANDLERS
// =============================================================================

func (h *Handler) ExportSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Store.ExportSnapshot(r.Context())
	if err != nil {
		h.storeError(w, "Failed to export", err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="society-backup.json"`)
	writeJSON(w, http.StatusOK, snap)
}

// ImportSnapshot reads a snapshot document from the body. ?mode=merge keeps
// existing records; the default replaces everything.
func (h *Handler) ImportSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := society.DecodeSnapshot(r.Body)
	if err != nil {
		h.storeError(w, "Invalid snapshot", err)
		return
	}
	mode := society.ImportMode(r.URL.Query().Get("mode"))
	if mode == "" {
		mode = society.ImportReplace
	}
	counts, err := h.Store.ImportSnapshot(r.Context(), snap, society.ImportOptions{Mode: mode})
	if err != nil {
		h.storeError(w, "Failed to import", err)
		return
	}
	writeJSON(w, http.StatusOK, ImportResponse{Mode: mode, Counts: counts})
}

func (h *Handler) ResetAll(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.ResetAll(r.Context()); err != nil {
		h.storeError(w, "Failed to reset", err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "All collections cleared"})
}

func (h *Handler) SeedDemo(w http.ResponseWriter, r *http.Request) {
	counts, err := h.Store.SeedDemo(r.Context())
	if err != nil {
		h.storeError(w, "Failed to seed", err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// storeError maps store errors onto HTTP status codes.
func (h *Handler) storeError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, society.ErrNotFound):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, society.ErrDuplicateKey):
		writeError(w, http.StatusConflict, message, err)
	case errors.Is(err, society.ErrValidation):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.Logger.Error(message, "error", err)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

func intParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id", err)
		return 0, false
	}
	return id, true
}
