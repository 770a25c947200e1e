package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"station-ops/internal/audit"
	"station-ops/internal/auth"
	handoverapp "station-ops/internal/handover/application"
	handover "station-ops/internal/handover/domain"
	"station-ops/internal/observability/metrics"
	reconcileapp "station-ops/internal/reconcile/application"
)

// Handler provides shift handover APIs. Fuel volumes come from the stored
// meter readings; the client supplies prices, stock counts and cash.
type Handler struct {
	service   *handoverapp.Service
	reconcile *reconcileapp.Service
	auditor   audit.Logger
}

// NewHandler constructs a handler. The auditor may be nil.
func NewHandler(service *handoverapp.Service, reconcile *reconcileapp.Service, auditor audit.Logger) (*Handler, error) {
	if service == nil || reconcile == nil {
		return nil, errors.New("handover handler: nil dependency")
	}
	return &Handler{service: service, reconcile: reconcile, auditor: auditor}, nil
}

// ServeHTTP routes handover endpoints.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/handovers" && r.Method == http.MethodPost:
		h.handleSubmit(w, r)
	case r.URL.Path == "/api/v1/handovers" && r.Method == http.MethodGet:
		h.handleList(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type lpgCountDTO struct {
	SizeKg            int    `json:"size_kg"`
	OpeningFull       int    `json:"opening_full"`
	OpeningEmpty      int    `json:"opening_empty"`
	Additions         int    `json:"additions"`
	ClosingFull       int    `json:"closing_full"`
	ClosingEmpty      int    `json:"closing_empty"`
	SoldRefill        int    `json:"sold_refill"`
	SoldWithCylinder  int    `json:"sold_with_cylinder"`
	RefillPrice       string `json:"refill_price"`
	WithCylinderPrice string `json:"with_cylinder_price"`
}

type stockCountDTO struct {
	ItemID    string `json:"item_id"`
	Name      string `json:"name,omitempty"`
	Opening   int    `json:"opening"`
	Additions int    `json:"additions"`
	Closing   int    `json:"closing"`
	UnitPrice string `json:"unit_price"`
}

type submitRequest struct {
	ShiftID     string            `json:"shift_id"`
	AttendantID string            `json:"attendant_id"`
	FuelPrices  map[string]string `json:"fuel_prices"`
	LPG         []lpgCountDTO     `json:"lpg,omitempty"`
	Lubricants  []stockCountDTO   `json:"lubricants,omitempty"`
	Accessories []stockCountDTO   `json:"accessories,omitempty"`
	CreditSales string            `json:"credit_sales,omitempty"`
	ActualCash  string            `json:"actual_cash"`
	DryRun      bool              `json:"dry_run,omitempty"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.ShiftID == "" || req.AttendantID == "" {
		http.Error(w, "shift_id and attendant_id required", http.StatusBadRequest)
		return
	}

	input, err := h.buildInput(r.Context(), req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.DryRun {
		result := h.service.Preview(input)
		writeJSON(w, http.StatusOK, toHandoverDTO(req.ShiftID, "", result))
		return
	}

	stored, err := h.service.Submit(r.Context(), req.ShiftID, input)
	if err != nil {
		metrics.ObserveHandover("", "error", time.Since(started))
		if errors.Is(err, handoverapp.ErrIncompleteNozzles) || errors.Is(err, handoverapp.ErrInvalidSplit) {
			// The computed row is still returned so the client can show
			// what needs fixing before resubmission.
			body := toHandoverDTO(req.ShiftID, "", stored.Result)
			body["error"] = err.Error()
			writeJSON(w, http.StatusUnprocessableEntity, body)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	metrics.ObserveHandover(string(stored.Status), "success", time.Since(started))
	h.logAudit(r, "submit_handover", req.AttendantID, req.ShiftID)

	writeJSON(w, http.StatusOK, toHandoverDTO(stored.ShiftID, string(stored.Status), stored.Result))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	shiftID := r.URL.Query().Get("shift_id")
	if shiftID == "" {
		http.Error(w, "shift_id required", http.StatusBadRequest)
		return
	}
	stored, err := h.service.ListShift(r.Context(), shiftID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	items := make([]map[string]any, 0, len(stored))
	for _, row := range stored {
		items = append(items, toHandoverDTO(row.ShiftID, string(row.Status), row.Result))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"shift_id": shiftID,
		"items":    items,
	})
}

// buildInput prices the shift's dispense results and converts count DTOs.
func (h *Handler) buildInput(ctx context.Context, req submitRequest) (handover.HandoverInput, error) {
	input := handover.HandoverInput{AttendantID: req.AttendantID}

	dispense, err := h.reconcile.ShiftDispenseResults(ctx, req.ShiftID)
	if err != nil {
		return input, err
	}
	for _, result := range dispense {
		priceRaw, ok := req.FuelPrices[result.NozzleID]
		if !ok {
			return input, errors.New("handover: missing fuel price for nozzle " + result.NozzleID)
		}
		price, err := decimal.NewFromString(priceRaw)
		if err != nil {
			return input, errors.New("handover: invalid fuel price for nozzle " + result.NozzleID)
		}
		input.Nozzles = append(input.Nozzles, handover.NozzleSale{Result: result, PricePerLiter: price})
	}

	for _, dto := range req.LPG {
		refill, err := decimal.NewFromString(dto.RefillPrice)
		if err != nil {
			return input, errors.New("handover: invalid lpg refill_price")
		}
		withCyl, err := decimal.NewFromString(dto.WithCylinderPrice)
		if err != nil {
			return input, errors.New("handover: invalid lpg with_cylinder_price")
		}
		input.LPG = append(input.LPG, handover.LPGCylinderCount{
			SizeKg:            dto.SizeKg,
			OpeningFull:       dto.OpeningFull,
			OpeningEmpty:      dto.OpeningEmpty,
			Additions:         dto.Additions,
			ClosingFull:       dto.ClosingFull,
			ClosingEmpty:      dto.ClosingEmpty,
			SoldRefill:        dto.SoldRefill,
			SoldWithCylinder:  dto.SoldWithCylinder,
			RefillPrice:       refill,
			WithCylinderPrice: withCyl,
		})
	}
	input.Lubricants, err = toStockCounts(req.Lubricants)
	if err != nil {
		return input, err
	}
	input.Accessories, err = toStockCounts(req.Accessories)
	if err != nil {
		return input, err
	}

	if req.CreditSales != "" {
		input.CreditSales, err = decimal.NewFromString(req.CreditSales)
		if err != nil {
			return input, errors.New("handover: invalid credit_sales")
		}
	}
	if req.ActualCash != "" {
		input.ActualCash, err = decimal.NewFromString(req.ActualCash)
		if err != nil {
			return input, errors.New("handover: invalid actual_cash")
		}
	}
	return input, nil
}

func toStockCounts(dtos []stockCountDTO) ([]handover.StockItemCount, error) {
	var counts []handover.StockItemCount
	for _, dto := range dtos {
		price, err := decimal.NewFromString(dto.UnitPrice)
		if err != nil {
			return nil, errors.New("handover: invalid unit_price for item " + dto.ItemID)
		}
		counts = append(counts, handover.StockItemCount{
			ItemID:    dto.ItemID,
			Name:      dto.Name,
			Opening:   dto.Opening,
			Additions: dto.Additions,
			Closing:   dto.Closing,
			UnitPrice: price,
		})
	}
	return counts, nil
}

func toHandoverDTO(shiftID, status string, result handover.HandoverResult) map[string]any {
	excluded := make([]map[string]any, 0, len(result.ExcludedNozzles))
	for _, nozzle := range result.ExcludedNozzles {
		entry := map[string]any{
			"nozzle_id": nozzle.NozzleID,
			"tank_id":   nozzle.TankID,
		}
		if nozzle.Reason != nil {
			entry["reason"] = nozzle.Reason.Error()
		}
		excluded = append(excluded, entry)
	}
	lpg := make([]map[string]any, 0, len(result.LPGMovements))
	for _, movement := range result.LPGMovements {
		lpg = append(lpg, map[string]any{
			"size_kg":       movement.SizeKg,
			"total_sold":    movement.TotalSold,
			"value":         movement.Value.String(),
			"split_valid":   movement.SplitValid,
			"count_suspect": movement.CountSuspect,
		})
	}
	dto := map[string]any{
		"shift_id":         shiftID,
		"attendant_id":     result.AttendantID,
		"fuel_revenue":     result.FuelRevenue.String(),
		"lpg_sales":        result.LPGSales.String(),
		"lubricant_sales":  result.LubricantSales.String(),
		"accessory_sales":  result.AccessorySales.String(),
		"total_expected":   result.TotalExpected.String(),
		"credit_sales":     result.CreditSales.String(),
		"expected_cash":    result.ExpectedCash.String(),
		"actual_cash":      result.ActualCash.String(),
		"difference":       result.Difference.String(),
		"excluded_nozzles": excluded,
		"lpg_movements":    lpg,
		"lubricants":       toMovementDTOs(result.Lubricant),
		"accessories":      toMovementDTOs(result.Accessory),
	}
	if status != "" {
		dto["status"] = status
	}
	return dto
}

func toMovementDTOs(movements []handover.StockMovement) []map[string]any {
	dtos := make([]map[string]any, 0, len(movements))
	for _, movement := range movements {
		dtos = append(dtos, map[string]any{
			"item_id":       movement.ItemID,
			"sold":          movement.Sold,
			"value":         movement.Value.String(),
			"count_suspect": movement.CountSuspect,
		})
	}
	return dtos
}

func (h *Handler) logAudit(r *http.Request, action, attendantID, shiftID string) {
	if h.auditor == nil {
		return
	}
	entry := audit.Entry{
		Actor:        auth.SubjectFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       action,
		ResourceType: "handover",
		ResourceID:   attendantID,
		ShiftID:      shiftID,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	}
	_ = h.auditor.Log(context.WithoutCancel(r.Context()), entry)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
