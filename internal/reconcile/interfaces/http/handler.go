package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"station-ops/internal/audit"
	"station-ops/internal/auth"
	"station-ops/internal/observability/metrics"
	readings "station-ops/internal/readings/domain"
	reconcileapp "station-ops/internal/reconcile/application"
	reconcile "station-ops/internal/reconcile/domain"
)

const timeLayout = time.RFC3339

// Handler provides reading submission and reconciliation APIs.
type Handler struct {
	service *reconcileapp.Service
	auditor audit.Logger
}

// NewHandler constructs a handler. The auditor may be nil.
func NewHandler(service *reconcileapp.Service, auditor audit.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("reconcile handler: nil service")
	}
	return &Handler{service: service, auditor: auditor}, nil
}

// ServeHTTP routes reconciliation endpoints.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/readings/nozzles" && r.Method == http.MethodPost:
		h.handleNozzleReadings(w, r)
	case r.URL.Path == "/api/v1/readings/tanks" && r.Method == http.MethodPost:
		h.handleDipReading(w, r)
	case r.URL.Path == "/api/v1/deliveries" && r.Method == http.MethodPost:
		h.handleDelivery(w, r)
	case r.URL.Path == "/api/v1/tanks/validate" && r.Method == http.MethodPost:
		h.handleThreeWay(w, r)
	case r.URL.Path == "/api/v1/tanks/reconcile" && r.Method == http.MethodPost:
		h.handleReconcile(w, r)
	case r.URL.Path == "/api/v1/reconciliations" && r.Method == http.MethodGet:
		h.handleList(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type nozzleReadingDTO struct {
	NozzleID   string  `json:"nozzle_id"`
	TankID     string  `json:"tank_id"`
	Type       string  `json:"type"`
	Electronic float64 `json:"electronic"`
	Mechanical float64 `json:"mechanical"`
	RecordedAt string  `json:"recorded_at,omitempty"`
}

type dispenseResultDTO struct {
	NozzleID           string  `json:"nozzle_id"`
	TankID             string  `json:"tank_id"`
	ElectronicVolume   float64 `json:"electronic_volume"`
	MechanicalVolume   float64 `json:"mechanical_volume"`
	DiscrepancyPercent float64 `json:"discrepancy_percent"`
	Band               string  `json:"band,omitempty"`
	RequiresNote       bool    `json:"requires_note"`
	Valid              bool    `json:"valid"`
	Reason             string  `json:"reason,omitempty"`
}

func toDispenseDTO(result reconcile.NozzleDispenseResult) dispenseResultDTO {
	dto := dispenseResultDTO{
		NozzleID:           result.NozzleID,
		TankID:             result.TankID,
		ElectronicVolume:   result.ElectronicVolume,
		MechanicalVolume:   result.MechanicalVolume,
		DiscrepancyPercent: result.DiscrepancyPercent,
		Band:               string(result.Band),
		RequiresNote:       result.RequiresNote,
		Valid:              result.Valid,
	}
	if result.Reason != nil {
		dto.Reason = result.Reason.Error()
	}
	return dto
}

func (h *Handler) handleNozzleReadings(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	var req struct {
		ShiftID  string             `json:"shift_id"`
		Readings []nozzleReadingDTO `json:"readings"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.IncReadingError("invalid_json")
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.ShiftID == "" || len(req.Readings) == 0 {
		metrics.IncReadingError("missing_fields")
		http.Error(w, "shift_id and readings required", http.StatusBadRequest)
		return
	}

	recordedBy := auth.SubjectFromContext(r.Context())
	rows := make([]readings.NozzleMeterReading, 0, len(req.Readings))
	for _, dto := range req.Readings {
		row := readings.NozzleMeterReading{
			ShiftID:    req.ShiftID,
			NozzleID:   dto.NozzleID,
			TankID:     dto.TankID,
			Type:       readings.ReadingType(dto.Type),
			Electronic: dto.Electronic,
			Mechanical: dto.Mechanical,
			RecordedBy: recordedBy,
		}
		if dto.RecordedAt != "" {
			at, err := time.Parse(timeLayout, dto.RecordedAt)
			if err != nil {
				metrics.IncReadingError("invalid_timestamp")
				http.Error(w, "invalid recorded_at", http.StatusBadRequest)
				return
			}
			row.RecordedAt = at.UTC()
		}
		rows = append(rows, row)
	}

	preview, err := h.service.SubmitMeterReadings(r.Context(), rows)
	if err != nil {
		metrics.ObserveReading("nozzle", "error", time.Since(started))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	metrics.ObserveReading("nozzle", "success", time.Since(started))
	h.logAudit(r, "submit_nozzle_readings", "shift", req.ShiftID, req.ShiftID)

	dtos := make([]dispenseResultDTO, 0, len(preview))
	for _, result := range preview {
		dtos = append(dtos, toDispenseDTO(result))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"shift_id": req.ShiftID,
		"nozzles":  dtos,
	})
}

func (h *Handler) handleDipReading(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	var req struct {
		ShiftID    string  `json:"shift_id"`
		TankID     string  `json:"tank_id"`
		DepthCm    float64 `json:"depth_cm"`
		RecordedAt string  `json:"recorded_at,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.IncReadingError("invalid_json")
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	row := readings.TankDipReading{
		ShiftID:    req.ShiftID,
		TankID:     req.TankID,
		DepthCm:    req.DepthCm,
		RecordedBy: auth.SubjectFromContext(r.Context()),
	}
	if req.RecordedAt != "" {
		at, err := time.Parse(timeLayout, req.RecordedAt)
		if err != nil {
			metrics.IncReadingError("invalid_timestamp")
			http.Error(w, "invalid recorded_at", http.StatusBadRequest)
			return
		}
		row.RecordedAt = at.UTC()
	}

	stored, err := h.service.SubmitDipReading(r.Context(), row)
	if err != nil {
		metrics.ObserveReading("dip", "error", time.Since(started))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	metrics.ObserveReading("dip", "success", time.Since(started))
	h.logAudit(r, "submit_dip_reading", "tank", req.TankID, req.ShiftID)

	writeJSON(w, http.StatusOK, map[string]any{
		"shift_id": stored.ShiftID,
		"tank_id":  stored.TankID,
		"depth_cm": stored.DepthCm,
		"liters":   stored.Liters,
	})
}

func (h *Handler) handleDelivery(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ShiftID  string  `json:"shift_id"`
		TankID   string  `json:"tank_id"`
		Liters   float64 `json:"liters"`
		Supplier string  `json:"supplier,omitempty"`
		At       string  `json:"at,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	row := readings.DeliveryRecord{
		ShiftID:  req.ShiftID,
		TankID:   req.TankID,
		Liters:   req.Liters,
		Supplier: req.Supplier,
	}
	if req.At != "" {
		at, err := time.Parse(timeLayout, req.At)
		if err != nil {
			http.Error(w, "invalid at", http.StatusBadRequest)
			return
		}
		row.At = at.UTC()
	}
	if err := h.service.RecordDelivery(r.Context(), row); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.logAudit(r, "record_delivery", "tank", req.TankID, req.ShiftID)
	writeJSON(w, http.StatusCreated, map[string]any{"status": "recorded"})
}

func (h *Handler) handleThreeWay(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ShiftID    string  `json:"shift_id"`
		TankID     string  `json:"tank_id"`
		Mechanical float64 `json:"mechanical"`
		Electronic float64 `json:"electronic"`
		DipCm      float64 `json:"dip_cm"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.ShiftID == "" || req.TankID == "" {
		http.Error(w, "shift_id and tank_id required", http.StatusBadRequest)
		return
	}

	reading, err := h.service.ValidateThreeWay(r.Context(), req.ShiftID, req.TankID, req.Mechanical, req.Electronic, req.DipCm)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	metrics.IncThreeWayVerdict(string(reading.Verdict))
	h.logAudit(r, "validate_three_way", "tank", req.TankID, req.ShiftID)

	writeJSON(w, http.StatusOK, map[string]any{
		"shift_id":              req.ShiftID,
		"tank_id":               req.TankID,
		"mechanical_liters":     reading.MechanicalLiters,
		"electronic_liters":     reading.ElectronicLiters,
		"dip_liters":            reading.DipLiters,
		"mech_elec_discrepancy": reading.DiscMechElec,
		"mech_dip_discrepancy":  reading.DiscMechDip,
		"elec_dip_discrepancy":  reading.DiscElecDip,
		"max_discrepancy":       reading.MaxDiscrepancy,
		"tolerance_percent":     reading.TolerancePercent,
		"verdict":               reading.Verdict,
	})
}

func (h *Handler) handleReconcile(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	var req struct {
		ShiftID    string `json:"shift_id"`
		TankID     string `json:"tank_id"`
		ShiftStart string `json:"shift_start"`
		ShiftEnd   string `json:"shift_end"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.ShiftID == "" || req.TankID == "" {
		http.Error(w, "shift_id and tank_id required", http.StatusBadRequest)
		return
	}
	shiftStart, err := time.Parse(timeLayout, req.ShiftStart)
	if err != nil {
		http.Error(w, "invalid shift_start", http.StatusBadRequest)
		return
	}
	shiftEnd, err := time.Parse(timeLayout, req.ShiftEnd)
	if err != nil {
		http.Error(w, "invalid shift_end", http.StatusBadRequest)
		return
	}

	result, err := h.service.ReconcileTank(r.Context(), req.ShiftID, req.TankID, shiftStart.UTC(), shiftEnd.UTC())
	if err != nil {
		metrics.ObserveReconciliation("", "error", time.Since(started))
		status := http.StatusBadRequest
		if errors.Is(err, reconcile.ErrMissingTankReading) {
			status = http.StatusUnprocessableEntity
		}
		http.Error(w, err.Error(), status)
		return
	}
	metrics.ObserveReconciliation(string(result.Verdict), "success", time.Since(started))
	h.logAudit(r, "reconcile_tank", "tank", req.TankID, req.ShiftID)

	writeJSON(w, http.StatusOK, toReconciliationDTO(req.ShiftID, result))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	shiftID := r.URL.Query().Get("shift_id")
	if shiftID == "" {
		http.Error(w, "shift_id required", http.StatusBadRequest)
		return
	}
	stored, err := h.service.ListReconciliations(r.Context(), shiftID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	items := make([]map[string]any, 0, len(stored))
	for _, row := range stored {
		items = append(items, toReconciliationDTO(row.ShiftID, row.Result))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"shift_id": shiftID,
		"items":    items,
	})
}

func toReconciliationDTO(shiftID string, result reconcile.TankShiftReconciliation) map[string]any {
	excluded := make([]dispenseResultDTO, 0, len(result.ExcludedNozzles))
	for _, nozzle := range result.ExcludedNozzles {
		excluded = append(excluded, toDispenseDTO(nozzle))
	}
	dto := map[string]any{
		"shift_id":               shiftID,
		"tank_id":                result.TankID,
		"opening_dip_liters":     result.OpeningDipLiters,
		"closing_dip_liters":     result.ClosingDipLiters,
		"total_delivered_liters": result.TotalDeliveredLiters,
		"tank_volume_movement":   result.TankVolumeMovement,
		"nozzle_total_liters":    result.NozzleTotalLiters,
		"variance_liters":        result.VarianceLiters,
		"variance_percent":       result.VariancePercent,
		"verdict":                result.Verdict,
		"data_source":            result.DataSource,
		"complete":               result.Complete(),
		"excluded_nozzles":       excluded,
	}
	if len(result.Segments) > 0 {
		segments := make([]map[string]any, 0, len(result.Segments))
		for _, segment := range result.Segments {
			segments = append(segments, map[string]any{
				"start":        segment.Start.Format(timeLayout),
				"end":          segment.End.Format(timeLayout),
				"start_liters": segment.StartLiters,
				"end_liters":   segment.EndLiters,
				"sales_liters": segment.SalesLiters,
				"level_rise":   segment.LevelRise,
			})
		}
		dto["segments"] = segments
	}
	if result.SegmentCheck != nil {
		dto["segment_check"] = map[string]any{
			"formula_sales_liters": result.SegmentCheck.FormulaSalesLiters,
			"segment_total_liters": result.SegmentCheck.SegmentTotalLiters,
			"delta_liters":         result.SegmentCheck.DeltaLiters,
			"mismatch":             result.SegmentCheck.Mismatch,
		}
	}
	return dto
}

func (h *Handler) logAudit(r *http.Request, action, resourceType, resourceID, shiftID string) {
	if h.auditor == nil {
		return
	}
	entry := audit.Entry{
		Actor:        auth.SubjectFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		ShiftID:      shiftID,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	}
	// Audit writes ride along with the request; a failure must not fail it.
	_ = h.auditor.Log(context.WithoutCancel(r.Context()), entry)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
