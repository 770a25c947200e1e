package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	handoverapp "station-ops/internal/handover/application"
	"station-ops/internal/observability/metrics"
	reconcileapp "station-ops/internal/reconcile/application"
	"station-ops/internal/reports"
)

// Handler serves shift report downloads.
type Handler struct {
	reconcile *reconcileapp.Service
	handover  *handoverapp.Service
}

// NewHandler constructs a handler.
func NewHandler(reconcile *reconcileapp.Service, handover *handoverapp.Service) (*Handler, error) {
	if reconcile == nil || handover == nil {
		return nil, errors.New("reports handler: nil dependency")
	}
	return &Handler{reconcile: reconcile, handover: handover}, nil
}

// ServeHTTP routes report endpoints: /api/v1/reports/{shift}/export.{xlsx,pdf}.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	rest, ok := strings.CutPrefix(r.URL.Path, "/api/v1/reports/")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	shiftID, file, ok := strings.Cut(rest, "/")
	if !ok || shiftID == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	switch file {
	case "export.xlsx":
		h.export(w, r, shiftID, "xlsx")
	case "export.pdf":
		h.export(w, r, shiftID, "pdf")
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request, shiftID, format string) {
	started := time.Now()
	tanks, err := h.reconcile.ListReconciliations(r.Context(), shiftID)
	if err != nil {
		metrics.ObserveReportExport(format, "error", time.Since(started))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	handovers, err := h.handover.ListShift(r.Context(), shiftID)
	if err != nil {
		metrics.ObserveReportExport(format, "error", time.Since(started))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if len(tanks) == 0 && len(handovers) == 0 {
		metrics.ObserveReportExport(format, "error", time.Since(started))
		http.Error(w, "no data for shift", http.StatusNotFound)
		return
	}

	var body []byte
	var contentType string
	switch format {
	case "xlsx":
		body, err = reports.BuildShiftReportXLSX(shiftID, tanks, handovers)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case "pdf":
		body, err = reports.BuildShiftReportPDF(shiftID, tanks, handovers)
		contentType = "application/pdf"
	}
	if err != nil {
		metrics.ObserveReportExport(format, "error", time.Since(started))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	metrics.ObserveReportExport(format, "success", time.Since(started))

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="shift-`+shiftID+`-report.`+format+`"`)
	_, _ = w.Write(body)
}
