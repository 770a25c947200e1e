package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	readingsmemory "station-ops/internal/readings/infrastructure/memory"
	reconcileapp "station-ops/internal/reconcile/application"
	reconcilememory "station-ops/internal/reconcile/infrastructure/memory"
)

type linearDip struct{}

func (linearDip) Liters(_ string, depthCm float64) (float64, error) {
	return depthCm * 100, nil
}

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	store := readingsmemory.NewReadingStore()
	results := reconcilememory.NewResultRepository()
	service, err := reconcileapp.NewService(
		store, store, store, results, linearDip{},
		reconcileapp.Config{}, nil, nil, log.New(io.Discard, "", 0),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	handler, err := NewHandler(service, nil)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	return handler
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return resp
}

func TestSubmitNozzleReadingsPreview(t *testing.T) {
	handler := newTestHandler(t)

	resp := postJSON(t, handler, "/api/v1/readings/nozzles", map[string]any{
		"shift_id": "shift-1",
		"readings": []map[string]any{
			{"nozzle_id": "N1", "tank_id": "T1", "type": "OPENING", "electronic": 12000, "mechanical": 12010, "recorded_at": "2026-03-04T06:00:00Z"},
			{"nozzle_id": "N1", "tank_id": "T1", "type": "CLOSING", "electronic": 12800, "mechanical": 12805, "recorded_at": "2026-03-04T14:00:00Z"},
		},
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var body struct {
		ShiftID string `json:"shift_id"`
		Nozzles []struct {
			NozzleID         string  `json:"nozzle_id"`
			ElectronicVolume float64 `json:"electronic_volume"`
			Valid            bool    `json:"valid"`
			RequiresNote     bool    `json:"requires_note"`
		} `json:"nozzles"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Nozzles) != 1 {
		t.Fatalf("expected 1 nozzle result, got %d", len(body.Nozzles))
	}
	if !body.Nozzles[0].Valid || body.Nozzles[0].ElectronicVolume != 800 {
		t.Fatalf("unexpected nozzle result: %+v", body.Nozzles[0])
	}
}

func TestSubmitNozzleReadingsRejectsBadType(t *testing.T) {
	handler := newTestHandler(t)

	resp := postJSON(t, handler, "/api/v1/readings/nozzles", map[string]any{
		"shift_id": "shift-1",
		"readings": []map[string]any{
			{"nozzle_id": "N1", "tank_id": "T1", "type": "MIDDAY", "electronic": 12000, "mechanical": 12010},
		},
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestDipReadingConvertsDepth(t *testing.T) {
	handler := newTestHandler(t)

	resp := postJSON(t, handler, "/api/v1/readings/tanks", map[string]any{
		"shift_id": "shift-1",
		"tank_id":  "T1",
		"depth_cm": 120,
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var body struct {
		Liters float64 `json:"liters"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Liters != 12000 {
		t.Fatalf("expected 12000 liters, got %v", body.Liters)
	}
}

func TestReconcileEndToEnd(t *testing.T) {
	handler := newTestHandler(t)

	resp := postJSON(t, handler, "/api/v1/readings/nozzles", map[string]any{
		"shift_id": "shift-1",
		"readings": []map[string]any{
			{"nozzle_id": "N1", "tank_id": "T1", "type": "OPENING", "electronic": 12000, "mechanical": 12010, "recorded_at": "2026-03-04T06:00:00Z"},
			{"nozzle_id": "N1", "tank_id": "T1", "type": "CLOSING", "electronic": 12795, "mechanical": 12800, "recorded_at": "2026-03-04T14:00:00Z"},
		},
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("submit readings: %d", resp.Code)
	}

	for _, dip := range []map[string]any{
		{"shift_id": "shift-1", "tank_id": "T1", "depth_cm": 120, "recorded_at": "2026-03-04T06:00:00Z"},
		{"shift_id": "shift-1", "tank_id": "T1", "depth_cm": 112, "recorded_at": "2026-03-04T14:00:00Z"},
	} {
		resp = postJSON(t, handler, "/api/v1/readings/tanks", dip)
		if resp.Code != http.StatusOK {
			t.Fatalf("submit dip: %d: %s", resp.Code, resp.Body.String())
		}
	}

	resp = postJSON(t, handler, "/api/v1/tanks/reconcile", map[string]any{
		"shift_id":    "shift-1",
		"tank_id":     "T1",
		"shift_start": "2026-03-04T06:00:00Z",
		"shift_end":   "2026-03-04T14:00:00Z",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("reconcile: %d: %s", resp.Code, resp.Body.String())
	}
	var body struct {
		Verdict         string  `json:"verdict"`
		VarianceLiters  float64 `json:"variance_liters"`
		DataSource      string  `json:"data_source"`
		Complete        bool    `json:"complete"`
		NozzleTotal     float64 `json:"nozzle_total_liters"`
		TankMovement    float64 `json:"tank_volume_movement"`
		VariancePercent float64 `json:"variance_percent"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Verdict != "WARNING" {
		t.Fatalf("expected WARNING verdict, got %s", body.Verdict)
	}
	if body.TankMovement != 800 || body.NozzleTotal != 795 {
		t.Fatalf("unexpected figures: %+v", body)
	}
	if body.DataSource != "dip_only" {
		t.Fatalf("expected dip_only source, got %s", body.DataSource)
	}
	if !body.Complete {
		t.Fatalf("expected complete reconciliation")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reconciliations?shift_id=shift-1", nil)
	listResp := httptest.NewRecorder()
	handler.ServeHTTP(listResp, req)
	if listResp.Code != http.StatusOK {
		t.Fatalf("list: %d", listResp.Code)
	}
	var list struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(listResp.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Items) != 1 {
		t.Fatalf("expected 1 stored reconciliation, got %d", len(list.Items))
	}
}

func TestReconcileMissingDipsRejected(t *testing.T) {
	handler := newTestHandler(t)

	resp := postJSON(t, handler, "/api/v1/tanks/reconcile", map[string]any{
		"shift_id":    "shift-1",
		"tank_id":     "T1",
		"shift_start": "2026-03-04T06:00:00Z",
		"shift_end":   "2026-03-04T14:00:00Z",
	})
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.Code)
	}
}

func TestThreeWayEndpoint(t *testing.T) {
	handler := newTestHandler(t)

	resp := postJSON(t, handler, "/api/v1/tanks/validate", map[string]any{
		"shift_id":   "shift-1",
		"tank_id":    "T1",
		"mechanical": 5000,
		"electronic": 5001,
		"dip_cm":     50.005,
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var body struct {
		Verdict   string  `json:"verdict"`
		DipLiters float64 `json:"dip_liters"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Verdict != "PASS" {
		t.Fatalf("expected PASS, got %s", body.Verdict)
	}
}
