// Package api serves the interactive operator endpoints. Heavy work is
// enqueued onto the task bridge; only reads and quick state changes run
// in-request.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/opsdesk/fulfillment-service/internal/fba"
	"github.com/opsdesk/fulfillment-service/internal/manifest"
	"github.com/opsdesk/fulfillment-service/internal/model"
	"github.com/opsdesk/fulfillment-service/internal/reports"
	"github.com/opsdesk/fulfillment-service/internal/taskbridge"
	"github.com/opsdesk/fulfillment-service/internal/tracking"
	"github.com/opsdesk/fulfillment-service/internal/updates"
	"github.com/opsdesk/fulfillment-service/pkg/logger"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Server struct {
	manifests   manifest.UseCase
	fba         fba.UseCase
	tracking    tracking.UseCase
	reports     reports.UseCase
	coordinator updates.Coordinator
	bridge      taskbridge.Bridge
	logger      logger.Logger
}

func NewServer(
	manifests manifest.UseCase,
	fbaUC fba.UseCase,
	trackingUC tracking.UseCase,
	reportsUC reports.UseCase,
	coordinator updates.Coordinator,
	bridge taskbridge.Bridge,
	log logger.Logger,
) *Server {
	return &Server{
		manifests:   manifests,
		fba:         fbaUC,
		tracking:    trackingUC,
		reports:     reportsUC,
		coordinator: coordinator,
		bridge:      bridge,
		logger:      log,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /manifests", s.createManifest)
	mux.HandleFunc("GET /manifests/{id}", s.getManifest)
	mux.HandleFunc("POST /manifests/{id}/close", s.closeManifest)
	mux.HandleFunc("POST /manifests/{id}/regenerate", s.regenerateManifest)
	mux.HandleFunc("POST /manifests/{id}/send", s.sendManifest)
	mux.HandleFunc("GET /manifests/{id}/file", s.manifestFile)

	mux.HandleFunc("GET /fba/orders", s.fbaQueue)
	mux.HandleFunc("POST /fba/orders", s.createFBAOrder)
	mux.HandleFunc("POST /fba/orders/{id}/printed", s.markFBAPrinted)
	mux.HandleFunc("POST /fba/orders/{id}/hold", s.holdFBAOrder)
	mux.HandleFunc("POST /fba/orders/{id}/details", s.recordFBADetails)
	mux.HandleFunc("POST /fba/orders/{id}/prioritise", s.prioritiseFBAOrder)
	mux.HandleFunc("POST /fba/orders/{id}/close", s.closeFBAOrder)
	mux.HandleFunc("GET /fba/orders/{id}/customs-invoice", s.customsInvoice)
	mux.HandleFunc("GET /fba/exports/{id}/csv", s.shipmentCSV)

	mux.HandleFunc("GET /tracking/overdue", s.overdue)
	mux.HandleFunc("GET /reports/orders.csv", s.orderExport)

	mux.HandleFunc("POST /updates/{kind}/run", s.runUpdate)
	mux.HandleFunc("GET /updates/{kind}/latest", s.latestUpdate)

	return mux
}

func (s *Server) createManifest(w http.ResponseWriter, r *http.Request) {
	m, err := s.manifests.Create(r.Context())
	if err != nil {
		if errors.Is(err, manifest.ErrManifestActive) {
			writeError(w, http.StatusConflict, err)
			return
		}
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) getManifest(w http.ResponseWriter, r *http.Request) {
	m, err := s.manifests.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	if m == nil {
		writeError(w, http.StatusNotFound, errors.New("manifest not found"))
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) closeManifest(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.bridge.Enqueue(r.Context(), taskbridge.TaskCloseManifest,
		map[string]string{"manifest_id": id}); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"manifest_id": id})
}

func (s *Server) regenerateManifest(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.bridge.Enqueue(r.Context(), taskbridge.TaskRegenerateManifest,
		map[string]string{"manifest_id": id}); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"manifest_id": id})
}

func (s *Server) sendManifest(w http.ResponseWriter, r *http.Request) {
	if err := s.manifests.SendManifest(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

func (s *Server) manifestFile(w http.ResponseWriter, r *http.Request) {
	m, err := s.manifests.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	if m == nil || len(m.ManifestFile) == 0 {
		writeError(w, http.StatusNotFound, errors.New("no manifest file"))
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="manifest.csv"`)
	w.Write(m.ManifestFile)
}

func (s *Server) fbaQueue(w http.ResponseWriter, r *http.Request) {
	orders, err := s.fba.AwaitingFulfillment(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (s *Server) createFBAOrder(w http.ResponseWriter, r *http.Request) {
	var in fba.CreateOrderInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	order, err := s.fba.Create(r.Context(), in)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (s *Server) markFBAPrinted(w http.ResponseWriter, r *http.Request) {
	if err := s.fba.MarkPrinted(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "printed"})
}

func (s *Server) holdFBAOrder(w http.ResponseWriter, r *http.Request) {
	var in struct {
		OnHold bool `json:"on_hold"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.fba.SetOnHold(r.Context(), r.PathValue("id"), in.OnHold); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"on_hold": in.OnHold})
}

func (s *Server) recordFBADetails(w http.ResponseWriter, r *http.Request) {
	var in fba.PackingDetailsInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.fba.RecordPackingDetails(r.Context(), r.PathValue("id"), in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) prioritiseFBAOrder(w http.ResponseWriter, r *http.Request) {
	if err := s.fba.Prioritise(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"priority": 1})
}

func (s *Server) closeFBAOrder(w http.ResponseWriter, r *http.Request) {
	err := s.fba.Close(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, fba.ErrStockUpdate) {
			// Closed, but the operator must fix the stock level by hand.
			writeJSON(w, http.StatusOK, map[string]string{
				"status":  "closed",
				"warning": err.Error(),
			})
			return
		}
		if errors.Is(err, fba.ErrDetailsIncomplete) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

func (s *Server) customsInvoice(w http.ResponseWriter, r *http.Request) {
	invoice, err := s.fba.CustomsInvoice(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, fba.ErrDetailsIncomplete) || errors.Is(err, fba.ErrNoDestination) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="customs_invoice.xlsx"`)
	w.Write(invoice)
}

func (s *Server) shipmentCSV(w http.ResponseWriter, r *http.Request) {
	file, err := s.fba.ShipmentCSV(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="shipment.csv"`)
	w.Write(file)
}

func (s *Server) overdue(w http.ResponseWriter, r *http.Request) {
	orders, err := s.tracking.Overdue(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (s *Server) orderExport(w http.ResponseWriter, r *http.Request) {
	from, err := time.Parse("2006-01-02", r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid from date"))
		return
	}
	to, err := time.Parse("2006-01-02", r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid to date"))
		return
	}
	file, err := s.reports.OrderExportCSV(r.Context(), from, to.AddDate(0, 0, 1))
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="orders.csv"`)
	w.Write(file)
}

func updateKind(path string) (model.UpdateKind, bool) {
	switch path {
	case "order":
		return model.OrderUpdateKind, true
	case "details":
		return model.OrderDetailsUpdateKind, true
	}
	return "", false
}

var updateTasks = map[model.UpdateKind]string{
	model.OrderUpdateKind:        taskbridge.TaskOrderUpdate,
	model.OrderDetailsUpdateKind: taskbridge.TaskDetailsUpdate,
}

func (s *Server) runUpdate(w http.ResponseWriter, r *http.Request) {
	kind, ok := updateKind(r.PathValue("kind"))
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("unknown update kind"))
		return
	}
	inProgress, err := s.coordinator.IsInProgress(r.Context(), kind)
	if err != nil {
		s.fail(w, err)
		return
	}
	if inProgress {
		writeError(w, http.StatusConflict, updates.ErrInProgress)
		return
	}
	if err := s.bridge.Enqueue(r.Context(), updateTasks[kind], nil); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"kind": string(kind)})
}

func (s *Server) latestUpdate(w http.ResponseWriter, r *http.Request) {
	kind, ok := updateKind(r.PathValue("kind"))
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("unknown update kind"))
		return
	}
	run, err := s.coordinator.LatestRun(r.Context(), kind)
	if err != nil {
		s.fail(w, err)
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, errors.New("no runs recorded"))
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	s.logger.Error("request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, err)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
