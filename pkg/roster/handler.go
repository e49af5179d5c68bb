package roster

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wisbric/gieplan/internal/audit"
	"github.com/wisbric/gieplan/internal/httpserver"
	"github.com/wisbric/gieplan/pkg/engine"
)

// Handler provides HTTP handlers for the rosters API.
type Handler struct {
	svc    *Service
	logger *slog.Logger
	audit  *audit.Writer
}

// NewHandler creates a roster Handler.
func NewHandler(svc *Service, logger *slog.Logger, audit *audit.Writer) *Handler {
	return &Handler{svc: svc, logger: logger, audit: audit}
}

// Routes returns a chi.Router with all roster routes mounted.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/generate", h.handleGenerate)
	r.Get("/", h.handleList)
	r.Post("/swap", h.handleSwap)
	r.Get("/fairness", h.handleFairness)
	r.Get("/confidence/{participantID}", h.handleConfidence)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.handleGet)
		r.Delete("/", h.handleDelete)
		r.Post("/replace", h.handleReplace)
		r.Put("/weeks/{weekStart}", h.handleAnnotateWeek)
		r.Get("/export.ics", h.handleExportICS)
	})
	return r
}

func idParam(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.svc.Generate(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrInvalidStartDate), errors.Is(err, engine.ErrWeeksOutOfRange):
			httpserver.RespondError(w, http.StatusBadRequest, "bad_request", err.Error())
		case errors.Is(err, engine.ErrNoActiveParticipants), errors.Is(err, engine.ErrAllWeeksCovered):
			httpserver.RespondError(w, http.StatusConflict, "conflict", err.Error())
		default:
			h.logger.Error("generating roster", "error", err)
			httpserver.RespondError(w, http.StatusInternalServerError, "internal", "generating roster")
		}
		return
	}

	h.audit.Log(audit.Entry{Action: "generate", Resource: "roster", ResourceID: resp.Roster.ID,
		Detail: json.RawMessage(fmt.Sprintf(`{"start_date":%q,"weeks":%d,"warnings":%d}`,
			resp.Roster.StartDate, resp.Roster.Weeks, len(resp.Warnings)))})
	httpserver.Respond(w, http.StatusCreated, resp)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.List(r.Context())
	if err != nil {
		h.logger.Error("listing rosters", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "listing rosters")
		return
	}
	out := make([]Response, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToResponse())
	}
	httpserver.Respond(w, http.StatusOK, out)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid roster id")
		return
	}
	row, err := h.svc.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		httpserver.RespondError(w, http.StatusNotFound, "not_found", "roster not found")
		return
	}
	if err != nil {
		h.logger.Error("getting roster", "id", id, "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "getting roster")
		return
	}
	httpserver.Respond(w, http.StatusOK, row.ToResponse())
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid roster id")
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			httpserver.RespondError(w, http.StatusNotFound, "not_found", "roster not found")
			return
		}
		h.logger.Error("deleting roster", "id", id, "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "deleting roster")
		return
	}
	h.audit.Log(audit.Entry{Action: "delete", Resource: "roster", ResourceID: id})
	httpserver.Respond(w, http.StatusNoContent, nil)
}

func (h *Handler) handleReplace(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid roster id")
		return
	}
	var req ReplaceRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	row, err := h.svc.ReplaceInWeek(r.Context(), id, req)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpserver.RespondError(w, http.StatusNotFound, "not_found", "roster not found")
			return
		}
		httpserver.RespondError(w, http.StatusConflict, "conflict", err.Error())
		return
	}

	h.audit.Log(audit.Entry{Action: "replace", Resource: "roster", ResourceID: id,
		Detail: json.RawMessage(fmt.Sprintf(`{"week":%q,"old":%q,"new":%q}`, req.WeekStart, req.OldID, req.NewID))})
	httpserver.Respond(w, http.StatusOK, row.ToResponse())
}

func (h *Handler) handleSwap(w http.ResponseWriter, r *http.Request) {
	var req SwapRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	if err := h.svc.SwapGlobally(r.Context(), req); err != nil {
		h.logger.Error("swapping participants", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "swapping participants")
		return
	}

	h.audit.Log(audit.Entry{Action: "swap", Resource: "roster",
		Detail: json.RawMessage(fmt.Sprintf(`{"id_a":%q,"id_b":%q}`, req.IDA, req.IDB))})
	httpserver.Respond(w, http.StatusNoContent, nil)
}

func (h *Handler) handleAnnotateWeek(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid roster id")
		return
	}
	var req AnnotateWeekRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	if err := h.svc.AnnotateWeek(r.Context(), id, chi.URLParam(r, "weekStart"), req); err != nil {
		if errors.Is(err, ErrNotFound) {
			httpserver.RespondError(w, http.StatusNotFound, "not_found", "week not found")
			return
		}
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	httpserver.Respond(w, http.StatusNoContent, nil)
}

func (h *Handler) handleFairness(w http.ResponseWriter, r *http.Request) {
	evalDate := time.Now().UTC()
	if v := r.URL.Query().Get("date"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "date must be YYYY-MM-DD")
			return
		}
		evalDate = parsed
	}

	resp, err := h.svc.FairnessReport(r.Context(), evalDate)
	if err != nil {
		h.logger.Error("computing fairness report", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "computing fairness report")
		return
	}
	httpserver.Respond(w, http.StatusOK, resp)
}

func (h *Handler) handleConfidence(w http.ResponseWriter, r *http.Request) {
	pid := chi.URLParam(r, "participantID")
	level := 0.95
	if v := r.URL.Query().Get("level"); v == "0.99" {
		level = 0.99
	}

	ci := h.svc.ConfidenceInterval(pid, level)
	if ci == nil {
		httpserver.RespondError(w, http.StatusNotFound, "not_found", "participant has no tracked rate yet")
		return
	}
	httpserver.Respond(w, http.StatusOK, ci)
}

func (h *Handler) handleExportICS(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid roster id")
		return
	}
	row, err := h.svc.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		httpserver.RespondError(w, http.StatusNotFound, "not_found", "roster not found")
		return
	}
	if err != nil {
		h.logger.Error("getting roster for export", "id", id, "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "getting roster")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=gieplan-%s.ics", row.StartDate.Format("2006-01-02")))
	_, _ = w.Write([]byte(generateICS(row)))
}
