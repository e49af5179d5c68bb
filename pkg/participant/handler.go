package participant

import (
	"context"
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

// Handler provides HTTP handlers for the participants API.
type Handler struct {
	svc    *Service
	counts HistoricalCounter
	logger *slog.Logger
	audit  *audit.Writer
}

// HistoricalCounter resolves a participant's historical assignment count,
// used for the experienced flag in responses. Implemented by the roster
// service.
type HistoricalCounter interface {
	HistoricalCount(ctx context.Context, id uuid.UUID) int
}

// NewHandler creates a participant Handler.
func NewHandler(svc *Service, counts HistoricalCounter, logger *slog.Logger, audit *audit.Writer) *Handler {
	return &Handler{svc: svc, counts: counts, logger: logger, audit: audit}
}

// Routes returns a chi.Router with all participant routes mounted.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.handleCreate)
	r.Get("/", h.handleList)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.handleGet)
		r.Put("/", h.handleUpdate)
		r.Delete("/", h.handleDelete)
		r.Post("/leave", h.handleLeave)
		r.Post("/rejoin", h.handleRejoin)
		r.Put("/mentees", h.handleSetMentees)
	})
	return r
}

func idParam(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}

func (h *Handler) respondRow(w http.ResponseWriter, r *http.Request, status int, row Row) {
	hist := 0
	if h.counts != nil {
		hist = h.counts.HistoricalCount(r.Context(), row.ID)
	}
	httpserver.Respond(w, status, row.ToResponse(time.Now().UTC(), hist, engine.DefaultConfig()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	row, err := h.svc.Create(r.Context(), req)
	if err != nil {
		h.logger.Error("creating participant", "error", err)
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	h.audit.Log(audit.Entry{Action: "create", Resource: "participant", ResourceID: row.ID,
		Detail: json.RawMessage(fmt.Sprintf(`{"name":%q}`, row.Name))})
	h.respondRow(w, r, http.StatusCreated, row)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.List(r.Context())
	if err != nil {
		h.logger.Error("listing participants", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "listing participants")
		return
	}

	now := time.Now().UTC()
	cfg := engine.DefaultConfig()
	out := make([]Response, 0, len(rows))
	for i := range rows {
		hist := 0
		if h.counts != nil {
			hist = h.counts.HistoricalCount(r.Context(), rows[i].ID)
		}
		out = append(out, rows[i].ToResponse(now, hist, cfg))
	}
	httpserver.Respond(w, http.StatusOK, out)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid participant id")
		return
	}

	row, err := h.svc.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		httpserver.RespondError(w, http.StatusNotFound, "not_found", "participant not found")
		return
	}
	if err != nil {
		h.logger.Error("getting participant", "id", id, "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "getting participant")
		return
	}
	h.respondRow(w, r, http.StatusOK, row)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid participant id")
		return
	}
	var req UpdateRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	if err := h.svc.Rename(r.Context(), id, req); err != nil {
		if errors.Is(err, ErrNotFound) {
			httpserver.RespondError(w, http.StatusNotFound, "not_found", "participant not found")
			return
		}
		h.logger.Error("renaming participant", "id", id, "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "updating participant")
		return
	}

	h.audit.Log(audit.Entry{Action: "update", Resource: "participant", ResourceID: id})
	row, err := h.svc.Get(r.Context(), id)
	if err != nil {
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "reloading participant")
		return
	}
	h.respondRow(w, r, http.StatusOK, row)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid participant id")
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			httpserver.RespondError(w, http.StatusNotFound, "not_found", "participant not found")
			return
		}
		h.logger.Error("deleting participant", "id", id, "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "deleting participant")
		return
	}

	h.audit.Log(audit.Entry{Action: "delete", Resource: "participant", ResourceID: id})
	httpserver.Respond(w, http.StatusNoContent, nil)
}

func (h *Handler) handleLeave(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid participant id")
		return
	}
	var req LeaveRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	if err := h.svc.Leave(r.Context(), id, req); err != nil {
		if errors.Is(err, ErrNoOpenPeriod) {
			httpserver.RespondError(w, http.StatusConflict, "conflict", "participant has no open program period")
			return
		}
		h.logger.Error("closing program period", "id", id, "error", err)
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	h.audit.Log(audit.Entry{Action: "leave", Resource: "participant", ResourceID: id})
	httpserver.Respond(w, http.StatusNoContent, nil)
}

func (h *Handler) handleRejoin(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid participant id")
		return
	}
	var req RejoinRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	if err := h.svc.Rejoin(r.Context(), id, req); err != nil {
		h.logger.Error("reopening program period", "id", id, "error", err)
		httpserver.RespondError(w, http.StatusConflict, "conflict", err.Error())
		return
	}

	h.audit.Log(audit.Entry{Action: "rejoin", Resource: "participant", ResourceID: id})
	httpserver.Respond(w, http.StatusNoContent, nil)
}

func (h *Handler) handleSetMentees(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid participant id")
		return
	}
	var req MentorshipRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	if err := h.svc.SetMentees(r.Context(), id, req); err != nil {
		h.logger.Error("setting mentees", "id", id, "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "setting mentees")
		return
	}

	h.audit.Log(audit.Entry{Action: "set_mentees", Resource: "participant", ResourceID: id})
	httpserver.Respond(w, http.StatusNoContent, nil)
}
