package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	monitordom "github.com/nianevitch/uptime-checker/internal/domain/monitor"
	userdom "github.com/nianevitch/uptime-checker/internal/domain/user"
	"github.com/nianevitch/uptime-checker/internal/obs"
	"github.com/nianevitch/uptime-checker/internal/services/reconcile"
)

type errBody struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("encode response", zap.Error(err))
	}
}

// writeError maps the store taxonomy onto HTTP statuses. Anything outside
// the taxonomy is a server fault and gets a generic body.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, monitordom.ErrValidation):
		s.writeJSON(w, http.StatusBadRequest, errBody{Error: err.Error()})
	case errors.Is(err, monitordom.ErrNotFound):
		s.writeJSON(w, http.StatusNotFound, errBody{Error: "monitor not found"})
	case errors.Is(err, userdom.ErrNotFound):
		s.writeJSON(w, http.StatusNotFound, errBody{Error: "user not found"})
	case errors.Is(err, monitordom.ErrConflict):
		s.writeJSON(w, http.StatusConflict, errBody{Error: "a monitor for that url already exists for the owner"})
	case errors.Is(err, userdom.ErrConflict):
		s.writeJSON(w, http.StatusConflict, errBody{Error: "email already registered"})
	case errors.Is(err, monitordom.ErrInProgress):
		s.writeJSON(w, http.StatusConflict, errBody{Error: "monitor check already in progress"})
	default:
		obs.WithTrace(r.Context(), s.log).Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		s.writeJSON(w, http.StatusInternalServerError, errBody{Error: "internal error"})
	}
}

// GET /api/v1/checks?count=N
func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	count := 1
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, errBody{Error: "count must be an integer"})
			return
		}
		count = n
	}

	jobs, err := s.claims.ClaimDue(r.Context(), count)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if jobs == nil {
		jobs = []monitordom.Job{}
	}
	s.writeJSON(w, http.StatusOK, jobs)
}

type recordPayload struct {
	ID             int64     `json:"id"`
	HTTPCode       *int      `json:"http_code"`
	ResponseTimeMs *float64  `json:"response_time_ms"`
	Error          string    `json:"error"`
	CheckedAt      time.Time `json:"checked_at"`
}

// POST /api/v1/checks
func (s *Server) handleRecordResult(w http.ResponseWriter, r *http.Request) {
	var p recordPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errBody{Error: "invalid json payload"})
		return
	}
	if p.ID <= 0 {
		s.writeJSON(w, http.StatusBadRequest, errBody{Error: "id is required"})
		return
	}

	view, err := s.reconcile.Record(r.Context(), p.ID, reconcile.Outcome{
		HTTPCode:       p.HTTPCode,
		ResponseTimeMs: p.ResponseTimeMs,
		Error:          p.Error,
		CheckedAt:      p.CheckedAt,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

type monitorPayload struct {
	OwnerID          int64   `json:"owner_id"`
	URL              string  `json:"url"`
	Label            *string `json:"label"`
	FrequencyMinutes int     `json:"frequency_minutes"`
}

// POST /api/v1/monitors
func (s *Server) handleCreateMonitor(w http.ResponseWriter, r *http.Request) {
	var p monitorPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errBody{Error: "invalid json payload"})
		return
	}
	if p.OwnerID <= 0 {
		s.writeJSON(w, http.StatusBadRequest, errBody{Error: "owner_id is required"})
		return
	}

	m, err := s.monitors.Create(r.Context(), p.OwnerID, p.URL, p.Label, p.FrequencyMinutes)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, m)
}

// GET /api/v1/monitors/{id}
func (s *Server) handleGetMonitor(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	m, err := s.monitors.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, m)
}

// PUT /api/v1/monitors/{id}
func (s *Server) handleUpdateMonitor(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var p monitorPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errBody{Error: "invalid json payload"})
		return
	}

	m, err := s.monitors.Update(r.Context(), id, p.OwnerID, p.URL, p.Label, p.FrequencyMinutes)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, m)
}

// DELETE /api/v1/monitors/{id}
func (s *Server) handleDeleteMonitor(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.monitors.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/monitors?owner_id=N&admin=true
func (s *Server) handleListMonitors(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	isAdmin := q.Get("admin") == "true"

	var ownerID int64
	if raw := q.Get("owner_id"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, errBody{Error: "owner_id must be an integer"})
			return
		}
		ownerID = n
	}
	if !isAdmin && ownerID <= 0 {
		s.writeJSON(w, http.StatusBadRequest, errBody{Error: "owner_id is required"})
		return
	}

	monitors, err := s.monitors.List(r.Context(), ownerID, isAdmin)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if monitors == nil {
		monitors = []*monitordom.Monitor{}
	}
	s.writeJSON(w, http.StatusOK, monitors)
}

// GET /api/v1/monitors/{id}/results?limit=N
func (s *Server) handleMonitorResults(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	results, err := s.monitors.RecentResults(r.Context(), id, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, results)
}

// POST /api/v1/monitors/{id}/schedule
func (s *Server) handleScheduleMonitor(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.claims.ScheduleNow(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "scheduled"})
}

// POST /api/v1/monitors/schedule?owner_id=N
func (s *Server) handleScheduleOwner(w http.ResponseWriter, r *http.Request) {
	ownerID, err := strconv.ParseInt(r.URL.Query().Get("owner_id"), 10, 64)
	if err != nil || ownerID <= 0 {
		s.writeJSON(w, http.StatusBadRequest, errBody{Error: "owner_id is required"})
		return
	}

	n, err := s.claims.ScheduleAllForOwner(r.Context(), ownerID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int64{"scheduled": n})
}

type userPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	IsAdmin  bool   `json:"is_admin"`
}

// POST /api/v1/users
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var p userPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errBody{Error: "invalid json payload"})
		return
	}

	u, err := s.users.Register(r.Context(), p.Email, p.Password, p.IsAdmin)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, u)
}

// GET /api/v1/users
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := s.users.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []*userdom.User{}
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		s.writeJSON(w, http.StatusBadRequest, errBody{Error: "invalid monitor id"})
		return 0, false
	}
	return id, true
}
