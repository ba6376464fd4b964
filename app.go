package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"statsync/internal/models"
	"statsync/internal/services/query"
	"statsync/internal/services/tasks"
	"statsync/internal/services/updater"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// App wires the services behind the HTTP API.
type App struct {
	updater *updater.Service
	query   *query.Service
	runner  *tasks.Runner
	log     *logrus.Entry
}

// NewApp creates the HTTP application.
func NewApp(updaterService *updater.Service, queryService *query.Service, runner *tasks.Runner, log *logrus.Entry) *App {
	return &App{
		updater: updaterService,
		query:   queryService,
		runner:  runner,
		log:     log,
	}
}

// Router builds the chi route tree.
func (a *App) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", a.handleHealth)

		r.Post("/update", a.handleTriggerUpdate)
		r.Post("/update/cancel", a.handleCancelUpdate)
		r.Get("/update/status", a.handleUpdateStatus)

		r.Get("/tasks", a.handleListTasks)
		r.Get("/tasks/{id}", a.handleGetTask)
		r.Post("/tasks/{id}/cancel", a.handleCancelTask)

		r.Get("/teams", a.handleListTeams)
		r.Get("/teams/{abbr}", a.handleGetTeam)
		r.Get("/players", a.handleListPlayers)
		r.Get("/games", a.handleListGames)
	})

	return r
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type triggerUpdateRequest struct {
	Phases []string `json:"phases"`
}

func (a *App) handleTriggerUpdate(w http.ResponseWriter, r *http.Request) {
	var req triggerUpdateRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			a.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	phases := make([]models.Phase, 0, len(req.Phases))
	for _, name := range req.Phases {
		phase, err := models.ParsePhase(name)
		if err != nil {
			a.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		phases = append(phases, phase)
	}

	taskID, err := a.updater.TriggerUpdate(r.Context(), phases)
	if errors.Is(err, updater.ErrUpdateInProgress) {
		a.writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	a.writeJSON(w, http.StatusAccepted, map[string]string{"task_id": taskID})
}

func (a *App) handleCancelUpdate(w http.ResponseWriter, r *http.Request) {
	if err := a.updater.RequestCancellation(r.Context()); err != nil {
		a.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	a.writeJSON(w, http.StatusAccepted, map[string]string{"status": "cancellation requested"})
}

func (a *App) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	snapshot, err := a.updater.Status(r.Context())
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	a.writeJSON(w, http.StatusOK, snapshot)
}

func (a *App) handleListTasks(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, a.runner.List())
}

func (a *App) handleGetTask(w http.ResponseWriter, r *http.Request) {
	snapshot, err := a.runner.Get(chi.URLParam(r, "id"))
	if errors.Is(err, tasks.ErrTaskNotFound) {
		a.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	a.writeJSON(w, http.StatusOK, snapshot)
}

func (a *App) handleCancelTask(w http.ResponseWriter, r *http.Request) {
	err := a.runner.Cancel(chi.URLParam(r, "id"))
	if errors.Is(err, tasks.ErrTaskNotFound) {
		a.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (a *App) handleListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := a.query.ListTeams(r.Context(), r.URL.Query().Get("conference"), r.URL.Query().Get("division"))
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	a.writeJSON(w, http.StatusOK, teams)
}

func (a *App) handleGetTeam(w http.ResponseWriter, r *http.Request) {
	detail, err := a.query.GetTeam(r.Context(), chi.URLParam(r, "abbr"))
	if errors.Is(err, query.ErrNotFound) {
		a.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	a.writeJSON(w, http.StatusOK, detail)
}

func (a *App) handleListPlayers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := query.PlayerFilter{
		TeamAbbr: q.Get("team"),
		Name:     q.Get("name"),
		Page:     queryInt(q.Get("page")),
		PageSize: queryInt(q.Get("page_size")),
	}

	page, err := a.query.ListPlayers(r.Context(), filter)
	if errors.Is(err, query.ErrNotFound) {
		a.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	a.writeJSON(w, http.StatusOK, page)
}

func (a *App) handleListGames(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := query.GameFilter{
		Season:   queryInt(q.Get("season")),
		Week:     queryInt(q.Get("week")),
		TeamAbbr: q.Get("team"),
		Page:     queryInt(q.Get("page")),
		PageSize: queryInt(q.Get("page_size")),
	}

	page, err := a.query.ListGames(r.Context(), filter)
	if errors.Is(err, query.ErrNotFound) {
		a.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	a.writeJSON(w, http.StatusOK, page)
}

func (a *App) writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		a.log.Warnf("Failed to encode response: %v", err)
	}
}

func (a *App) writeError(w http.ResponseWriter, code int, message string) {
	a.writeJSON(w, code, map[string]string{"error": message})
}

func queryInt(val string) int {
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return n
}
