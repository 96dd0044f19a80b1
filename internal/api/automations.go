package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/craftdeck/craftdeck/internal/automation"
)

type AutomationHandler struct {
	store      *automation.SQLStore
	dispatcher *automation.Dispatcher
	watcher    *automation.Watcher
}

func NewAutomationHandler(store *automation.SQLStore, dispatcher *automation.Dispatcher, watcher *automation.Watcher) *AutomationHandler {
	return &AutomationHandler{store: store, dispatcher: dispatcher, watcher: watcher}
}

// Get returns a server's automation definition; servers without one get a
// disabled empty definition rather than a 404.
func (h *AutomationHandler) Get(w http.ResponseWriter, r *http.Request) {
	serverID := chi.URLParam(r, "id")

	def, err := h.store.Definition(r.Context(), serverID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load automation")
		return
	}
	if def == nil {
		def = &automation.Definition{ServerID: serverID}
	}
	writeJSON(w, http.StatusOK, def)
}

// Put replaces a server's automation definition.
func (h *AutomationHandler) Put(w http.ResponseWriter, r *http.Request) {
	serverID := chi.URLParam(r, "id")

	var def automation.Definition
	if err := decodeJSON(r, &def); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	def.ServerID = serverID
	def.LastEditedBy = invokedBy(r)
	fillIDs(&def)

	if err := h.store.SaveDefinition(r.Context(), &def); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	saved, err := h.store.Definition(r.Context(), serverID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to reload automation")
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// Trigger fires one automation trigger immediately and reports the outcome.
func (h *AutomationHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	serverID := chi.URLParam(r, "id")
	trigger := automation.Trigger(chi.URLParam(r, "trigger"))

	if !trigger.Valid() {
		writeError(w, http.StatusBadRequest, "trigger must be one of: start, stop, playerJoin, playerLeave")
		return
	}

	var req struct {
		PlayerName string `json:"player_name"`
	}
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	result, err := h.dispatcher.Execute(r.Context(), serverID, trigger, invokedBy(r), req.PlayerName)
	if err != nil {
		if errors.Is(err, automation.ErrPlayerRequired) {
			writeError(w, http.StatusBadRequest, "player_name required for "+string(trigger))
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to execute automation")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Logs lists recent execution log entries for a server.
func (h *AutomationHandler) Logs(w http.ResponseWriter, r *http.Request) {
	serverID := chi.URLParam(r, "id")

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	entries, err := h.store.Logs(r.Context(), serverID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list logs")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// Presence returns the cached presence snapshot for a server.
func (h *AutomationHandler) Presence(w http.ResponseWriter, r *http.Request) {
	serverID := chi.URLParam(r, "id")

	snap, err := h.store.PresenceSnapshot(r.Context(), serverID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load presence")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// RunCycle runs one presence poll across all automated servers immediately,
// outside the fixed cadence, and returns the observed transitions.
func (h *AutomationHandler) RunCycle(w http.ResponseWriter, r *http.Request) {
	reports := h.watcher.RunCycle(r.Context())
	if reports == nil {
		reports = []automation.CycleReport{}
	}
	writeJSON(w, http.StatusOK, reports)
}

// fillIDs assigns ids to sequences and actions created without one.
func fillIDs(def *automation.Definition) {
	for _, t := range []automation.Trigger{
		automation.TriggerStart, automation.TriggerStop,
		automation.TriggerPlayerJoin, automation.TriggerPlayerLeave,
	} {
		seq := def.Sequence(t)
		if seq == nil {
			continue
		}
		if seq.ID == "" {
			seq.ID = uuid.New().String()[:8]
		}
		for i := range seq.Actions {
			if seq.Actions[i].ID == "" {
				seq.Actions[i].ID = uuid.New().String()[:8]
			}
		}
	}
}
