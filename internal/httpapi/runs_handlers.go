package httpapi

import (
	"net/http"

	"jobyaari-engine/internal/store"
)

type RunsHandler struct {
	Runs RunLister
}

func (h RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.Runs == nil {
		WriteJSON(w, http.StatusOK, []store.Run{})
		return
	}
	runs, err := h.Runs.ListRuns(r.Context(), queryInt(r, "limit", 20))
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "history_unavailable", err.Error())
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}
	WriteJSON(w, http.StatusOK, runs)
}
