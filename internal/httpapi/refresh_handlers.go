package httpapi

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"jobyaari-engine/internal/domain"
)

type RefreshHandler struct {
	Ctx     context.Context
	Refresh Refresher
	Log     *zap.Logger
}

func (h RefreshHandler) Status(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.Refresh.Status())
}

// Run refreshes and returns the result. With ?async=1 it answers 202 at
// once and the run continues in the background.
func (h RefreshHandler) Run(w http.ResponseWriter, r *http.Request) {
	if h.Refresh.Status().Running {
		WriteError(w, r, http.StatusConflict, "refresh_running", domain.ErrRefreshInProgress.Error())
		return
	}

	if queryBool(r, "async") {
		go func() {
			if _, err := h.Refresh.RunOnce(h.Ctx); err != nil {
				h.Log.Warn("background refresh not started", zap.Error(err))
			}
		}()
		WriteJSON(w, http.StatusAccepted, map[string]any{"accepted": true})
		return
	}

	res, err := h.Refresh.RunOnce(h.Ctx)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}
