package httpapi

import (
	"net/http"

	"jobyaari-engine/internal/config"
	"jobyaari-engine/internal/logging"
	"jobyaari-engine/internal/metrics"
)

func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: HealthHandler{}.Health,
	}))

	// Knowledge base
	prompt := 0
	if d.CfgVal != nil {
		if cfg, ok := d.CfgVal.Load().(config.Config); ok {
			prompt = cfg.Limits.PromptPerCategory
		}
	}
	kh := KBHandler{KB: d.KB, PromptPerCategory: prompt}
	mux.HandleFunc("/kb", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: kh.Get,
	}))
	mux.HandleFunc("/kb/stats", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: kh.Stats,
	}))

	// Refresh
	rh := RefreshHandler{Ctx: d.ctx(), Refresh: d.Refresh, Log: logging.OrNop(d.Logger)}
	mux.HandleFunc("/refresh", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: RequireToken(d.Token, rh.Run),
	}))
	mux.HandleFunc("/refresh/status", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: rh.Status,
	}))
	mux.HandleFunc("/runs", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: RunsHandler{Runs: d.Runs}.List,
	}))

	if d.Breakers != nil {
		mux.HandleFunc("/breakers", methodMux(map[string]http.HandlerFunc{
			http.MethodGet: func(w http.ResponseWriter, r *http.Request) {
				WriteJSON(w, http.StatusOK, d.Breakers.Snapshots())
			},
		}))
	}

	// Config
	ch := ConfigHandler{
		CfgVal:      d.CfgVal,
		UserCfgPath: d.UserCfgPath,
		LoadCfg:     d.LoadCfg,
		Hub:         d.Hub,
	}
	mux.HandleFunc("/config", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Get,
		http.MethodPut: RequireToken(d.Token, ch.Put),
	}))
	mux.HandleFunc("/config/path", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Path,
	}))
	mux.HandleFunc("/config/validate", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Validate,
	}))

	// SSE events
	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	if d.Gatherer != nil {
		mux.Handle("/metrics", metrics.Handler(d.Gatherer))
	}

	return mux
}

// Handler is the mux wrapped in the standard middleware.
func Handler(d Deps) http.Handler {
	log := logging.OrNop(d.Logger)
	return Chain(NewMux(d), Cors, RequestID, Recover(log), AccessLog(log))
}
