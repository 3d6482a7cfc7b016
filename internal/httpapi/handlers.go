package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"arena-battle/internal/spectate"
)

const hubTimeout = 2 * time.Second

// Healthz reports that the process is up.
func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

type stateResponse struct {
	spectate.View
	Spectators int `json:"spectators"`
}

// State returns the latest arena view as JSON.
func State(h *spectate.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan spectate.State, 1)
		select {
		case h.Inbox() <- spectate.GetState{Reply: reply}:
		case <-h.Done():
			http.Error(w, "spectator hub stopped", http.StatusServiceUnavailable)
			return
		case <-r.Context().Done():
			return
		}

		var st spectate.State
		select {
		case st = <-reply:
		case <-time.After(hubTimeout):
			http.Error(w, "spectator hub busy", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(stateResponse{View: st.View, Spectators: st.NumClients})
	}
}
