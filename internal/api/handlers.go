package api

import (
	"encoding/json"
	"log"
	"net/http"
)

// Handler methods for routerHandlers
// These are used by both the standalone router (for testing) and the full Server.

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	// OPTIMIZATION: Use lock-free snapshot instead of GetState()
	// This avoids RWMutex contention on every poll request
	snap := h.engine.GetSnapshot()
	writeJSON(w, map[string]interface{}{
		"tick":        snap.TickNumber,
		"chainLength": snap.ChainLength,
		"activeCount": snap.ActiveCount,
		"score":       snap.Score,
		"combo":       snap.Combo,
		"round":       snap.Round,
		"lives":       snap.Lives,
		"dealt":       snap.Dealt,
		"totalDeal":   snap.TotalDeal,
		"launcher":    snap.Launcher,
		"paused":      h.engine.Paused(),
	})
}

func (h *routerHandlers) handleGetChain(w http.ResponseWriter, r *http.Request) {
	state := h.engine.GetState()
	writeJSON(w, map[string]interface{}{
		"marbles":     state.Marbles,
		"chainLength": state.ChainLength,
		"activeCount": state.ActiveCount,
		"combo":       state.Combo,
		"tick":        state.TickCount,
	})
}

func (h *routerHandlers) handleGetTrack(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"waypoints": h.engine.TrackOutline(),
	})
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.GetSnapshot()
	state := h.engine.GetState()
	writeJSON(w, map[string]interface{}{
		"tick":        snap.TickNumber,
		"score":       snap.Score,
		"round":       snap.Round,
		"lives":       snap.Lives,
		"chainLength": snap.ChainLength,
		"combo":       snap.Combo,
		"shots":       len(snap.Shots),
		"launcher":    map[string]interface{}{"current": state.Current.String(), "next": state.Next.String()},
		"commanders":  h.engine.GetLeaderboard().Length(),
		"paused":      h.engine.Paused(),
	})
}

func (h *routerHandlers) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries := h.engine.GetLeaderboard().GetTop(10)

	result := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		result = append(result, map[string]interface{}{
			"rank":      e.Rank,
			"commander": e.CommanderID,
			"score":     int(e.Score),
			"clears":    e.Clears,
			"marbles":   e.Marbles,
			"bestCombo": e.BestCombo,
		})
	}

	writeJSON(w, result)
}

func (h *routerHandlers) handleGetEventStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.GetEventLogStats())
}

func (h *routerHandlers) handleShoot(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Owner string   `json:"owner"`
		X     *float64 `json:"x"`
		Y     *float64 `json:"y"`
		Angle *float64 `json:"angle"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if req.Owner == "" {
		req.Owner = GetClientIP(r)
	}

	var fired bool
	switch {
	case req.X != nil && req.Y != nil:
		fired = h.engine.FireAt(req.Owner, *req.X, *req.Y)
	case req.Angle != nil:
		fired = h.engine.FireAngle(req.Owner, *req.Angle)
	default:
		writeError(w, "Either x/y or angle is required", http.StatusBadRequest)
		return
	}

	// Cooldown misses are not errors; the client just retries next tick
	writeJSON(w, map[string]bool{"fired": fired})
}

func (h *routerHandlers) handleSwap(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Owner string `json:"owner"`
	}
	// Body is optional for swap
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Owner == "" {
		req.Owner = GetClientIP(r)
	}

	h.engine.SwapMagazine(req.Owner)
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handleAdminReset(w http.ResponseWriter, r *http.Request) {
	log.Println("🔄 Reset requested via API")
	h.engine.Reset()
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handleAdminPause(w http.ResponseWriter, r *http.Request) {
	h.engine.Pause()
	writeJSON(w, map[string]bool{"success": true, "paused": true})
}

func (h *routerHandlers) handleAdminResume(w http.ResponseWriter, r *http.Request) {
	h.engine.Resume()
	writeJSON(w, map[string]bool{"success": true, "paused": false})
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
