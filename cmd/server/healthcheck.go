package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tecu23/arena-server/pkg/game"
	"github.com/tecu23/arena-server/pkg/messages"
	"github.com/tecu23/arena-server/pkg/registry"
)

// handleHealth handles the GET /health endpoint
func (app *application) handleHealth(w http.ResponseWriter, _ *http.Request) {
	app.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "ok",
		"uptime":        time.Since(app.StartTime).Round(time.Second).String(),
		"connections":   app.Hub.Count(),
		"gamesFinished": app.GamesFinished.Load(),
	})
}

// handleQueues reports how many players wait per mode
func (app *application) handleQueues(w http.ResponseWriter, r *http.Request) {
	var counts messages.QueueCountsPayload
	if err := app.Hub.Call(r.Context(), func() { counts = app.Manager.QueueCounts() }); err != nil {
		app.writeError(w, http.StatusServiceUnavailable, err)
		return
	}

	app.writeJSON(w, http.StatusOK, counts)
}

// handleRoom returns the snapshot of one room
func (app *application) handleRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")

	var (
		snap    game.Snapshot
		snapErr error
	)
	if err := app.Hub.Call(r.Context(), func() { snap, snapErr = app.Manager.RoomSnapshot(roomID) }); err != nil {
		app.writeError(w, http.StatusServiceUnavailable, err)
		return
	}

	if errors.Is(snapErr, registry.ErrRoomNotFound) {
		app.writeError(w, http.StatusNotFound, snapErr)
		return
	}
	if snapErr != nil {
		app.writeError(w, http.StatusInternalServerError, snapErr)
		return
	}

	app.writeJSON(w, http.StatusOK, snap)
}

func (app *application) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		app.Logger.Warn("failed to write response", zap.Error(err))
	}
}

func (app *application) writeError(w http.ResponseWriter, status int, err error) {
	app.writeJSON(w, status, map[string]string{"error": err.Error()})
}
