package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/martinevsky/whip-core/internal/command"
)

// whipRequest is the body of POST /whip.
type whipRequest struct {
	Duration int    `json:"duration"`
	Side     string `json:"side"`
}

// handleWhip triggers an actuation on the caller's connected agent.
//
// POST /whip
// Authorization: Bearer <token>
// Body: {"duration": 5, "side": "left"}   (side optional, defaults to both)
//
// Responses:
//   - 202: command dispatched, body {"status":"sent","payload":{...}}
//   - 401: missing or malformed bearer token
//   - 422: duration or side out of range
//   - 404: no connected agent for this token (or it vanished mid-send)
func (s *Server) handleWhip(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeUnauthorized(w, "missing or malformed bearer token")
		return
	}

	var req whipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeUnprocessable(w, "invalid request body: "+err.Error())
		return
	}

	side, err := command.ParseSide(req.Side)
	if err != nil {
		writeUnprocessable(w, err.Error())
		return
	}

	cmd := command.Command{Duration: req.Duration, Side: side}

	msg, err := s.dispatcher.Dispatch(r.Context(), token, cmd)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, map[string]any{
			"status":  "sent",
			"payload": msg,
		})
	case errors.Is(err, command.ErrDurationRange), errors.Is(err, command.ErrUnknownSide):
		writeUnprocessable(w, err.Error())
	case errors.Is(err, command.ErrNoClient):
		writeNotFound(w, "no connected client for this token")
	default:
		s.logger.Error("dispatch failed", "error", err)
		writeInternalError(w, "dispatch failed")
	}
}
