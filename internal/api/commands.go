package api

import (
	"net/http"
	"strconv"

	"github.com/martinevsky/whip-core/internal/command"
)

// handleCommands returns the caller's dispatched-command history.
//
// GET /commands?side=left&limit=50&offset=0
// Authorization: Bearer <token>
//
// History is scoped to the caller's token; one caller can never see
// another's commands. Records are returned most recent first.
func (s *Server) handleCommands(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeUnauthorized(w, "missing or malformed bearer token")
		return
	}

	if s.auditRepo == nil {
		writeNotFound(w, "command history not enabled")
		return
	}

	filter := command.Filter{TokenHash: command.HashToken(token)}

	if raw := r.URL.Query().Get("side"); raw != "" {
		side, err := command.ParseSide(raw)
		if err != nil {
			writeUnprocessable(w, err.Error())
			return
		}
		filter.Side = side
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeUnprocessable(w, "limit must be a non-negative integer")
			return
		}
		filter.Limit = limit
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			writeUnprocessable(w, "offset must be a non-negative integer")
			return
		}
		filter.Offset = offset
	}

	result, err := s.auditRepo.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing command history", "error", err)
		writeInternalError(w, "listing command history")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
