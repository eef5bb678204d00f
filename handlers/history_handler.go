package handlers

import (
	"net/http"

	"github.com/Dosada05/scorekeeper/services"
)

type HistoryHandler struct {
	historyService services.HistoryService
}

func NewHistoryHandler(hs services.HistoryService) *HistoryHandler {
	return &HistoryHandler{historyService: hs}
}

func (h *HistoryHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	group, ok := requireGroup(w, r)
	if !ok {
		return
	}
	sessionID, err := getUUIDFromURL(r, "sessionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	session, err := h.historyService.GetSession(r.Context(), group, sessionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"session": session}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *HistoryHandler) GetSessionHistory(w http.ResponseWriter, r *http.Request) {
	group, ok := requireGroup(w, r)
	if !ok {
		return
	}
	sessionID, err := getUUIDFromURL(r, "sessionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	history, err := h.historyService.GetSessionHistory(r.Context(), group, sessionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, history, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *HistoryHandler) ListRecentSessions(w http.ResponseWriter, r *http.Request) {
	group, ok := requireGroup(w, r)
	if !ok {
		return
	}

	sessions, err := h.historyService.ListRecentSessions(r.Context(), group)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"sessions": sessions}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *HistoryHandler) ListSessionLogs(w http.ResponseWriter, r *http.Request) {
	group, ok := requireGroup(w, r)
	if !ok {
		return
	}
	sessionID, err := getUUIDFromURL(r, "sessionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	logs, err := h.historyService.ListSessionLogs(r.Context(), group, sessionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"logs": logs}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
