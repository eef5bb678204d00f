package handlers

import (
	"net/http"

	"github.com/Dosada05/scorekeeper/models"
	"github.com/Dosada05/scorekeeper/services"
	"github.com/google/uuid"
)

type SessionHandler struct {
	sessionService services.SessionService
	scoringService services.ScoringService
}

func NewSessionHandler(ss services.SessionService, sc services.ScoringService) *SessionHandler {
	return &SessionHandler{sessionService: ss, scoringService: sc}
}

type addPlayersRequest struct {
	PlayerIDs []uuid.UUID `json:"player_ids"`
}

type participantStatusRequest struct {
	Status models.ParticipantStatus `json:"status"`
}

type recordWinnerRequest struct {
	PlayerID uuid.UUID `json:"player_id"`
}

func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	group, ok := requireGroup(w, r)
	if !ok {
		return
	}

	var input services.CreateSessionInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	session, err := h.sessionService.CreateSession(r.Context(), group, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"session": session}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *SessionHandler) GetOngoingSummary(w http.ResponseWriter, r *http.Request) {
	group, ok := requireGroup(w, r)
	if !ok {
		return
	}

	summary, err := h.sessionService.GetOngoingSessionSummary(r.Context(), group)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, summary, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *SessionHandler) GetOngoingRoster(w http.ResponseWriter, r *http.Request) {
	group, ok := requireGroup(w, r)
	if !ok {
		return
	}

	roster, err := h.sessionService.GetOngoingSessionRoster(r.Context(), group)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, roster, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *SessionHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	group, ok := requireGroup(w, r)
	if !ok {
		return
	}

	session, err := h.sessionService.EndSession(r.Context(), group)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"session": session}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *SessionHandler) CancelSession(w http.ResponseWriter, r *http.Request) {
	group, ok := requireGroup(w, r)
	if !ok {
		return
	}

	session, err := h.sessionService.CancelSession(r.Context(), group)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"session": session}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *SessionHandler) AddPlayers(w http.ResponseWriter, r *http.Request) {
	group, ok := requireGroup(w, r)
	if !ok {
		return
	}
	sessionID, err := getUUIDFromURL(r, "sessionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var req addPlayersRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.sessionService.AddPlayersToSession(r.Context(), group, sessionID, req.PlayerIDs); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) SetParticipantStatus(w http.ResponseWriter, r *http.Request) {
	group, ok := requireGroup(w, r)
	if !ok {
		return
	}
	sessionID, err := getUUIDFromURL(r, "sessionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	playerID, err := getUUIDFromURL(r, "playerID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var req participantStatusRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.sessionService.SetParticipantStatus(r.Context(), group, sessionID, playerID, req.Status); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) ListAvailablePlayers(w http.ResponseWriter, r *http.Request) {
	group, ok := requireGroup(w, r)
	if !ok {
		return
	}
	sessionID, err := getUUIDFromURL(r, "sessionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	players, err := h.sessionService.ListAvailablePlayers(r.Context(), group, sessionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if players == nil {
		players = []models.Player{}
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"players": players}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RecordWinner scores one round of the session.
func (h *SessionHandler) RecordWinner(w http.ResponseWriter, r *http.Request) {
	group, ok := requireGroup(w, r)
	if !ok {
		return
	}
	sessionID, err := getUUIDFromURL(r, "sessionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var req recordWinnerRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if req.PlayerID == uuid.Nil {
		failedValidationResponse(w, r, services.ErrValidationFailed)
		return
	}

	result, err := h.scoringService.RecordWinner(r.Context(), group, sessionID, req.PlayerID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"result": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
