package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/fjod/go_cart/certshop/internal/session"
)

type ProfileHandler struct {
	workspaces WorkspaceSource
}

func NewProfileHandler(workspaces WorkspaceSource) *ProfileHandler {
	return &ProfileHandler{workspaces: workspaces}
}

type ProfileResponseDTO struct {
	session.Profile
	DisplayName string `json:"display_name"`
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r, h.workspaces)
	if !ok {
		return
	}

	profile, err := session.LoadProfile(r.Context(), ws.Store)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ProfileResponseDTO{Profile: profile, DisplayName: profile.DisplayName()})
}

// PUT /api/v1/profile replaces every identity field; omitted fields are cleared.
func (h *ProfileHandler) Put(w http.ResponseWriter, r *http.Request) {
	var req session.Profile
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email != "" && !strings.Contains(req.Email, "@") {
		respondError(w, http.StatusBadRequest, "invalid_email", "email must contain @")
		return
	}

	ws, ok := workspace(w, r, h.workspaces)
	if !ok {
		return
	}
	if err := session.SaveProfile(r.Context(), ws.Store, req); err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ProfileResponseDTO{Profile: req, DisplayName: req.DisplayName()})
}
