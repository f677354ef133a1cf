package http

import (
	"context"
	"net/http"

	"github.com/fjod/go_cart/certshop/internal/service"
)

type WorkspaceSource interface {
	Workspace(ctx context.Context, sessionID string) (*service.Workspace, error)
}

// workspace resolves the caller's workspace or writes the error response.
func workspace(w http.ResponseWriter, r *http.Request, source WorkspaceSource) (*service.Workspace, bool) {
	ws, err := source.Workspace(r.Context(), getSessionID(r.Context()))
	if err != nil {
		handleServiceError(w, err)
		return nil, false
	}
	return ws, true
}
