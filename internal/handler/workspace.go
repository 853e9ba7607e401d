package handler

import (
	"net/http"

	"github.com/sakif/mentor/internal/apperror"
	"github.com/sakif/mentor/internal/auth"
	"github.com/sakif/mentor/internal/service"
)

// workspaceFor resolves the caller's workspace, activating it if the server
// restarted since the user signed in.
func workspaceFor(r *http.Request, workspaces *service.Workspaces) (*service.Workspace, error) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		return nil, apperror.Unauthorized("valid authentication required")
	}
	return workspaces.Activate(r.Context(), user), nil
}
