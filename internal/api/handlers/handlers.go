// Package handlers attaches every route to the server's router.
package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/TimzAjes16/echoID/internal/api"
	"github.com/TimzAjes16/echoID/internal/api/handlers/consents"
	"github.com/TimzAjes16/echoID/internal/api/handlers/handles"
	"github.com/TimzAjes16/echoID/internal/api/handlers/invites"
	"github.com/TimzAjes16/echoID/internal/api/handlers/settings"
)

// AttachAllRoutes registers the full route table.
func AttachAllRoutes(s *api.Server) {
	s.Router.Routes = []*echo.Route{
		consents.PostCreateConsentRoute(s),
		consents.GetListConsentsRoute(s),
		consents.GetConsentRoute(s),
		consents.PostRequestUnlockRoute(s),
		consents.PostApproveUnlockRoute(s),
		consents.PostWithdrawConsentRoute(s),
		consents.PostPauseConsentRoute(s),
		consents.PostResumeConsentRoute(s),
		settings.GetExecutionModeRoute(s),
		settings.PutExecutionModeRoute(s),
		handles.GetResolveHandleRoute(s),
		invites.PostCreateInviteRoute(s),
		invites.PostDecodeInviteRoute(s),
	}
}
