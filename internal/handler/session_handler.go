package handler

import (
	"net/http"

	"labchat/internal/pkg/auth/jwt"
	"labchat/internal/pkg/errs"
	"labchat/internal/pkg/logx"
	"labchat/internal/pkg/randx"
	"labchat/internal/pkg/req"
	"labchat/internal/pkg/resp"
)

// CreateSessionInput defines the JSON input structure for POST /api/session.
type CreateSessionInput struct {
	DisplayName string `json:"displayName"`
}

// HandleCreateSession issues a signed session token carrying a fresh session id.
func HandleCreateSession(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input CreateSessionInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		name, ok := randx.NormalizeDisplayName(input.DisplayName)
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrDisplayNameInvalid))
			return
		}

		sessionID := randx.SessionID()
		token, expiresAt, err := jwt.IssueSession(sessionID, name, deps.Config.JWTSecret)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown, err))
			return
		}

		logx.Info("Session issued", "session_id", sessionID)

		data := map[string]any{
			"token":       token,
			"sessionId":   sessionID,
			"displayName": name,
			"expiresAt":   expiresAt,
		}
		resp.RespondSuccess(w, r, data)
	}
}
