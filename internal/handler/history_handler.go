package handler

import (
	"net/http"
	"strconv"

	"labchat/internal/app/message"
	"labchat/internal/pkg/errs"
	"labchat/internal/pkg/randx"
	"labchat/internal/pkg/resp"
)

// HandleGetHistory serves GET /api/history?roomKey=&limit=, returning the newest messages
// of the room oldest first. The limit is clamped by the history service.
func HandleGetHistory(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		roomKey := query.Get("roomKey")
		if !randx.IsValidRoomKey(roomKey) {
			resp.RespondError(w, r, errs.NewError(errs.ErrRoomKeyInvalid))
			return
		}

		limit := 0
		if raw := query.Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				resp.RespondError(w, r, errs.NewError(errs.ErrHistoryLimitInvalid))
				return
			}
			limit = n
		}

		msgs, err := deps.History.Recent(r.Context(), roomKey, limit)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrHistoryUnavailable, err))
			return
		}
		if msgs == nil {
			msgs = []message.Message{}
		}

		resp.RespondSuccess(w, r, msgs)
	}
}
