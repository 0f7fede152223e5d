/*
Package resp writes the server's JSON envelope: {"code", "message", "data"}.
*/
package resp

import (
	"encoding/json"
	"net/http"

	"labchat/internal/pkg/errs"
	"labchat/internal/pkg/logx"
)

// JSONResponse is the envelope of every HTTP API response.
type JSONResponse struct {
	// Code is 0 on success, otherwise an errs code.
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// RespondJSON marshals payload and writes it with httpStatus.
func RespondJSON(w http.ResponseWriter, r *http.Request, httpStatus int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	response, err := json.Marshal(payload)
	if err != nil {
		logx.Error(
			err,
			"Error encoding JSON response",
			"http_status", httpStatus,
		)

		http.Error(w, "Error encoding JSON response", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(httpStatus)
	if _, err := w.Write(response); err != nil {
		logx.Warn("Failed to write JSON response", "error", err.Error(), "path", r.URL.Path)
	}
}

// RespondSuccess writes data with code 0 and HTTP 200.
func RespondSuccess(w http.ResponseWriter, r *http.Request, data any) {
	res := JSONResponse{
		Code:    0,
		Message: "success",
		Data:    data,
	}
	RespondJSON(w, r, http.StatusOK, res)
}

// RespondError writes the code and message of the *errs.CustomError inside err with its HTTP
// status. Any other error is reported as ErrUnknown and its cause logged.
func RespondError(w http.ResponseWriter, r *http.Request, err error) {
	customErr := errs.FromError(err)
	if customErr.Status >= http.StatusInternalServerError && customErr.Cause != nil {
		logx.Error(customErr.Cause, "Request failed", "code", customErr.Code, "path", r.URL.Path)
	}

	res := JSONResponse{
		Code:    customErr.Code,
		Message: customErr.Message,
	}
	RespondJSON(w, r, customErr.Status, res)
}
