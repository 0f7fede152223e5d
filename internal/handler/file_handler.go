package handler

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"labchat/internal/app/chat"
	"labchat/internal/pkg/errs"
	"labchat/internal/pkg/logx"
	"labchat/internal/pkg/randx"
	"labchat/internal/pkg/req"
	"labchat/internal/pkg/resp"
)

// PresignUploadInput defines the JSON input structure for generating an upload URL.
type PresignUploadInput struct {
	RoomKey  string `json:"roomKey"`
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	FileSize int64  `json:"fileSize"`
}

// HandlePresignUpload returns a time-limited PUT URL for a file shared in a room, plus the
// public URL to pass to share_file once the upload is done.
func HandlePresignUpload(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.StorageService == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageUnavailable))
			return
		}

		var input PresignUploadInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if !randx.IsValidRoomKey(input.RoomKey) {
			resp.RespondError(w, r, errs.NewError(errs.ErrRoomKeyInvalid))
			return
		}

		if err := chat.ValidateFileSize(input.FileSize); err != nil {
			resp.RespondError(w, r, err)
			return
		}

		if err := chat.ValidateFileType(input.FileName, input.MimeType); err != nil {
			resp.RespondError(w, r, err)
			return
		}

		fileKey := objectKey(input.RoomKey, input.FileName)

		url, err := deps.StorageService.PresignUpload(
			r.Context(),
			fileKey,
			chat.BaseMIME(input.MimeType),
			input.FileSize,
			chat.PresignedURLDuration,
		)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed, err))
			return
		}

		data := map[string]any{
			"uploadUrl": url,
			"fileUrl":   deps.StorageService.PublicURL(fileKey),
			"fileKey":   fileKey,
			"fileName":  input.FileName,
		}
		resp.RespondSuccess(w, r, data)
	}
}

// HandleUploadFile accepts a multipart form with "roomKey" and "file", checks the sniffed
// content type against the file name, and stores the file.
func HandleUploadFile(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.StorageService == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageUnavailable))
			return
		}

		if customErr := req.SetupMultipart(w, r); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}
		defer func() {
			if r.MultipartForm != nil {
				_ = r.MultipartForm.RemoveAll()
			}
		}()

		roomKey := r.FormValue("roomKey")
		if !randx.IsValidRoomKey(roomKey) {
			resp.RespondError(w, r, errs.NewError(errs.ErrRoomKeyInvalid))
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}
		defer file.Close()

		if customErr := chat.ValidateFileSize(header.Size); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		detected, err := mimetype.DetectReader(file)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFormParseFailed))
			return
		}
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFormParseFailed))
			return
		}

		mimeType := chat.BaseMIME(detected.String())
		if customErr := chat.ValidateFileType(header.Filename, mimeType); customErr != nil {
			logx.Warn("Upload rejected: content does not match file name",
				"file_name", header.Filename, "detected", detected.String())
			resp.RespondError(w, r, customErr)
			return
		}

		fileKey := objectKey(roomKey, header.Filename)
		if err := deps.StorageService.Upload(r.Context(), fileKey, mimeType, file); err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed, err))
			return
		}

		logx.Info("File uploaded", "room_key", roomKey, "file_key", fileKey, "size", header.Size)

		data := map[string]any{
			"fileUrl":  deps.StorageService.PublicURL(fileKey),
			"fileKey":  fileKey,
			"fileName": header.Filename,
		}
		resp.RespondSuccess(w, r, data)
	}
}

// objectKey builds "<room>/<uuid><ext>", with the room key reduced to URL-safe characters.
func objectKey(roomKey, fileName string) string {
	safeRoom := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, roomKey)

	ext := strings.ToLower(filepath.Ext(fileName))
	return fmt.Sprintf("%s/%s%s", safeRoom, uuid.NewString(), ext)
}
