package handler

import (
	"context"

	"labchat/internal/app/chat"
	"labchat/internal/app/message"
	"labchat/internal/app/storage"
	"labchat/internal/configs"
)

// HistoryReader serves the pull history endpoint.
type HistoryReader interface {
	Recent(ctx context.Context, roomKey string, limit int) ([]message.Message, error)
}

type AppDeps struct {
	Hub     *chat.Hub
	History HistoryReader
	Config  *configs.AppConfig

	// StorageService is nil when file sharing is not configured.
	StorageService storage.StorageService
}
