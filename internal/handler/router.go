/*
Package handler provides the HTTP handlers and routing setup for the lab chat server.

The router applies logging, CORS and IP-based rate limiting before delegating to the API
handlers and the WebSocket gateway.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"labchat/internal/pkg/auth/jwt"
	"labchat/internal/pkg/limiter"
	"labchat/internal/pkg/logx"
	"labchat/internal/pkg/resp"
)

const (
	SessionRate  = 0.1
	SessionBurst = 5
	UploadRate   = 0.5
	UploadBurst  = 10
	ConnectRate  = 1
	ConnectBurst = 10
)

// Limiters groups the per-IP rate limiters used by the router.
type Limiters struct {
	Session *limiter.IPRateLimiter
	Upload  *limiter.IPRateLimiter
	Connect *limiter.IPRateLimiter
}

// NewLimiters builds the default limiters. Call Stop when the server shuts down.
func NewLimiters() *Limiters {
	return &Limiters{
		Session: limiter.NewIPRateLimiter(rate.Limit(SessionRate), SessionBurst),
		Upload:  limiter.NewIPRateLimiter(rate.Limit(UploadRate), UploadBurst),
		Connect: limiter.NewIPRateLimiter(rate.Limit(ConnectRate), ConnectBurst),
	}
}

// Stop ends the sweepers of all limiters.
func (l *Limiters) Stop() {
	l.Session.Stop()
	l.Upload.Stop()
	l.Connect.Stop()
}

// Router sets up the main HTTP routing table (chi.Router) for the application.
func Router(deps *AppDeps, limiters *Limiters) http.Handler {
	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	wsUpgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.IsDevelopment() {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		data := map[string]any{
			"status":  "ok",
			"service": "Lab Chat Server",
			"rooms":   deps.Hub.Registry().RoomCount(),
		}
		resp.RespondSuccess(w, r, data)
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(jwt.IdentityExtractorMiddleware(deps.Config.JWTSecret))

		api.With(limiters.Session.Middleware).Post("/session", HandleCreateSession(deps))
		api.Get("/history", HandleGetHistory(deps))

		api.Route("/files", func(files chi.Router) {
			files.Use(limiters.Upload.Middleware)
			files.Post("/presign", HandlePresignUpload(deps))
			files.Post("/upload", HandleUploadFile(deps))
		})
	})

	r.With(jwt.IdentityExtractorMiddleware(deps.Config.JWTSecret)).
		Get("/ws", HandleWebSocket(deps.Hub, wsUpgrader, limiters.Connect))

	return r
}
