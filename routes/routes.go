package routes

import (
	"net/http"
	"time"

	"github.com/Dosada05/scorekeeper/handlers"
	"github.com/Dosada05/scorekeeper/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Handlers struct {
	Player    *handlers.PlayerHandler
	Session   *handlers.SessionHandler
	History   *handlers.HistoryHandler
	WebSocket *handlers.WebSocketHandler
}

func SetupRoutes(router *chi.Mux, h Handlers, jwtSecret string, allowedOrigins []string) {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(chiMiddleware.Heartbeat("/ping"))

	authenticate := middleware.Authenticate(jwtSecret)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(authenticate)
		r.Use(chiMiddleware.Timeout(30 * time.Second))

		r.Route("/players", func(r chi.Router) {
			r.Get("/", h.Player.ListPlayers)
			r.Post("/", h.Player.CreatePlayer)
			r.Route("/{playerID}", func(r chi.Router) {
				r.Get("/", h.Player.GetPlayer)
				r.Put("/", h.Player.UpdatePlayer)
				r.Delete("/", h.Player.DeletePlayer)
				r.Post("/avatar", h.Player.UploadPlayerAvatar)
			})
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", h.Session.CreateSession)
			r.Get("/recent", h.History.ListRecentSessions)

			r.Route("/ongoing", func(r chi.Router) {
				r.Get("/", h.Session.GetOngoingSummary)
				r.Get("/roster", h.Session.GetOngoingRoster)
				r.Post("/end", h.Session.EndSession)
				r.Post("/cancel", h.Session.CancelSession)
			})

			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", h.History.GetSession)
				r.Get("/history", h.History.GetSessionHistory)
				r.Get("/logs", h.History.ListSessionLogs)
				r.Get("/available-players", h.Session.ListAvailablePlayers)
				r.Post("/players", h.Session.AddPlayers)
				r.Put("/players/{playerID}/status", h.Session.SetParticipantStatus)
				r.Post("/rounds", h.Session.RecordWinner)
			})
		})
	})

	// Browsers cannot set headers on websocket upgrades; Authenticate also reads ?access_token=.
	router.With(authenticate).Get("/ws/sessions/{sessionID}", h.WebSocket.ServeSession)

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"route not found"}` + "\n"))
	})
}
