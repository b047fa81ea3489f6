package routes

import (
	"github.com/Dosada05/officiation-system/handlers"
	"github.com/Dosada05/officiation-system/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func SetupRoutes(
	router *chi.Mux,
	jwtSecret []byte,
	matchHandler *handlers.MatchHandler,
	refereeHandler *handlers.RefereeHandler,
	ratingHandler *handlers.RatingHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Live-канал: токен проверяется при рукопожатии на стороне identity,
	// подписка read-only.
	router.Get("/ws/matches/{matchID}", webSocketHandler.ServeWs)

	router.Route("/matches", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(jwtSecret))

			// Просмотр состояния доступен игрокам и судьям.
			r.Get("/{matchID}", matchHandler.GetMatchStateHandler)
			r.Get("/{matchID}/conflicts", refereeHandler.ListOpenConflictsHandler)

			// Заявки подают игроки.
			r.Group(func(r chi.Router) {
				r.Use(middleware.Authorize(string(middleware.RolePlayer), string(middleware.RoleReferee)))
				r.Post("/{matchID}/claims", matchHandler.DeclareKillHandler)
			})

			// Фазовые операции — только судьи.
			r.Group(func(r chi.Router) {
				r.Use(middleware.Authorize(string(middleware.RoleReferee)))
				r.Post("/", matchHandler.CreateMatchHandler)
				r.Post("/{matchID}/pause", refereeHandler.PauseMatchHandler)
				r.Post("/{matchID}/resume", refereeHandler.ResumeMatchHandler)
				r.Post("/{matchID}/rounds/end", refereeHandler.EndRoundHandler)
				r.Post("/{matchID}/rounds/next", refereeHandler.NextRoundHandler)
				r.Post("/{matchID}/end", refereeHandler.EndMatchHandler)
			})
		})
	})

	router.Route("/conflicts", func(r chi.Router) {
		r.Use(middleware.Authenticate(jwtSecret))
		r.Use(middleware.Authorize(string(middleware.RoleReferee)))
		r.Post("/{caseID}/resolution", refereeHandler.ResolveConflictHandler)
	})

	router.Route("/players", func(r chi.Router) {
		r.Use(middleware.Authenticate(jwtSecret))
		r.Get("/{playerID}/rating", ratingHandler.GetRatingHandler)
	})
}
