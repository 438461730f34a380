package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Dosada05/tourney-engine/handlers"
	"github.com/Dosada05/tourney-engine/metrics"
	"github.com/Dosada05/tourney-engine/middleware"
)

// Handlers bundles every HTTP handler the router wires up, so SetupRoutes
// takes one argument instead of growing a parameter per resource.
type Handlers struct {
	Tournament   *handlers.TournamentHandler
	Registration *handlers.RegistrationHandler
	Bracket      *handlers.BracketHandler
	Match        *handlers.MatchHandler
	Standings    *handlers.StandingsHandler
	Prize        *handlers.PrizeHandler
	WebSocket    *handlers.WebSocketHandler
}

func SetupRoutes(router *chi.Mux, h Handlers, jwtSecret string, allowedOrigins []string, logger *slog.Logger) {
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(metrics.Middleware)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/metrics", metrics.Handler().ServeHTTP)

	auth := middleware.Authenticate(jwtSecret, logger)

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", h.Tournament.List)
		r.Get("/{tournamentID}", h.Tournament.Get)
		r.Get("/{tournamentID}/registrations", h.Registration.List)
		r.Get("/{tournamentID}/registrations/waitlist", h.Registration.Waitlist)
		r.Get("/{tournamentID}/brackets", h.Bracket.ListByTournament)
		r.Get("/{tournamentID}/matches", h.Match.ListUpcoming)
		r.Get("/{tournamentID}/standings", h.Standings.List)
		r.Get("/{tournamentID}/standings/{registrationID}", h.Standings.Get)
		r.Get("/{tournamentID}/prizes", h.Prize.ListByTournament)
		r.Get("/{tournamentID}/prizes/summary", h.Prize.Summary)

		r.Group(func(authRouter chi.Router) {
			authRouter.Use(auth)

			authRouter.Post("/", h.Tournament.Create)
			authRouter.Put("/{tournamentID}", h.Tournament.Update)
			authRouter.Delete("/{tournamentID}", h.Tournament.Delete)
			authRouter.Post("/{tournamentID}/logo", h.Tournament.UploadLogo)
			authRouter.Post("/{tournamentID}/prize-pool", h.Tournament.ConfigurePrizePool)
			authRouter.Patch("/{tournamentID}/visibility", h.Tournament.SetVisibility)
			authRouter.Patch("/{tournamentID}/streaming", h.Tournament.ConfigureStreaming)
			authRouter.Post("/{tournamentID}/clone", h.Tournament.Clone)
			authRouter.Post("/{tournamentID}/open-registration", h.Tournament.OpenRegistration)
			authRouter.Post("/{tournamentID}/close-registration", h.Tournament.CloseRegistration)
			authRouter.Post("/{tournamentID}/start-check-in", h.Tournament.StartCheckIn)
			authRouter.Post("/{tournamentID}/start", h.Tournament.StartTournament)
			authRouter.Post("/{tournamentID}/complete", h.Tournament.CompleteTournament)
			authRouter.Post("/{tournamentID}/cancel", h.Tournament.CancelTournament)

			authRouter.Post("/{tournamentID}/register/individual", h.Registration.RegisterIndividual)
			authRouter.Post("/{tournamentID}/register/team", h.Registration.RegisterTeam)
			authRouter.Post("/{tournamentID}/registrations/seed-by-mmr", h.Registration.SeedByMMR)
			authRouter.Post("/{tournamentID}/registrations/seeds", h.Registration.SetBulkSeeds)

			authRouter.Post("/{tournamentID}/brackets/generate", h.Bracket.Generate)
			authRouter.Post("/{tournamentID}/brackets/reset", h.Bracket.Reset)
			authRouter.Post("/{tournamentID}/brackets/pair-swiss-round", h.Bracket.PairSwissRound)
			authRouter.Post("/{tournamentID}/brackets/disqualify", h.Bracket.DisqualifyParticipant)

			authRouter.Get("/{tournamentID}/matches/disputed", h.Match.ListDisputed)

			authRouter.Post("/{tournamentID}/prizes/setup", h.Prize.SetupPool)
			authRouter.Post("/{tournamentID}/prizes/calculate", h.Prize.Calculate)
			authRouter.Post("/{tournamentID}/prizes/bulk-distribute", h.Prize.BulkDistribute)

			authRouter.Patch("/{tournamentID}/standings/{registrationID}/disqualify", h.Standings.Disqualify)
		})
	})

	router.Route("/registrations", func(r chi.Router) {
		r.Get("/{registrationID}", h.Registration.Get)

		r.Group(func(authRouter chi.Router) {
			authRouter.Use(auth)
			authRouter.Delete("/{registrationID}", h.Registration.Cancel)
			authRouter.Post("/{registrationID}/refund", h.Registration.IssueRefund)
			authRouter.Post("/{registrationID}/check-in", h.Registration.CheckIn)
			authRouter.Post("/{registrationID}/no-show", h.Registration.MarkNoShow)
			authRouter.Post("/{registrationID}/substitute", h.Registration.Substitute)
			authRouter.Patch("/{registrationID}/seed", h.Registration.SetManualSeed)
		})
	})

	router.Route("/brackets", func(r chi.Router) {
		r.Get("/{bracketID}", h.Bracket.Get)
		r.Get("/{bracketID}/matches", h.Bracket.Matches)
		r.Get("/{bracketID}/visualization", h.Bracket.Visualization)
		r.Get("/{bracketID}/export", h.Bracket.Export)

		r.With(auth).Post("/{bracketID}/auto-schedule", h.Match.AutoScheduleBracket)
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/", h.Match.List)
		r.Get("/{matchID}", h.Match.Get)

		r.Group(func(authRouter chi.Router) {
			authRouter.Use(auth)
			authRouter.Patch("/{matchID}/schedule", h.Match.Schedule)
			authRouter.Post("/{matchID}/check-in", h.Match.CheckIn)
			authRouter.Patch("/{matchID}/server", h.Match.AssignServer)
			authRouter.Patch("/{matchID}/status", h.Match.UpdateStatus)
			authRouter.Post("/{matchID}/result", h.Match.SubmitResult)
			authRouter.Post("/{matchID}/confirm", h.Match.ConfirmResult)
			authRouter.Post("/{matchID}/dispute", h.Match.RaiseDispute)
			authRouter.Post("/{matchID}/dispute/resolve", h.Match.ResolveDispute)
			authRouter.Post("/{matchID}/admin-override", h.Match.AdminOverride)
			authRouter.Patch("/{matchID}/postpone", h.Match.Postpone)
			authRouter.Post("/{matchID}/forfeit", h.Match.MarkForfeit)
			authRouter.Post("/{matchID}/detect-manipulation", h.Match.DetectManipulation)
		})
	})

	router.Route("/prizes", func(r chi.Router) {
		r.Get("/", h.Prize.List)
		r.Get("/{prizeID}", h.Prize.Get)
		r.Get("/recipients/{recipientID}", h.Prize.ListByRecipient)
		r.Get("/recipients/{recipientID}/total-earnings", h.Prize.TotalEarnings)

		r.Group(func(authRouter chi.Router) {
			authRouter.Use(auth)
			authRouter.Patch("/{prizeID}/tax", h.Prize.CalculateTax)
			authRouter.Post("/{prizeID}/distribute", h.Prize.Distribute)
			authRouter.Post("/{prizeID}/retry", h.Prize.Retry)
			authRouter.Patch("/{prizeID}/status", h.Prize.UpdateStatus)
			authRouter.Patch("/{prizeID}/wallet", h.Prize.SetRecipientWallet)
			authRouter.Post("/{prizeID}/verify-recipient", h.Prize.VerifyRecipient)
			authRouter.Delete("/{prizeID}", h.Prize.Cancel)
		})
	})

	router.With(auth).Get("/ws/tournaments/{tournamentID}", h.WebSocket.ServeWs)
}
