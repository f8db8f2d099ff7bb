package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Handlers struct {
	Elections      *ElectionHandler
	Candidates     *CandidateHandler
	EligibleVoters *EligibleVoterHandler
	Results        *ResultHandler
	Ballots        *BallotHandler
}

type AuthConfig struct {
	JWTSecret         []byte
	InternalAPISecret string
}

func NewHandler(h Handlers, auth AuthConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("welcome"))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(Authenticate(auth.JWTSecret))
			r.Use(RequireAdmin)

			r.Route("/elections", func(r chi.Router) {
				r.Get("/", h.Elections.ListElections)
				r.Post("/", h.Elections.CreateElection)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.Elections.GetElection)
					r.Put("/", h.Elections.UpdateElection)
					r.Delete("/", h.Elections.DeleteElection)
					r.Post("/publish", h.Elections.PublishElection)
					r.Post("/cancel", h.Elections.CancelElection)
					r.Post("/secure-mode", h.Elections.ChangeElectionSecureMode)
					r.Post("/keys/sync", h.Elections.SyncElectionKeys)

					r.Get("/candidates", h.Candidates.ListCandidates)
					r.Post("/candidates", h.Candidates.CreateCandidate)
					r.Put("/candidates/{candidateId}", h.Candidates.UpdateCandidate)
					r.Delete("/candidates/{candidateId}", h.Candidates.DeleteCandidate)

					r.Get("/eligible-voters", h.EligibleVoters.ListEligibleVoters)
					r.Post("/eligible-voters", h.EligibleVoters.BulkCreateEligibleVoters)
					r.Delete("/eligible-voters", h.EligibleVoters.DeleteEligibleVoters)

					r.Post("/onsite-result", h.Results.UploadOnsiteResult)
					r.Post("/count-ballots", h.Results.CountBallots)
					r.Get("/result", h.Results.GetResult)
					r.Post("/announce-result", h.Results.AnnounceResult)
				})
			})
		})

		r.Route("/internal", func(r chi.Router) {
			r.Use(RequireAPIKey(auth.InternalAPISecret))

			r.Post("/elections/{id}/keys", h.Elections.UpdateElectionKeys)
			r.Post("/elections/{id}/online-result", h.Results.UploadOnlineResult)
		})

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(auth.JWTSecret))

			r.Post("/elections/{id}/ballots", h.Ballots.SubmitBallot)
			r.Get("/elections/{id}/ballots/me", h.Ballots.HasVoted)
		})
	})

	return r
}
