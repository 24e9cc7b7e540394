package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type RouterOptions struct {
	// AuthMiddleware authenticates every route except /healthz. Required.
	AuthMiddleware func(http.Handler) http.Handler
	Logger         *zap.Logger
}

// NewRouter constructs the API HTTP router.
func NewRouter(s *Server, opts RouterOptions) http.Handler {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log.Named("http")))
	r.Use(middleware.Recoverer)

	// Health endpoint is unauthenticated (used for infra checks).
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		if opts.AuthMiddleware != nil {
			r.Use(opts.AuthMiddleware)
		}

		r.Route("/profiles", func(r chi.Router) {
			r.Post("/", s.CreateProfile)
			r.Get("/", s.ListProfiles)
			r.Get("/me", s.GetMyProfile)
			r.Patch("/me", s.UpdateMyProfile)
			r.Patch("/me/settings", s.UpdateMyProfileSettings)
			r.Get("/{profileId}", s.GetProfile)
			r.Post("/{profileId}/access-requests", s.RequestAccess)
			r.Put("/{profileId}/access-requests/{requesterId}", s.DecideAccess)
		})

		r.Route("/users", func(r chi.Router) {
			r.Post("/", s.CreateUser)
			r.Get("/", s.ListUsers)
			r.Post("/lookup", s.LookupUsers)
		})
	})
	return r
}
