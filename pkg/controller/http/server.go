package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/secmon-lab/musubi/pkg/domain/model"
	"github.com/secmon-lab/musubi/pkg/domain/types"
	"github.com/secmon-lab/musubi/pkg/utils/logging"
)

const (
	// DefaultKeepAlive is the interval of SSE keep-alive comments
	DefaultKeepAlive = 15 * time.Second
)

// InsightsUseCase is the part of the insights cache served over HTTP
type InsightsUseCase interface {
	Get(ctx context.Context, identity model.Identity) model.InsightsView
	Refresh(ctx context.Context, identity model.Identity) model.InsightsView
	Subscribe(identity model.Identity, fn func(model.InsightsView)) func()
}

// InvitationUseCase is the part of the invitation use case served over HTTP
type InvitationUseCase interface {
	State(ctx context.Context, userID types.UserID) (model.InvitationState, error)
	Respond(ctx context.Context, userID types.UserID, id types.InvitationID, decision types.InvitationDecision) (model.InvitationState, error)
	Reconcile(ctx context.Context, userID types.UserID) (model.InvitationState, error)
	EndSession(userID types.UserID)
}

type Server struct {
	router     *chi.Mux
	insights   InsightsUseCase
	invitation InvitationUseCase
	noAuthUser types.UserID
	keepAlive  time.Duration
}

type Options func(*Server)

// WithInsights serves the insights endpoints
func WithInsights(uc InsightsUseCase) Options {
	return func(s *Server) {
		s.insights = uc
	}
}

// WithInvitation serves the invitation endpoints
func WithInvitation(uc InvitationUseCase) Options {
	return func(s *Server) {
		s.invitation = uc
	}
}

// WithNoAuthUser makes requests without an identity header act as userID. For
// development only.
func WithNoAuthUser(userID types.UserID) Options {
	return func(s *Server) {
		s.noAuthUser = userID
	}
}

// WithKeepAlive sets the SSE keep-alive interval
func WithKeepAlive(d time.Duration) Options {
	return func(s *Server) {
		s.keepAlive = d
	}
}

func New(opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router:    r,
		keepAlive: DefaultKeepAlive,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(identityMiddleware(s.noAuthUser))

		if s.insights != nil {
			r.Route("/insights", func(r chi.Router) {
				r.Get("/", insightsGetHandler(s.insights))
				r.Post("/refresh", insightsRefreshHandler(s.insights))
				r.Get("/events", insightsEventsHandler(s.insights, s.keepAlive))
			})
		}

		if s.invitation != nil {
			r.Route("/invitations", func(r chi.Router) {
				r.Get("/", invitationStateHandler(s.invitation))
				r.Post("/reconcile", invitationReconcileHandler(s.invitation))
				r.Delete("/session", invitationEndSessionHandler(s.invitation))
				r.Post("/{id}/accept", invitationDecisionHandler(s.invitation, types.InvitationDecisionAccepted))
				r.Post("/{id}/decline", invitationDecisionHandler(s.invitation, types.InvitationDecisionDeclined))
			})
		}
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// requestLogger attaches a logger carrying the request ID to the request context
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := logging.From(r.Context()).With("request_id", middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r.WithContext(logging.With(r.Context(), logger)))
	})
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.From(r.Context()).Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
