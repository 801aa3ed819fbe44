package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"isp-hotspot-billing/internal/infra/logging"
	"isp-hotspot-billing/internal/infra/worker"
	"isp-hotspot-billing/internal/usecase"
)

type Server struct {
	reconcileUC    usecase.ReconcileUseCase
	provisionUC    usecase.ProvisionUseCase
	registrationUC usecase.RegistrationUseCase
	deviceUC       usecase.DeviceUseCase
	pool           *worker.Pool
	auth           *AuthManager
	log            *zerolog.Logger
}

func NewServer(
	reconcileUC usecase.ReconcileUseCase,
	provisionUC usecase.ProvisionUseCase,
	registrationUC usecase.RegistrationUseCase,
	deviceUC usecase.DeviceUseCase,
	pool *worker.Pool,
	auth *AuthManager,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "WebServer").Logger()
	return &Server{
		reconcileUC:    reconcileUC,
		provisionUC:    provisionUC,
		registrationUC: registrationUC,
		deviceUC:       deviceUC,
		pool:           pool,
		auth:           auth,
		log:            &l,
	}
}

// Routes builds the full HTTP surface. Public routes serve the captive portal
// and the payment gateway; operator routes sit behind the JWT middleware.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(s.traceID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLog)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/lipay/callback", s.handlePaymentCallback)
		r.Post("/clients/mac-register/{routerID}", s.handleRegister)

		r.Route("/public", func(r chi.Router) {
			r.Get("/mac-status/{routerID}/{mac}", s.handleMACStatus)
			r.Post("/disconnect/{routerID}/{mac}", s.handleDisconnect)
			r.Delete("/remove-bypassed/{routerID}/{mac}", s.handleRemove)
		})

		r.Route("/routers", func(r chi.Router) {
			r.Use(s.requireOperator)
			r.Get("/{routerID}/stats", s.handleRouterStats)
			r.Post("/{routerID}/sync", s.handleRouterSync)
		})
	})
	return r
}

// traceID stamps every request with a trace id so log lines across the
// handler, usecases and worker pool can be correlated.
func (s *Server) traceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tid := uuid.NewString()
		ctx := logging.WithTraceID(r.Context(), tid)
		w.Header().Set("X-Trace-Id", tid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := logging.With(r.Context(), s.log)
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		l.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("http_request")
	})
}

func (s *Server) requireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.auth.ParseFromRequest(r)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if claims.Role != "operator" {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
