package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"isp-hotspot-billing/internal/domain"
	"isp-hotspot-billing/internal/domain/model"
	"isp-hotspot-billing/internal/infra/logging"
)

// gatewayAck is the acknowledgement shape the payment gateway expects. The
// callback always answers 200; ResultCode 0 tells the gateway to stop
// retrying, 1 asks it to try again later.
type gatewayAck struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

func (s *Server) handlePaymentCallback(w http.ResponseWriter, r *http.Request) {
	log := logging.With(r.Context(), s.log)

	var ev model.PaymentEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeJSON(w, http.StatusOK, gatewayAck{ResultCode: 1, ResultDesc: "invalid payload"})
		return
	}

	res, err := s.reconcileUC.Reconcile(r.Context(), ev)
	if err != nil {
		log.Error().Str("customer_ref", ev.CustomerRef).Str("status", ev.Status).
			Err(err).Msg("payment reconcile failed")
		writeJSON(w, http.StatusOK, gatewayAck{ResultCode: 1, ResultDesc: "reconcile failed"})
		return
	}

	if res.Intent != nil {
		intent := *res.Intent
		tid := logging.TraceID(r.Context())
		if err := s.pool.Submit(func(ctx context.Context) error {
			ctx = logging.WithMAC(logging.WithRouterID(ctx, intent.Router.ID), intent.MAC.String())
			if tid != "" {
				ctx = logging.WithTraceID(ctx, tid)
			}
			ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
			defer cancel()
			s.provisionUC.Provision(ctx, intent)
			return nil
		}); err != nil {
			// ledger already holds the grant; next drift sync repairs the router
			log.Error().Str("mac", intent.MAC.String()).Err(err).Msg("provisioning not queued")
		}
	}

	writeJSON(w, http.StatusOK, gatewayAck{ResultCode: 0, ResultDesc: "Accepted"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	routerID := chi.URLParam(r, "routerID")
	ctx := logging.WithRouterID(r.Context(), routerID)

	var req model.RegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	res, err := s.registrationUC.Register(ctx, routerID, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleMACStatus(w http.ResponseWriter, r *http.Request) {
	routerID, mac, ctx, err := deviceParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	st, err := s.deviceUC.Status(ctx, routerID, mac)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	routerID, mac, ctx, err := deviceParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	n, err := s.deviceUC.Disconnect(ctx, routerID, mac)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"sessions_removed": n})
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	routerID, mac, ctx, err := deviceParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	report, err := s.deviceUC.RemoveAll(ctx, routerID, mac)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleRouterStats(w http.ResponseWriter, r *http.Request) {
	routerID := chi.URLParam(r, "routerID")
	stats, err := s.deviceUC.Stats(logging.WithRouterID(r.Context(), routerID), routerID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleRouterSync(w http.ResponseWriter, r *http.Request) {
	routerID := chi.URLParam(r, "routerID")
	report, err := s.deviceUC.Sync(logging.WithRouterID(r.Context(), routerID), routerID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// deviceParams pulls the router and MAC path params and folds them into the
// request context for downstream log lines.
func deviceParams(r *http.Request) (string, model.MAC, context.Context, error) {
	routerID := chi.URLParam(r, "routerID")
	mac, err := model.ParseMAC(chi.URLParam(r, "mac"))
	if err != nil {
		return "", "", r.Context(), err
	}
	ctx := logging.WithMAC(logging.WithRouterID(r.Context(), routerID), mac.String())
	return routerID, mac, ctx, nil
}

// writeError maps domain sentinels onto HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidPendingUpdate):
		httpError(w, err, http.StatusBadRequest)
	case errors.Is(err, domain.ErrNotFound):
		httpError(w, err, http.StatusNotFound)
	case errors.Is(err, domain.ErrAlreadyRegistered), errors.Is(err, domain.ErrLockBusy):
		httpError(w, err, http.StatusConflict)
	case errors.Is(err, domain.ErrMissingConfiguration):
		httpError(w, err, http.StatusUnprocessableEntity)
	case errors.Is(err, domain.ErrRouterUnavailable):
		httpError(w, err, http.StatusServiceUnavailable)
	default:
		logging.With(r.Context(), s.log).Error().Err(err).Msg("request failed")
		httpError(w, errors.New("internal error"), http.StatusInternalServerError)
	}
}

func httpError(w http.ResponseWriter, err error, code int) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
