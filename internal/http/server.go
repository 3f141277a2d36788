package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hostelcare/internal/backend"
	"hostelcare/internal/config"
	"hostelcare/internal/gate"
	"hostelcare/internal/identity"
	"hostelcare/internal/manager"
	"hostelcare/internal/model"
)

// Server is the local facade over the consistency manager: the UI layer
// signs in, saves profiles, and asks for route decisions through it.
type Server struct {
	cfg     config.Config
	manager *manager.Manager
}

func NewServer(cfg config.Config, mgr *manager.Manager) *Server {
	return &Server{cfg: cfg, manager: mgr}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/session", s.handleGetSession)
	r.Post("/session/signin", s.handleSignIn)
	r.Post("/session/signout", s.handleSignOut)

	r.Get("/profile", s.handleGetProfile)
	r.Post("/profile", s.handleSaveProfile)

	r.Get("/gate", s.handleGate)

	return r
}

type signInRequest struct {
	IDToken  string `json:"idToken"`
	RoleHint string `json:"roleHint,omitempty"`
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.IDToken == "" {
		writeError(w, http.StatusBadRequest, "missing_id_token")
		return
	}

	hint := model.RoleStudent
	if req.RoleHint != "" {
		parsed, ok := model.ParseRole(req.RoleHint)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_role_hint")
			return
		}
		hint = parsed
	}

	principal, err := identity.ParseIDToken(s.cfg.IDTokenSecret, s.cfg.IDTokenIssuer, req.IDToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_token")
		return
	}

	if err := s.manager.SignIn(principal, hint); err != nil {
		var policyErr *identity.PolicyError
		if errors.As(err, &policyErr) {
			writeJSON(w, http.StatusForbidden, map[string]string{
				"error":   "policy_violation",
				"message": policyErr.Error(),
			})
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusOK, s.manager.State())
}

func (s *Server) handleSignOut(w http.ResponseWriter, _ *http.Request) {
	s.manager.SignOut()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.State())
}

func (s *Server) handleGetProfile(w http.ResponseWriter, _ *http.Request) {
	state := s.manager.State()
	if state.Status != model.StatusSignedIn || state.Profile == nil {
		writeError(w, http.StatusNotFound, "no_session")
		return
	}
	writeJSON(w, http.StatusOK, state.Profile)
}

func (s *Server) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	var input model.ProfileRecord
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	state, err := s.manager.SaveProfile(r.Context(), input)
	if err != nil {
		if errors.Is(err, manager.ErrNoSession) {
			writeError(w, http.StatusUnauthorized, "no_session")
			return
		}
		var rejected *backend.SaveRejectedError
		if errors.As(err, &rejected) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": rejected.Message})
			return
		}
		writeError(w, http.StatusBadGateway, "backend_unavailable")
		return
	}

	writeJSON(w, http.StatusOK, state)
}

type gateResponse struct {
	Decision string `json:"decision"`
	Target   string `json:"target,omitempty"`
}

func (s *Server) handleGate(w http.ResponseWriter, r *http.Request) {
	dest := r.URL.Query().Get("dest")
	if dest == "" {
		writeError(w, http.StatusBadRequest, "missing_dest")
		return
	}

	state := s.manager.State()
	decision := gate.Decide(state, gate.Lookup(dest))

	resp := gateResponse{Decision: string(decision)}
	switch decision {
	case gate.RedirectHome:
		resp.Target = "/"
	case gate.RedirectProfile:
		resp.Target = gate.ProfilePath(state)
	case gate.RedirectDashboard:
		resp.Target = gate.DashboardPath(state)
	}
	writeJSON(w, http.StatusOK, resp)
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
