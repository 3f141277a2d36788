// Package backendsvc is the reference implementation of the profile backend
// the agent talks to: profile CRUD over Postgres, role asserted server-side.
package backendsvc

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"hostelcare/internal/model"
)

type Server struct {
	store  *Store
	logger *slog.Logger
}

func NewServer(store *Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{store: store, logger: logger}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/profile/{subjectId}", s.handleGetProfile)
	r.Post("/profile/complete", s.handleComplete(model.RoleStudent))
	r.Post("/admin/profile/complete", s.handleComplete(model.RoleAdmin))
	r.Patch("/profile/{subjectId}/avatar", s.handlePatchAvatar)
	r.Get("/admin/profiles/{block}", s.handleListAdminsByBlock)

	return r
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "subjectId")
	if subjectID == "" {
		writeError(w, http.StatusBadRequest, "missing_subject_id")
		return
	}

	record, err := s.store.GetProfile(r.Context(), subjectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "profile_not_found")
			return
		}
		s.logger.Error("profile lookup failed", "subject", subjectID, "error", err)
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleComplete(role model.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var record model.ProfileRecord
		if err := decodeJSON(r, &record); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		// The endpoint, not the payload, decides the role.
		record.Role = role

		if msg := validateProfile(record); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}

		existing, err := s.store.GetProfile(r.Context(), record.SubjectID)
		if err == nil && existing.Role != record.Role {
			writeError(w, http.StatusForbidden, "role_mismatch")
			return
		}
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusInternalServerError, "server_error")
			return
		}

		if err := s.store.UpsertProfile(r.Context(), record); err != nil {
			s.logger.Error("profile save failed", "subject", record.SubjectID, "error", err)
			writeError(w, http.StatusInternalServerError, "server_error")
			return
		}

		writeJSON(w, http.StatusOK, record)
	}
}

type patchAvatarRequest struct {
	AvatarURL string `json:"avatarUrl"`
}

func (s *Server) handlePatchAvatar(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "subjectId")
	var req patchAvatarRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.AvatarURL == "" {
		writeError(w, http.StatusBadRequest, "missing_avatar_url")
		return
	}

	if err := s.store.UpdateAvatar(r.Context(), subjectID, req.AvatarURL); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListAdminsByBlock(w http.ResponseWriter, r *http.Request) {
	block := chi.URLParam(r, "block")
	if block == "" {
		writeError(w, http.StatusBadRequest, "missing_block")
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	admins, err := s.store.ListAdminsByBlock(r.Context(), block, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if admins == nil {
		admins = []model.ProfileRecord{}
	}
	writeJSON(w, http.StatusOK, admins)
}

// validateProfile returns an error code when a required field is missing.
// The completion endpoint only accepts records that are complete for their
// role; partial state lives on the device until then.
func validateProfile(record model.ProfileRecord) string {
	if strings.TrimSpace(record.SubjectID) == "" {
		return "missing_subject_id"
	}
	if strings.TrimSpace(record.Email) == "" {
		return "missing_email"
	}
	required := map[string]string{}
	switch record.Role {
	case model.RoleStudent:
		required["registrationNumber"] = record.RegistrationNumber
		required["phoneNumber"] = record.PhoneNumber
		required["hostelType"] = record.HostelType
		required["block"] = record.Block
		required["roomNumber"] = record.RoomNumber
	case model.RoleAdmin:
		required["hostelType"] = record.HostelType
		required["block"] = record.Block
	default:
		return "invalid_role"
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			return fmt.Sprintf("missing_%s", field)
		}
	}
	return ""
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
