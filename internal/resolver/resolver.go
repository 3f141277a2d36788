// Package resolver turns a principal into a usable profile, whatever the
// state of the backend. Resolution never fails; it degrades through the
// backend, the local cache, and finally a synthesized record.
package resolver

import (
	"context"
	"errors"
	"log/slog"

	"hostelcare/internal/backend"
	"hostelcare/internal/cache"
	"hostelcare/internal/metrics"
	"hostelcare/internal/model"
)

type Source string

const (
	SourceBackend     Source = "backend"
	SourceCache       Source = "cache"
	SourceSynthesized Source = "synthesized"
)

// Backend is the slice of the profile API the resolver needs.
type Backend interface {
	GetProfile(ctx context.Context, subjectID string) (model.ProfileRecord, error)
	PatchAvatar(ctx context.Context, subjectID, avatarURL string) error
}

type Resolver struct {
	backend Backend
	cache   cache.Store
	logger  *slog.Logger
}

func New(b Backend, store cache.Store, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{backend: b, cache: store, logger: logger}
}

// Resolve fetches the profile for a principal. The role hint only applies to
// synthesized records; a backend-asserted role always wins.
//
// Resolve never writes the cache itself: the caller commits the result, and a
// resolution that loses the discard race must leave no trace behind.
func (r *Resolver) Resolve(ctx context.Context, principal model.Principal, roleHint model.Role) (model.ProfileRecord, Source) {
	record, err := r.backend.GetProfile(ctx, principal.SubjectID)
	if err == nil {
		record = r.mergeProviderFields(ctx, principal, record)
		metrics.Resolutions.WithLabelValues(string(SourceBackend)).Inc()
		return record, SourceBackend
	}

	if !errors.Is(err, backend.ErrNotFound) {
		r.logger.Warn("profile fetch degraded to local fallback", "subject", principal.SubjectID, "error", err)
	}

	if snapshot, ok := r.cache.Read(ctx, principal.SubjectID); ok {
		metrics.Resolutions.WithLabelValues(string(SourceCache)).Inc()
		return snapshot.Profile, SourceCache
	}

	metrics.Resolutions.WithLabelValues(string(SourceSynthesized)).Inc()
	return synthesize(principal, roleHint), SourceSynthesized
}

func (r *Resolver) mergeProviderFields(ctx context.Context, principal model.Principal, record model.ProfileRecord) model.ProfileRecord {
	if record.Email == "" {
		record.Email = principal.Email
	}
	if record.Name == "" {
		record.Name = principal.DisplayName
	}
	if record.AvatarURL == "" && principal.AvatarURL != "" {
		record.AvatarURL = principal.AvatarURL
		if err := r.backend.PatchAvatar(ctx, principal.SubjectID, principal.AvatarURL); err != nil {
			r.logger.Debug("avatar back-fill failed", "subject", principal.SubjectID, "error", err)
		}
	}
	return record
}

func synthesize(principal model.Principal, roleHint model.Role) model.ProfileRecord {
	if roleHint == "" {
		roleHint = model.RoleStudent
	}
	return model.ProfileRecord{
		SubjectID: principal.SubjectID,
		Role:      roleHint,
		Email:     principal.Email,
		Name:      principal.DisplayName,
		AvatarURL: principal.AvatarURL,
	}
}
