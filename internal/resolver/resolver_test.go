package resolver

import (
	"context"
	"errors"
	"testing"

	"hostelcare/internal/backend"
	"hostelcare/internal/cache"
	"hostelcare/internal/model"
)

type fakeBackend struct {
	getProfile  func(ctx context.Context, subjectID string) (model.ProfileRecord, error)
	patchCalls  []string
	patchFail   bool
	patchCalled bool
}

func (f *fakeBackend) GetProfile(ctx context.Context, subjectID string) (model.ProfileRecord, error) {
	return f.getProfile(ctx, subjectID)
}

func (f *fakeBackend) PatchAvatar(_ context.Context, subjectID, avatarURL string) error {
	f.patchCalled = true
	f.patchCalls = append(f.patchCalls, subjectID+"="+avatarURL)
	if f.patchFail {
		return errors.New("patch failed")
	}
	return nil
}

var principal = model.Principal{
	SubjectID:   "subject-a",
	Email:       "a@vitstudent.ac.in",
	DisplayName: "A Student",
	AvatarURL:   "https://avatars.test/a.png",
}

func TestResolveBackendLeavesCacheToCaller(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	want := model.ProfileRecord{
		SubjectID: "subject-a", Role: model.RoleStudent,
		Email: "a@vitstudent.ac.in", Name: "A Student", AvatarURL: "existing.png",
		RegistrationNumber: "21BCE1234", PhoneNumber: "9", HostelType: "mens", Block: "C", RoomNumber: "1",
	}
	fb := &fakeBackend{
		getProfile: func(context.Context, string) (model.ProfileRecord, error) {
			return want, nil
		},
	}

	profile, source := New(fb, store, nil).Resolve(ctx, principal, model.RoleStudent)
	if source != SourceBackend {
		t.Fatalf("expected backend source, got %s", source)
	}
	if profile != want {
		t.Fatalf("record mismatch: got %+v", profile)
	}
	if fb.patchCalled {
		t.Fatalf("avatar already present, patch must not be issued")
	}
	if _, ok := store.Read(ctx, "subject-a"); ok {
		t.Fatalf("resolution itself must not write the cache")
	}
}

func TestResolveBackfillsAvatar(t *testing.T) {
	ctx := context.Background()
	fb := &fakeBackend{
		getProfile: func(context.Context, string) (model.ProfileRecord, error) {
			return model.ProfileRecord{SubjectID: "subject-a", Role: model.RoleStudent, Email: "a@vitstudent.ac.in"}, nil
		},
	}

	profile, _ := New(fb, cache.NewMemoryStore(), nil).Resolve(ctx, principal, model.RoleStudent)
	if profile.AvatarURL != principal.AvatarURL {
		t.Fatalf("expected provider avatar merged in, got %q", profile.AvatarURL)
	}
	if !fb.patchCalled {
		t.Fatalf("expected best-effort avatar patch")
	}
}

func TestResolvePatchFailureDoesNotFailResolution(t *testing.T) {
	fb := &fakeBackend{
		patchFail: true,
		getProfile: func(context.Context, string) (model.ProfileRecord, error) {
			return model.ProfileRecord{SubjectID: "subject-a", Role: model.RoleStudent, Email: "a@vitstudent.ac.in"}, nil
		},
	}

	profile, source := New(fb, cache.NewMemoryStore(), nil).Resolve(context.Background(), principal, model.RoleStudent)
	if source != SourceBackend || profile.AvatarURL != principal.AvatarURL {
		t.Fatalf("patch failure must not degrade resolution: %s %+v", source, profile)
	}
}

func TestResolveFallsBackToCache(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	cached := model.CachedSnapshot{
		Profile:   model.ProfileRecord{SubjectID: "subject-a", Role: model.RoleStudent, Email: "a@vitstudent.ac.in", Block: "C"},
		Completed: false,
	}
	store.Write(ctx, cached)

	fb := &fakeBackend{
		getProfile: func(context.Context, string) (model.ProfileRecord, error) {
			return model.ProfileRecord{}, errors.New("backend down")
		},
	}

	profile, source := New(fb, store, nil).Resolve(ctx, principal, model.RoleStudent)
	if source != SourceCache {
		t.Fatalf("expected cache source, got %s", source)
	}
	if profile.Block != "C" {
		t.Fatalf("expected cached record, got %+v", profile)
	}
}

func TestResolveIgnoresOtherSubjectsCache(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	store.Write(ctx, model.CachedSnapshot{
		Profile: model.ProfileRecord{SubjectID: "subject-b", Role: model.RoleStudent, Email: "b@vitstudent.ac.in", Block: "Z", RoomNumber: "999"},
	})

	fb := &fakeBackend{
		getProfile: func(context.Context, string) (model.ProfileRecord, error) {
			return model.ProfileRecord{}, errors.New("backend down")
		},
	}

	profile, source := New(fb, store, nil).Resolve(ctx, principal, model.RoleStudent)
	if source != SourceSynthesized {
		t.Fatalf("expected synthesized source, got %s", source)
	}
	if profile.Block != "" || profile.RoomNumber != "" || profile.Email != principal.Email {
		t.Fatalf("another subject's cache leaked into resolution: %+v", profile)
	}
}

func TestResolveSynthesizesWithoutCaching(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	fb := &fakeBackend{
		getProfile: func(context.Context, string) (model.ProfileRecord, error) {
			return model.ProfileRecord{}, backend.ErrNotFound
		},
	}

	profile, source := New(fb, store, nil).Resolve(ctx, principal, "")
	if source != SourceSynthesized {
		t.Fatalf("expected synthesized source, got %s", source)
	}
	if profile.Role != model.RoleStudent {
		t.Fatalf("expected student default role, got %s", profile.Role)
	}
	if profile.Complete() {
		t.Fatalf("synthesized record must be incomplete")
	}
	if _, ok := store.Read(ctx, "subject-a"); ok {
		t.Fatalf("synthesized record must not be cached")
	}
}

func TestResolveAdminHint(t *testing.T) {
	fb := &fakeBackend{
		getProfile: func(context.Context, string) (model.ProfileRecord, error) {
			return model.ProfileRecord{}, backend.ErrNotFound
		},
	}
	profile, _ := New(fb, cache.NewMemoryStore(), nil).Resolve(context.Background(), principal, model.RoleAdmin)
	if profile.Role != model.RoleAdmin {
		t.Fatalf("expected admin hint honored for synthesized record, got %s", profile.Role)
	}
}
