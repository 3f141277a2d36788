// Package manager owns the reconciled view of the current user: identity
// provider session, backend profile record, and local cache, folded into one
// state the rest of the application observes.
package manager

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"sync"

	"hostelcare/internal/broadcast"
	"hostelcare/internal/cache"
	"hostelcare/internal/identity"
	"hostelcare/internal/metrics"
	"hostelcare/internal/model"
	"hostelcare/internal/resolver"
)

// Storage keys carried on the profile-change channel.
const (
	KeyProfile  = "userProfile"
	KeyComplete = "profileComplete"
)

var ErrNoSession = errors.New("no_session")

// Saver is the slice of the backend client used for explicit profile saves.
type Saver interface {
	CompleteProfile(ctx context.Context, record model.ProfileRecord) (model.ProfileRecord, error)
}

// Session is the identity source the manager observes and drives. An
// identity.Hub satisfies it.
type Session interface {
	identity.Source
	SignIn(principal model.Principal)
	SignOut()
}

type Manager struct {
	resolver  *resolver.Resolver
	cache     cache.Store
	hub       Session
	saver     Saver
	policy    identity.Policy
	notifier  *broadcast.Broadcaster
	logger    *slog.Logger
	resolveFn func(fn func()) // test seam; defaults to go fn()

	mu          sync.Mutex
	state       model.ReconciledState
	generation  uint64
	roleHint    model.Role
	unsubscribe func()

	subMu    sync.Mutex
	subs     map[int]func(model.ReconciledState)
	nextSub  int
	resolved sync.WaitGroup
}

type Options struct {
	Resolver *resolver.Resolver
	Cache    cache.Store
	Hub      Session
	Saver    Saver
	Policy   identity.Policy
	Notifier *broadcast.Broadcaster
	Logger   *slog.Logger
}

func New(opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		resolver:  opts.Resolver,
		cache:     opts.Cache,
		hub:       opts.Hub,
		saver:     opts.Saver,
		policy:    opts.Policy,
		notifier:  opts.Notifier,
		logger:    logger,
		resolveFn: func(fn func()) { go fn() },
		state:     model.ReconciledState{Status: model.StatusLoading},
		subs:      make(map[int]func(model.ReconciledState)),
	}
}

// Start subscribes to the identity session source. The source delivers the
// current session immediately, so the state settles to signedOut or kicks off
// a resolution before Start returns.
func (m *Manager) Start() {
	m.unsubscribe = m.hub.Subscribe(m.onAuthChange)
}

func (m *Manager) Stop() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
	m.resolved.Wait()
}

// State returns a copy of the reconciled state.
func (m *Manager) State() model.ReconciledState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyState(m.state)
}

// Subscribe registers an observer for every committed state change.
func (m *Manager) Subscribe(fn func(model.ReconciledState)) func() {
	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.subMu.Unlock()
	return func() {
		m.subMu.Lock()
		delete(m.subs, id)
		m.subMu.Unlock()
	}
}

// SignIn admits a provider-verified principal into the session. The email
// domain policy for the hinted role is enforced first; a violation never
// reaches the signed-in state and forces the session out.
func (m *Manager) SignIn(principal model.Principal, roleHint model.Role) error {
	if roleHint == "" {
		roleHint = model.RoleStudent
	}
	if err := m.policy.Check(principal.Email, roleHint); err != nil {
		metrics.PolicyViolations.Inc()
		m.logger.Warn("sign-in rejected by domain policy", "email", principal.Email, "role", roleHint)
		m.hub.SignOut()
		return err
	}

	m.mu.Lock()
	m.roleHint = roleHint
	m.mu.Unlock()

	m.hub.SignIn(principal)
	return nil
}

func (m *Manager) SignOut() {
	m.hub.SignOut()
}

func (m *Manager) onAuthChange(principal *model.Principal) {
	m.mu.Lock()
	m.generation++
	generation := m.generation

	if principal == nil {
		m.cache.Clear(context.Background())
		m.state = model.ReconciledState{Status: model.StatusSignedOut}
		state := copyState(m.state)
		m.mu.Unlock()
		m.notify(state)
		return
	}

	p := *principal
	hint := m.roleHint
	m.state = model.ReconciledState{Status: model.StatusLoading, Principal: &p}
	state := copyState(m.state)
	m.mu.Unlock()
	m.notify(state)

	m.resolved.Add(1)
	m.resolveFn(func() {
		defer m.resolved.Done()
		m.resolve(generation, p, hint)
	})
}

func (m *Manager) resolve(generation uint64, principal model.Principal, hint model.Role) {
	profile, source := m.resolver.Resolve(context.Background(), principal, hint)

	m.mu.Lock()
	if generation != m.generation {
		m.mu.Unlock()
		metrics.StaleDiscards.Inc()
		m.logger.Debug("discarding superseded resolution", "subject", principal.SubjectID)
		return
	}
	m.state = model.ReconciledState{
		Status:     model.StatusSignedIn,
		Principal:  &principal,
		Profile:    &profile,
		IsComplete: profile.Complete(),
		Role:       profile.Role,
	}
	state := copyState(m.state)
	// Only authoritative records are cached; a synthesized one would mask
	// a later successful backend read. The write stays under the state
	// lock so it cannot land after a sign-out clear.
	if source == resolver.SourceBackend {
		m.cache.Write(context.Background(), model.CachedSnapshot{Profile: profile, Completed: profile.Complete()})
	}
	m.mu.Unlock()

	m.logger.Info("session reconciled", "subject", principal.SubjectID, "source", string(source), "complete", state.IsComplete)
	m.notify(state)
	m.publishProfile(profile)
}

// SaveProfile applies an explicit profile save. The merged record is
// committed optimistically and kept even if the backend rejects it, so the
// user's input survives for a retry. Role and identity fields from the input
// are ignored; the backend asserts the role.
func (m *Manager) SaveProfile(ctx context.Context, input model.ProfileRecord) (model.ReconciledState, error) {
	m.mu.Lock()
	if m.state.Status != model.StatusSignedIn || m.state.Profile == nil {
		m.mu.Unlock()
		return model.ReconciledState{}, ErrNoSession
	}
	generation := m.generation
	merged := mergeProfile(*m.state.Profile, input)
	merged.SubjectID = m.state.Principal.SubjectID
	if merged.Email == "" {
		merged.Email = m.state.Principal.Email
	}
	m.commitProfileLocked(merged)
	optimistic := copyState(m.state)
	// Cache writes happen under the state lock, same as the sign-out
	// clear, so neither can overtake the other.
	m.cache.Write(ctx, model.CachedSnapshot{Profile: merged, Completed: merged.Complete()})
	m.mu.Unlock()

	m.notify(optimistic)
	m.publishProfile(merged)

	saved, err := m.saver.CompleteProfile(ctx, merged)
	if err != nil {
		metrics.SaveRejections.Inc()
		m.logger.Warn("profile save rejected, keeping local edits", "subject", merged.SubjectID, "error", err)
		return optimistic, err
	}

	m.mu.Lock()
	if generation != m.generation {
		// The session changed while the save was in flight; the
		// confirmation belongs to a principal that is no longer current.
		m.mu.Unlock()
		metrics.StaleDiscards.Inc()
		return optimistic, nil
	}
	m.commitProfileLocked(saved)
	confirmed := copyState(m.state)
	m.cache.Write(ctx, model.CachedSnapshot{Profile: saved, Completed: saved.Complete()})
	m.mu.Unlock()

	m.notify(confirmed)
	m.publishProfile(saved)
	return confirmed, nil
}

func (m *Manager) commitProfileLocked(profile model.ProfileRecord) {
	p := profile
	m.state.Profile = &p
	m.state.IsComplete = profile.Complete()
	m.state.Role = profile.Role
}

func (m *Manager) notify(state model.ReconciledState) {
	m.subMu.Lock()
	handlers := make([]func(model.ReconciledState), 0, len(m.subs))
	for _, fn := range m.subs {
		handlers = append(handlers, fn)
	}
	m.subMu.Unlock()
	for _, fn := range handlers {
		fn(state)
	}
}

func (m *Manager) publishProfile(profile model.ProfileRecord) {
	if m.notifier == nil {
		return
	}
	snapshot := model.CachedSnapshot{Profile: profile, Completed: profile.Complete()}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return
	}
	ctx := context.Background()
	m.notifier.Publish(ctx, KeyProfile, string(payload))
	m.notifier.Publish(ctx, KeyComplete, strconv.FormatBool(snapshot.Completed))
}

// mergeProfile overlays non-empty editable fields onto the current record.
// Role is deliberately not merged from input.
func mergeProfile(current, input model.ProfileRecord) model.ProfileRecord {
	merged := current
	if input.Name != "" {
		merged.Name = input.Name
	}
	if input.AvatarURL != "" {
		merged.AvatarURL = input.AvatarURL
	}
	if input.RegistrationNumber != "" {
		merged.RegistrationNumber = input.RegistrationNumber
	}
	if input.PhoneNumber != "" {
		merged.PhoneNumber = input.PhoneNumber
	}
	if input.HostelType != "" {
		merged.HostelType = input.HostelType
	}
	if input.Block != "" {
		merged.Block = input.Block
	}
	if input.RoomNumber != "" {
		merged.RoomNumber = input.RoomNumber
	}
	return merged
}

func copyState(state model.ReconciledState) model.ReconciledState {
	out := state
	if state.Principal != nil {
		p := *state.Principal
		out.Principal = &p
	}
	if state.Profile != nil {
		p := *state.Profile
		out.Profile = &p
	}
	return out
}
