package tokenmanager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"threejsmcp/internal/credstore"
)

// State describes the manager's view of the credential set.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateValid         State = "valid"
	StateExpired       State = "expired"
	StateRefreshing    State = "refreshing"
	StateInvalid       State = "invalid"
)

var (
	// ErrNoCredentials means no usable token or refresh material exists.
	// Unrecoverable without operator action.
	ErrNoCredentials = errors.New("no usable sketchfab credentials")

	// ErrRefreshFailed means the upstream rejected the refresh credentials.
	// Sticky: the manager will not retry until fresh credentials are supplied.
	ErrRefreshFailed = errors.New("sketchfab token refresh rejected")
)

// RefreshResult is the outcome of a successful token refresh.
type RefreshResult struct {
	AccessToken string

	// RefreshToken carries the (possibly rotated) refresh token. Empty means
	// the upstream kept the previous one.
	RefreshToken string

	// ExpiresAt is nil when the upstream did not report a token lifetime.
	ExpiresAt *time.Time
}

// Refresher performs the upstream token-refresh call. Implementations return
// *RejectedError when the upstream rejects the credentials, and a plain error
// for transport-level failures.
type Refresher interface {
	Refresh(ctx context.Context, creds credstore.Credentials) (*RefreshResult, error)
}

// RejectedError indicates the upstream token endpoint rejected the refresh
// credentials (invalid or expired refresh token, bad client credentials).
type RejectedError struct {
	StatusCode int
	Body       string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("token endpoint rejected refresh (status %d): %s", e.StatusCode, e.Body)
}

const (
	// defaultExpiryMargin is how far before the actual expiry a token is
	// already treated as expired, so a request is never authenticated with a
	// token that expires mid-flight.
	defaultExpiryMargin = time.Minute

	// defaultTokenLifetime applies when the token endpoint omits expires_in.
	defaultTokenLifetime = 30 * 24 * time.Hour
)

// Option configures a Manager.
type Option func(*Manager)

// WithExpiryMargin overrides the safety margin used by the staleness check.
func WithExpiryMargin(margin time.Duration) Option {
	return func(m *Manager) {
		m.margin = margin
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// Manager is the exclusive owner of the process's credential set.
type Manager struct {
	store     credstore.Store
	refresher Refresher
	margin    time.Duration
	now       func() time.Time

	mu    sync.Mutex
	creds credstore.Credentials
	state State

	group singleflight.Group
}

// New creates a Manager seeded from explicit configuration merged over any
// persisted credential set. Seed fields that are non-empty take precedence
// over persisted ones.
func New(ctx context.Context, store credstore.Store, refresher Refresher, seed credstore.Credentials, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("missing credential store")
	}
	if refresher == nil {
		return nil, fmt.Errorf("missing refresher")
	}

	m := &Manager{
		store:     store,
		refresher: refresher,
		margin:    defaultExpiryMargin,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	persisted, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading persisted credentials: %w", err)
	}

	creds := seed
	if persisted != nil {
		creds = persisted.Merge(seed)
	}

	m.creds = creds
	m.state = m.deriveState()

	return m, nil
}

// deriveState classifies the current credential set. Caller must not hold the
// lock during New; elsewhere m.mu must be held.
func (m *Manager) deriveState() State {
	switch {
	case m.creds.Empty():
		return StateUninitialized
	case m.creds.AccessToken != "" && !m.creds.ExpiredAt(m.now(), m.margin):
		return StateValid
	default:
		return StateExpired
	}
}

// State returns the manager's current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// HasTokenMaterial reports whether any access or refresh token exists at all.
// Used to decide whether download operations can be offered.
func (m *Manager) HasTokenMaterial() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.creds.Empty()
}

// MarkExpired forces a valid token into the expired state. Called when an
// upstream request came back unauthorized despite a locally valid token.
func (m *Manager) MarkExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateValid {
		m.state = StateExpired
	}
}

// Token returns a valid access token, refreshing it first when necessary.
// Fails with ErrNoCredentials when no token or refresh material exists, and
// with ErrRefreshFailed when the upstream has rejected the refresh
// credentials.
func (m *Manager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()

	if m.state == StateInvalid {
		m.mu.Unlock()
		return "", ErrRefreshFailed
	}

	if m.state == StateValid {
		if !m.creds.ExpiredAt(m.now(), m.margin) {
			token := m.creds.AccessToken
			m.mu.Unlock()
			return token, nil
		}
		m.state = StateExpired
	}

	canRefresh := m.creds.CanRefresh()
	m.mu.Unlock()

	if !canRefresh {
		return "", ErrNoCredentials
	}

	// Deduplicate concurrent refreshes: everyone who arrives while a refresh
	// is in flight receives that refresh's outcome. The upstream call runs on
	// a context detached from the caller, so an abandoned request cannot
	// cancel the shared refresh out from under live waiters or drop a refresh
	// token the upstream has already rotated. The refresher's own timeout
	// bounds the call.
	refreshCtx := context.WithoutCancel(ctx)
	token, err, _ := m.group.Do("refresh", func() (any, error) {
		return m.refresh(refreshCtx)
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

// refresh performs one refresh cycle: EXPIRED -> REFRESHING -> VALID, or
// INVALID when the upstream rejects the credentials. Runs inside the
// singleflight critical section.
func (m *Manager) refresh(ctx context.Context) (string, error) {
	m.mu.Lock()
	// A caller that lost the race to a just-finished refresh lands here with
	// fresh state already committed.
	if m.state == StateValid && !m.creds.ExpiredAt(m.now(), m.margin) {
		token := m.creds.AccessToken
		m.mu.Unlock()
		return token, nil
	}
	if m.state == StateInvalid {
		m.mu.Unlock()
		return "", ErrRefreshFailed
	}
	creds := m.creds
	m.state = StateRefreshing
	m.mu.Unlock()

	result, err := m.refresher.Refresh(ctx, creds)
	if err != nil {
		m.mu.Lock()
		defer m.mu.Unlock()

		var rejected *RejectedError
		if errors.As(err, &rejected) {
			m.state = StateInvalid
			slog.ErrorContext(ctx, "token refresh rejected by upstream",
				"status", rejected.StatusCode)
			return "", fmt.Errorf("%w: %s", ErrRefreshFailed, rejected.Body)
		}

		// Transport-level failure: the credential set may still be good, so
		// the next caller is allowed to try again.
		m.state = StateExpired
		return "", fmt.Errorf("refreshing access token: %w", err)
	}

	next := creds
	next.AccessToken = result.AccessToken
	if result.RefreshToken != "" {
		next.RefreshToken = result.RefreshToken
	}
	if result.ExpiresAt != nil {
		next.ExpiresAt = result.ExpiresAt
	} else {
		expiry := m.now().Add(defaultTokenLifetime)
		next.ExpiresAt = &expiry
	}

	// Persist before committing in-memory state, so a crash after this point
	// cannot lose a rotated refresh token. A write failure is logged rather
	// than returned: the access token is valid either way, and failing the
	// call would not bring the old (already rotated-out) refresh token back.
	if err := m.store.Save(ctx, &next); err != nil {
		slog.ErrorContext(ctx, "failed to persist refreshed credentials", "error", err)
	}

	m.mu.Lock()
	m.creds = next
	m.state = StateValid
	m.mu.Unlock()

	slog.DebugContext(ctx, "access token refreshed",
		"rotated_refresh_token", result.RefreshToken != "",
		"expires_at", next.ExpiresAt)

	return result.AccessToken, nil
}
