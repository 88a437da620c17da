package session

import (
	"context"
	"sync"

	"github.com/nkiryanov/taledynamic/internal/logger"
)

type authAPI interface {
	Authenticate(ctx context.Context, email string, password string, remembered bool) (Session, error)
	Refresh(ctx context.Context) (Session, error)
	Revoke(ctx context.Context, jwt string) error
	Remembered() bool
}

// Store keeps client side session state.
// Session exists between successful Login/Refresh and Logout or failed Refresh.
type Store struct {
	api    authAPI
	logger logger.Logger

	mu      sync.RWMutex
	session *Session

	// Refreshes are serialized so each one presents the latest rotated token
	refreshMu sync.Mutex
}

func NewStore(api authAPI, l logger.Logger) *Store {
	if l == nil {
		l = logger.NewNoOpLogger()
	}
	return &Store{api: api, logger: l}
}

func (s *Store) Login(ctx context.Context, email string, password string, remembered bool) error {
	session, err := s.api.Authenticate(ctx, email, password, remembered)
	if err != nil {
		s.set(nil)
		return err
	}
	s.set(&session)
	return nil
}

// Refresh renews session using refresh token cookie.
// Session is dropped when refresh fails.
func (s *Store) Refresh(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	session, err := s.api.Refresh(ctx)
	if err != nil {
		s.logger.Info("Session refresh failed", "code", ErrorCode(err), "error", err)
		s.set(nil)
		return err
	}
	s.set(&session)
	return nil
}

// Logout revokes refresh token and drops session. Local state is cleared even if revoke fails.
func (s *Store) Logout(ctx context.Context) error {
	current, ok := s.Session()
	s.set(nil)
	if !ok {
		return nil
	}
	return s.api.Revoke(ctx, current.JwtToken)
}

func (s *Store) IsLoggedIn() bool {
	_, ok := s.Session()
	return ok
}

func (s *Store) Remembered() bool {
	return s.api.Remembered()
}

func (s *Store) Session() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.session == nil {
		return Session{}, false
	}
	return *s.session, true
}

func (s *Store) set(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = session
}
