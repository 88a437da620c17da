package session

import (
	"context"

	"github.com/nkiryanov/taledynamic/internal/logger"
)

type sessionStore interface {
	IsLoggedIn() bool
	Remembered() bool
	Refresh(ctx context.Context) error
}

// Guard decision: navigation allowed or redirected
type Decision struct {
	Allow    bool
	Redirect *Location
}

type Guard struct {
	store  sessionStore
	logger logger.Logger
}

func NewGuard(store sessionStore, l logger.Logger) *Guard {
	if l == nil {
		l = logger.NewNoOpLogger()
	}
	return &Guard{store: store, logger: l}
}

// BeforeEach decides whether navigation to fullPath may proceed.
// Remembered sessions are refreshed first and navigation waits for the result.
func (g *Guard) BeforeEach(ctx context.Context, fullPath string) Decision {
	to := Resolve(fullPath)
	if !to.RequiresAuth || g.store.IsLoggedIn() {
		return Decision{Allow: true}
	}

	toAuth := authLocation(to.FullPath)

	if !g.store.Remembered() {
		return Decision{Redirect: &toAuth}
	}

	if err := g.store.Refresh(ctx); err != nil {
		g.logger.Info("Navigation redirected to auth", "to", to.FullPath, "error", err)
		return Decision{Redirect: &toAuth}
	}
	return Decision{Allow: true}
}
