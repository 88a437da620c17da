package user

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/nkiryanov/taledynamic/internal/apperrors"
	"github.com/nkiryanov/taledynamic/internal/logger"
	"github.com/nkiryanov/taledynamic/internal/models"
	"github.com/nkiryanov/taledynamic/internal/repository"
	"github.com/nkiryanov/taledynamic/internal/service/auth"
	"github.com/nkiryanov/taledynamic/internal/service/crud"
	"github.com/nkiryanov/taledynamic/internal/service/validate"
)

const defaultCacheTTL = time.Minute

type Config struct {
	// BcryptHasher if not set
	Hasher auth.PasswordHasher

	// How long user looked up by ID is cached
	// Negative value disables caching
	CacheTTL time.Duration

	Logger logger.Logger
}

type UserService struct {
	users   *crud.Service[models.User]
	hasher  auth.PasswordHasher
	storage repository.Storage
	cache   *cache.Cache
	logger  logger.Logger
}

func NewService(cfg Config, storage repository.Storage) *UserService {
	if cfg.Hasher == nil {
		cfg.Hasher = auth.BcryptHasher{}
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoOpLogger()
	}

	var c *cache.Cache
	if cfg.CacheTTL > 0 {
		c = cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}

	return &UserService{
		users:   crud.NewService[models.User](storage.User(), repository.ActiveOnly),
		hasher:  cfg.Hasher,
		storage: storage,
		cache:   c,
		logger:  cfg.Logger,
	}
}

type CreateUserRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

// CreateUser registers new active user.
// Returns apperrors.ErrUserAlreadyExists if the email is used by another active user.
func (s *UserService) CreateUser(ctx context.Context, req CreateUserRequest) (models.User, error) {
	if err := validate.Struct(req); err != nil {
		return models.User{}, err
	}

	used, err := s.storage.User().ExistsByEmail(ctx, req.Email, repository.ActiveOnly)
	if err != nil {
		return models.User{}, fmt.Errorf("can't check email. Err: %w", err)
	}
	if used {
		return models.User{}, apperrors.ErrUserAlreadyExists
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("can't use this as password, Err: %w", err)
	}

	// Unique index still protects from concurrent registration with the same email
	user, err := s.storage.User().Create(ctx, models.User{IsActive: true, Email: req.Email, PasswordHash: hash})
	if err != nil {
		return models.User{}, fmt.Errorf("can't create user. Err: %w", err)
	}

	return user, nil
}

// DeleteUser removes user with its refresh tokens and workspaces
func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	if id <= 0 {
		return idValidationError()
	}

	err := s.storage.InTx(ctx, func(st repository.Storage) error {
		if _, err := st.Refresh().DeleteByUser(ctx, id); err != nil {
			return err
		}
		if _, err := st.Workspace().DeleteByUser(ctx, id); err != nil {
			return err
		}
		return st.User().Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("can't delete user %d. Err: %w", id, err)
	}

	s.forget(id)
	return nil
}

type UpdateUserRequest struct {
	ID              int64  `json:"id" validate:"gt=0"`
	Email           string `json:"email" validate:"omitempty,email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword" validate:"required_with=Password,eqfield=Password"`

	// Checked against stored hash when set, required to change password
	CurrentPassword string `json:"currentPassword" validate:"required_with=Password"`
}

// UpdateUser replaces user row with a new one carrying changed email or password.
// Refresh tokens and workspaces are moved to the new row in the same transaction,
// so either everything is moved or the old user stays untouched.
// The returned user has new ID.
func (s *UserService) UpdateUser(ctx context.Context, req UpdateUserRequest) (models.User, error) {
	if err := validate.Struct(req); err != nil {
		return models.User{}, err
	}
	if req.Email == "" && req.Password == "" {
		return models.User{}, apperrors.NewValidationError(map[string]string{
			"email":    "Email or password has to be set",
			"password": "Email or password has to be set",
		})
	}

	// Hash outside of transaction, bcrypt is slow
	var newHash string
	if req.Password != "" {
		hash, err := s.hasher.Hash(req.Password)
		if err != nil {
			return models.User{}, fmt.Errorf("can't use this as password, Err: %w", err)
		}
		newHash = hash
	}

	var updated models.User
	err := s.storage.InTx(ctx, func(st repository.Storage) error {
		old, err := st.User().GetByID(ctx, req.ID, repository.ActiveOnly)
		if err != nil {
			return err
		}

		if req.CurrentPassword != "" {
			if err := s.hasher.Compare(old.PasswordHash, req.CurrentPassword); err != nil {
				return fmt.Errorf("%w: current password does not match", apperrors.ErrForbidden)
			}
		}

		tokens, err := st.Refresh().ListByUser(ctx, old.ID)
		if err != nil {
			return err
		}

		// Foreign keys are deferred: dependents point to missing user until reassigned
		if err := st.User().Delete(ctx, old.ID); err != nil {
			return err
		}

		replacement := models.User{
			CreatedAt:    old.CreatedAt,
			IsActive:     true,
			Email:        old.Email,
			PasswordHash: old.PasswordHash,
		}
		if req.Email != "" {
			replacement.Email = req.Email
		}
		if newHash != "" {
			replacement.PasswordHash = newHash
		}

		created, err := st.User().Create(ctx, replacement)
		if err != nil {
			return err
		}

		moved, err := st.Refresh().Reassign(ctx, old.ID, created.ID)
		if err != nil {
			return err
		}
		if moved != int64(len(tokens)) {
			return fmt.Errorf("refresh tokens changed during update: expected %d, moved %d", len(tokens), moved)
		}
		for i := range tokens {
			tokens[i].UserID = created.ID
		}
		created.RefreshTokens = tokens

		if _, err := st.Workspace().Reassign(ctx, old.ID, created.ID); err != nil {
			return err
		}

		updated = created
		return nil
	})
	if err != nil {
		return models.User{}, fmt.Errorf("can't update user %d. Err: %w", req.ID, err)
	}

	s.forget(req.ID)
	s.logger.Info("user replaced", "old_id", req.ID, "new_id", updated.ID)

	return updated, nil
}

// GetUserByID returns active user, lookups are cached for a short time
func (s *UserService) GetUserByID(ctx context.Context, id int64) (models.User, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(cacheKey(id)); ok {
			return cached.(models.User), nil
		}
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return models.User{}, err
	}

	if s.cache != nil {
		s.cache.Set(cacheKey(id), user, cache.DefaultExpiration)
	}
	return user, nil
}

func (s *UserService) GetUsers(ctx context.Context) ([]models.User, error) {
	return s.users.GetAll(ctx)
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// IsEmailUsed reports whether an active user has the email
func (s *UserService) IsEmailUsed(ctx context.Context, email string) (bool, error) {
	if err := validate.Struct(emailRequest{Email: email}); err != nil {
		return false, err
	}

	return s.storage.User().ExistsByEmail(ctx, email, repository.ActiveOnly)
}

func (s *UserService) GetActiveUserByEmail(ctx context.Context, email string) (models.User, error) {
	if err := validate.Struct(emailRequest{Email: email}); err != nil {
		return models.User{}, err
	}

	return s.storage.User().GetByEmail(ctx, email, repository.ActiveOnly)
}

func (s *UserService) forget(id int64) {
	if s.cache != nil {
		s.cache.Delete(cacheKey(id))
	}
}

func cacheKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

func idValidationError() error {
	return apperrors.NewValidationError(map[string]string{"id": "Value must be greater than 0"})
}

