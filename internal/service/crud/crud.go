// Package crud provides the generic create/read/delete operations shared by entity services.
package crud

import (
	"context"
	"fmt"

	"github.com/nkiryanov/taledynamic/internal/apperrors"
	"github.com/nkiryanov/taledynamic/internal/repository"
)

type Service[T any] struct {
	repo  repository.CRUD[T]
	scope repository.Scope
}

// NewService creates service that reads entities visible under the scope only
func NewService[T any](repo repository.CRUD[T], scope repository.Scope) *Service[T] {
	return &Service[T]{repo: repo, scope: scope}
}

// Create inserts entity and returns it with the assigned ID
func (s *Service[T]) Create(ctx context.Context, entity T) (T, error) {
	return s.repo.Create(ctx, entity)
}

func (s *Service[T]) GetByID(ctx context.Context, id int64) (T, error) {
	if id <= 0 {
		var zero T
		return zero, apperrors.NewValidationError(map[string]string{"id": "Value must be greater than 0"})
	}

	return s.repo.GetByID(ctx, id, s.scope)
}

func (s *Service[T]) GetAll(ctx context.Context) ([]T, error) {
	return s.repo.List(ctx, s.scope)
}

// Delete removes entity physically
func (s *Service[T]) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return apperrors.NewValidationError(map[string]string{"id": "Value must be greater than 0"})
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete %d: %w", id, err)
	}
	return nil
}
