package ports

import (
	"context"

	"github.com/silianos/voyage-api/internal/core/domain"
)

// DocumentCollection is a generic store of resource records.
// FindByID and UpdateByID return domain.ErrNotFound for unknown or malformed ids.
type DocumentCollection interface {
	Find(ctx context.Context, filter map[string]any, sort []domain.SortField) ([]*domain.Document, error)
	FindByID(ctx context.Context, id string) (*domain.Document, error)
	Create(ctx context.Context, fields map[string]any) (*domain.Document, error)
	UpdateByID(ctx context.Context, id string, fields map[string]any) (*domain.Document, error)
	DeleteByID(ctx context.Context, id string) (bool, error)
	// Distinct returns the distinct values of field among records matching filter.
	Distinct(ctx context.Context, field string, filter map[string]any) ([]any, error)
}

type DocumentStore interface {
	Collection(name string) DocumentCollection
}
