package ports

import (
	"context"

	"github.com/silianos/voyage-api/internal/core/domain"
)

type ResourceService interface {
	Schema() *domain.ResourceSchema
	List(ctx context.Context, filter map[string]any) ([]*domain.Document, error)
	Categories(ctx context.Context) ([]string, error)
	Get(ctx context.Context, id string) (*domain.Document, error)
	Create(ctx context.Context, fields map[string]any) (*domain.Document, error)
	Update(ctx context.Context, id string, fields map[string]any) (*domain.Document, error)
	SetField(ctx context.Context, id, field string, value any) (*domain.Document, error)
	Delete(ctx context.Context, id string) error
}
